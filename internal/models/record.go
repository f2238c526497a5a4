package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// ExtractedItem is one record returned by the extraction service. Its shape
// is opaque to the pipeline except for the data object, which may carry an
// original order number.
type ExtractedItem map[string]any

// Data returns the item's data object, or nil if it is missing or not an
// object.
func (it ExtractedItem) Data() map[string]any {
	data, _ := it["data"].(map[string]any)
	return data
}

// OriginalOrderNumber returns the item's original order number coerced to a
// string key, and whether one is present. Empty strings and zero numbers
// count as absent.
func (it ExtractedItem) OriginalOrderNumber() (string, bool) {
	data := it.Data()
	if data == nil {
		return "", false
	}
	switch v := data["originalOrderNumber"].(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		if v.String() == "0" || v.String() == "" {
			return "", false
		}
		return v.String(), true
	default:
		return "", false
	}
}

// EnrichedRecord is an extracted item plus the derived identifiers and
// provenance fields. OrderID may be empty: when a message references more
// than one distinct order, items without their own order number carry no
// order id.
type EnrichedRecord struct {
	Item ExtractedItem

	DocumentID    string
	OrderID       string
	ParserName    string
	ParserID      string
	ParserVersion string
	AccountID     string
	UserID        string
	Path          string
	UID           uint32
	Signature     string
	Domain        string
	From          string
	Index         int
	Date          time.Time
	CreatedAt     time.Time
}

// MarshalJSON flattens the record: the raw item fields first, overlaid with
// the derived fields, mirroring how the sink table is shaped.
func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Item)+16)
	for k, v := range r.Item {
		out[k] = v
	}
	out["documentId"] = r.DocumentID
	if r.OrderID != "" {
		out["orderId"] = r.OrderID
	}
	out["parserName"] = r.ParserName
	out["parserId"] = r.ParserID
	out["parserVersion"] = r.ParserVersion
	out["accountId"] = r.AccountID
	out["userId"] = r.UserID
	out["path"] = r.Path
	out["uid"] = r.UID
	out["signature"] = r.Signature
	out["domain"] = r.Domain
	out["from"] = r.From
	out["index"] = r.Index
	out["date"] = r.Date
	out["createdAt"] = r.CreatedAt
	return json.Marshal(out)
}
