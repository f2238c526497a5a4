package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginalOrderNumber(t *testing.T) {
	tests := []struct {
		name    string
		item    ExtractedItem
		want    string
		present bool
	}{
		{
			name:    "string number",
			item:    ExtractedItem{"data": map[string]any{"originalOrderNumber": "ORD-1001"}},
			want:    "ORD-1001",
			present: true,
		},
		{
			name:    "numeric number",
			item:    ExtractedItem{"data": map[string]any{"originalOrderNumber": float64(123)}},
			want:    "123",
			present: true,
		},
		{
			name:    "empty string is absent",
			item:    ExtractedItem{"data": map[string]any{"originalOrderNumber": ""}},
			present: false,
		},
		{
			name:    "zero is absent",
			item:    ExtractedItem{"data": map[string]any{"originalOrderNumber": float64(0)}},
			present: false,
		},
		{
			name:    "missing key is absent",
			item:    ExtractedItem{"data": map[string]any{"total": 12.5}},
			present: false,
		},
		{
			name:    "missing data object is absent",
			item:    ExtractedItem{"other": "x"},
			present: false,
		},
		{
			name:    "non-object data is absent",
			item:    ExtractedItem{"data": "not-an-object"},
			present: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.item.OriginalOrderNumber()
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrichedRecordMarshal(t *testing.T) {
	record := EnrichedRecord{
		Item: ExtractedItem{
			"data":  map[string]any{"total": 12.5},
			"index": "overwritten by derived field",
		},
		DocumentID:    "doc-1",
		OrderID:       "order-1",
		ParserName:    "rule-shop",
		ParserID:      "parser-1",
		ParserVersion: "3",
		AccountID:     "acc-1",
		UserID:        "user-1",
		Path:          "INBOX",
		UID:           42,
		Signature:     "sig-1",
		Domain:        "shop.example",
		From:          "noreply@shop.example",
		Index:         2,
		Date:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "doc-1", out["documentId"])
	assert.Equal(t, "order-1", out["orderId"])
	assert.Equal(t, "rule-shop", out["parserName"])
	assert.Equal(t, "acc-1", out["accountId"])
	assert.Equal(t, "INBOX", out["path"])
	assert.Equal(t, float64(42), out["uid"])
	assert.Equal(t, map[string]any{"total": 12.5}, out["data"])

	// Derived fields win over item fields of the same name.
	assert.Equal(t, float64(2), out["index"])
}

func TestEnrichedRecordMarshalOmitsAbsentOrderID(t *testing.T) {
	record := EnrichedRecord{
		Item:       ExtractedItem{"data": map[string]any{}},
		DocumentID: "doc-1",
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	_, present := out["orderId"]
	assert.False(t, present)
}
