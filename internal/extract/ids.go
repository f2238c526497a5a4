package extract

import (
	"strconv"
	"time"

	"github.com/vdavid/mailsift/internal/hash"
	"github.com/vdavid/mailsift/internal/models"
)

// mailKey is the shared prefix of every identifier derived for one
// (rule, message) pair. Recomputing it from the same inputs always produces
// the same value, which is what makes reprocessing idempotent at the sink.
func mailKey(ruleName, from, userID string, date time.Time, uid uint32) string {
	return ruleName + from + userID + date.UTC().Format(time.RFC3339) + strconv.FormatUint(uint64(uid), 10)
}

// documentID derives the stable id of one extracted item.
func documentID(ruleName, from, userID string, date time.Time, uid uint32, index int) string {
	return hash.SHA1Hex(mailKey(ruleName, from, userID, date, uid) + strconv.Itoa(index))
}

// orderIDs resolves an order id per item via order grouping. Items carrying
// an original order number hash against their own number. When the result
// list references at most one distinct order, items without a number share
// the mail-derived fallback id. When it references several distinct orders
// the fallback would conflate them, so items without their own number get
// an empty order id instead.
func orderIDs(ruleName, from, userID string, date time.Time, uid uint32, items []models.ExtractedItem) []string {
	key := mailKey(ruleName, from, userID, date, uid)

	perOrder := make(map[string]string)
	for _, item := range items {
		if oon, ok := item.OriginalOrderNumber(); ok {
			perOrder[oon] = hash.SHA1Hex(key + oon)
		}
	}

	multiOrder := len(perOrder) > 1
	fallback := hash.SHA1Hex(key)

	out := make([]string, len(items))
	for i, item := range items {
		if oon, ok := item.OriginalOrderNumber(); ok {
			out[i] = perOrder[oon]
		} else if !multiOrder {
			out[i] = fallback
		}
	}
	return out
}
