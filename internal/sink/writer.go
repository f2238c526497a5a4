// Package sink writes batches of enriched records to the analytical store.
package sink

import (
	"context"

	"github.com/vdavid/mailsift/internal/models"
)

// Writer accepts batches of enriched records for durable storage. WriteBatch
// must be idempotent with respect to DocumentID so a reprocessed message
// overwrites rather than duplicates.
type Writer interface {
	WriteBatch(ctx context.Context, records []models.EnrichedRecord) error
}
