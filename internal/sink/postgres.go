package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vdavid/mailsift/internal/models"
)

// PostgresWriter upserts enriched records into the documents table, keyed
// by document id so reprocessing overwrites instead of duplicating.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter creates a PostgresWriter over the given pool.
func NewPostgresWriter(pool *pgxpool.Pool) *PostgresWriter {
	return &PostgresWriter{pool: pool}
}

const upsertDocument = `
	INSERT INTO documents (
		document_id, order_id, parser_name, parser_id, parser_version,
		account_id, user_id, path, uid, signature, domain, from_address,
		item_index, date, created_at, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (document_id) DO UPDATE SET
		order_id = EXCLUDED.order_id,
		parser_version = EXCLUDED.parser_version,
		payload = EXCLUDED.payload
`

// WriteBatch writes all records in one pipelined batch. The whole batch
// fails or succeeds together.
func (w *PostgresWriter) WriteBatch(ctx context.Context, records []models.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", record.DocumentID, err)
		}
		var orderID *string
		if record.OrderID != "" {
			orderID = &record.OrderID
		}
		batch.Queue(upsertDocument,
			record.DocumentID, orderID, record.ParserName, record.ParserID,
			record.ParserVersion, record.AccountID, record.UserID, record.Path,
			int64(record.UID), record.Signature, record.Domain, record.From,
			record.Index, record.Date, record.CreatedAt, payload,
		)
	}

	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
	}
	return nil
}
