// Package refqueue provides the Redis-backed queues the pipeline consumes:
// the per-account mail reference lists filled by the fetching service, and
// the input queue of account ids to process.
package refqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vdavid/mailsift/internal/models"
)

const refKeyPrefix = "mailsift:refs:"

// Queue pops mail references from the per-account Redis lists.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a reference queue backed by the given Redis client.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// PopBatch removes and returns up to max references from the account's
// list. An empty or missing list returns no references and no error.
// Popped references are not returned to the list; references that fail to
// decode are logged and dropped.
func (q *Queue) PopBatch(ctx context.Context, accountID string, max int) ([]models.MailReference, error) {
	values, err := q.rdb.LPopCount(ctx, refKeyPrefix+accountID, max).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis LPOP: %w", err)
	}

	refs := make([]models.MailReference, 0, len(values))
	for _, value := range values {
		var ref models.MailReference
		if err := json.Unmarshal([]byte(value), &ref); err != nil {
			slog.Warn("dropping undecodable mail reference",
				"account_id", accountID,
				"error", err,
			)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
