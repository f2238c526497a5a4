package refqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Handler processes one delivered account id.
type Handler func(ctx context.Context, accountID string) error

// ListClient is the subset of redis list commands the consumer uses.
// *redis.Client satisfies it.
type ListClient interface {
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
}

// Consumer drains the input queue of account ids. Deliveries are moved to a
// processing list before handling and removed only after the handler
// succeeds. A failed handler moves the delivery back to the input queue for
// redelivery; deliveries orphaned in the processing list by a crashed
// worker are requeued the next time Run starts.
type Consumer struct {
	rdb        ListClient
	queue      string
	processing string
	handler    Handler
}

// NewConsumer creates a consumer for the given input queue.
func NewConsumer(rdb ListClient, queue string, handler Handler) *Consumer {
	return &Consumer{
		rdb:        rdb,
		queue:      queue,
		processing: queue + ":processing",
		handler:    handler,
	}
}

// Run blocks, handling deliveries until the context is cancelled. A
// handler error never stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.recover(ctx)

	for {
		body, err := c.rdb.BLMove(ctx, c.queue, c.processing, "LEFT", "RIGHT", 5*time.Second).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("input queue receive failed", "error", err)
			continue
		}

		deliveryID := uuid.NewString()
		accountID, err := ParseAccountID(body)
		if err != nil {
			// Undecodable messages would redeliver forever; drop them.
			slog.Error("dropping malformed input message",
				"delivery_id", deliveryID,
				"error", err,
			)
			c.ack(ctx, body)
			continue
		}

		slog.Info("processing account", "delivery_id", deliveryID, "account_id", accountID)
		if err := c.handler(ctx, accountID); err != nil {
			slog.Error("account processing failed, requeueing",
				"delivery_id", deliveryID,
				"account_id", accountID,
				"error", err,
			)
			c.requeue(ctx, deliveryID)
			continue
		}
		c.ack(ctx, body)
	}
}

// recover moves deliveries a previous run left in the processing list back
// to the input queue. Run consumes one delivery at a time, so anything
// found here belongs to a worker that crashed mid-handling.
func (c *Consumer) recover(ctx context.Context) {
	for {
		err := c.rdb.LMove(ctx, c.processing, c.queue, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return
		}
		if err != nil {
			slog.Error("failed to recover processing list", "error", err)
			return
		}
		slog.Info("requeued orphaned delivery", "queue", c.queue)
	}
}

// requeue returns the in-flight delivery to the tail of the input queue so
// other pending accounts are tried first. The delivery is the newest entry
// in the processing list because Run handles one at a time.
func (c *Consumer) requeue(ctx context.Context, deliveryID string) {
	if err := c.rdb.LMove(ctx, c.processing, c.queue, "RIGHT", "RIGHT").Err(); err != nil {
		slog.Error("failed to requeue input message", "delivery_id", deliveryID, "error", err)
	}
}

func (c *Consumer) ack(ctx context.Context, body string) {
	if err := c.rdb.LRem(ctx, c.processing, 1, body).Err(); err != nil {
		slog.Error("failed to ack input message", "error", err)
	}
}

// ParseAccountID extracts the account id from a queue message body. The
// body is a notification envelope whose Message field is itself a JSON
// document carrying accountId.
func ParseAccountID(body string) (string, error) {
	if body == "" {
		return "", errors.New("body is empty")
	}
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return "", fmt.Errorf("invalid envelope: %w", err)
	}
	if envelope.Message == "" {
		return "", errors.New("message is empty")
	}
	var msg struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal([]byte(envelope.Message), &msg); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}
	if msg.AccountID == "" {
		return "", errors.New("accountId is empty")
	}
	return msg.AccountID, nil
}
