// Package pipeline composes the account-processing stages: account lookup,
// reference matching, credential decryption, mailbox fetch, extraction and
// batched sink writes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vdavid/mailsift/internal/extract"
	"github.com/vdavid/mailsift/internal/imap"
	"github.com/vdavid/mailsift/internal/models"
	"github.com/vdavid/mailsift/internal/sink"
)

// ErrBatchWrites is returned when the run completed but one or more sink
// batches failed to write. Those records are lost until the queue message
// is redelivered.
var ErrBatchWrites = errors.New("sink batch writes failed")

const (
	// DefaultWorkers bounds concurrent extraction calls per account run.
	DefaultWorkers = 4
	// DefaultBatchSize is how many records are buffered per sink write.
	DefaultBatchSize = 50
)

// AccountFinder looks up the account being processed.
type AccountFinder interface {
	FindAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// ReferenceMatcher drains the account's queued references into fetch
// requests.
type ReferenceMatcher interface {
	GetNewMails(ctx context.Context, accountID string) ([]models.FetchRequest, error)
}

// CredentialDecryptor turns the account's encrypted payload into mailbox
// connection credentials.
type CredentialDecryptor interface {
	DecryptCredentials(payload string) (models.MailboxCredentials, error)
}

// MailFetcher streams per-message fetch outcomes for the account's mailbox.
type MailFetcher interface {
	Fetch(ctx context.Context, creds models.MailboxCredentials, requests []models.FetchRequest) <-chan imap.FetchResult
}

// MailParser enriches one fetched message via the extraction service.
type MailParser interface {
	ParseMail(ctx context.Context, account *models.Account, mail *models.FetchedMessage) []extract.ItemResult
}

// Runner processes one account per call. It is safe for concurrent use;
// all per-run state is local to ProcessAccount.
type Runner struct {
	accounts  AccountFinder
	matcher   ReferenceMatcher
	decryptor CredentialDecryptor
	fetcher   MailFetcher
	parser    MailParser
	sink      sink.Writer
	workers   int
	batchSize int
}

// NewRunner wires the pipeline stages together. Non-positive workers or
// batchSize fall back to the defaults.
func NewRunner(accounts AccountFinder, matcher ReferenceMatcher, decryptor CredentialDecryptor,
	fetcher MailFetcher, parser MailParser, writer sink.Writer, workers, batchSize int) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Runner{
		accounts:  accounts,
		matcher:   matcher,
		decryptor: decryptor,
		fetcher:   fetcher,
		parser:    parser,
		sink:      writer,
		workers:   workers,
		batchSize: batchSize,
	}
}

// ProcessAccount runs the full pipeline for one account. Account lookup,
// credential decryption and the mailbox connection are fatal; every other
// failure is isolated to its message, rule or batch. Zero matched
// references is a no-op, not an error.
func (r *Runner) ProcessAccount(ctx context.Context, accountID string) error {
	account, err := r.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}

	requests, err := r.matcher.GetNewMails(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get new mails: %w", err)
	}
	if len(requests) == 0 {
		slog.Info("no new mails", "account_id", accountID)
		return nil
	}

	slog.Info("processing mails", "account_id", accountID, "count", len(requests))

	creds, err := r.decryptor.DecryptCredentials(account.Payload)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	results := r.fetcher.Fetch(ctx, creds, requests)

	msgs := make(chan *models.FetchedMessage)
	records := make(chan models.EnrichedRecord, r.batchSize)

	// connErr is written before msgs closes and read after records closes.
	var connErr error
	go func() {
		defer close(msgs)
		for result := range results {
			if result.Err != nil {
				if errors.Is(result.Err, imap.ErrConnect) {
					connErr = result.Err
					return
				}
				slog.Warn("failed to fetch mail", "account_id", accountID, "error", result.Err)
				continue
			}
			select {
			case msgs <- result.Msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				for _, item := range r.parser.ParseMail(ctx, account, msg) {
					if item.Err != nil {
						// Already logged at the invoker; skip the rule call.
						continue
					}
					select {
					case records <- *item.Record:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(records)
	}()

	batch := make([]models.EnrichedRecord, 0, r.batchSize)
	failedBatches := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		slog.Info("writing documents", "account_id", accountID, "count", len(batch))
		if err := r.sink.WriteBatch(ctx, batch); err != nil {
			slog.Error("failed to write batch", "account_id", accountID, "error", err)
			failedBatches++
		}
		batch = batch[:0]
	}
	for record := range records {
		batch = append(batch, record)
		if len(batch) == r.batchSize {
			flush()
		}
	}
	flush()

	if connErr != nil {
		return fmt.Errorf("failed to fetch mails: %w", connErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failedBatches > 0 {
		return fmt.Errorf("%w: %d batches", ErrBatchWrites, failedBatches)
	}
	return nil
}
