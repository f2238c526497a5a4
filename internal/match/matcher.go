// Package match classifies queued mail references against the rule
// directory and turns them into mailbox fetch requests.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vdavid/mailsift/internal/models"
	"github.com/vdavid/mailsift/internal/rules"
)

// PopBatchSize is how many references are popped per round trip.
const PopBatchSize = 500

// PopBatcher drains mail references for one account. An exhausted queue
// returns an empty batch, not an error.
type PopBatcher interface {
	PopBatch(ctx context.Context, accountID string, max int) ([]models.MailReference, error)
}

// Matcher drains an account's queued references and keeps those matched by
// at least one rule's sender and subject patterns.
type Matcher struct {
	queue PopBatcher
	rules *rules.Directory
}

// NewMatcher creates a Matcher over the given queue and rule directory.
func NewMatcher(queue PopBatcher, directory *rules.Directory) *Matcher {
	return &Matcher{queue: queue, rules: directory}
}

// GetNewMails pops references until the account's queue is empty and
// returns one fetch request per matched (path, uid) pair, tagged with the
// sorted names of the matching rules. References matching no rule are
// discarded. Popped references are consumed either way.
func (m *Matcher) GetNewMails(ctx context.Context, accountID string) ([]models.FetchRequest, error) {
	started := time.Now()

	type key struct {
		path string
		uid  uint32
	}
	requests := make(map[key]map[string]struct{})
	allRules := m.rules.All()

	for {
		refs, err := m.queue.PopBatch(ctx, accountID, PopBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to pop mail references: %w", err)
		}
		if len(refs) == 0 {
			break
		}

		for _, ref := range refs {
			for _, rule := range allRules {
				if !rule.MatchesSender(ref.Sender) || !rule.MatchesSubject(ref.Subject) {
					continue
				}
				k := key{path: ref.Path, uid: ref.UID}
				if requests[k] == nil {
					requests[k] = make(map[string]struct{})
				}
				requests[k][rule.Name] = struct{}{}
			}
		}
	}

	out := make([]models.FetchRequest, 0, len(requests))
	for k, names := range requests {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		out = append(out, models.FetchRequest{
			AccountID: accountID,
			UID:       k.uid,
			Path:      k.path,
			Rules:     sorted,
		})
	}

	slog.Info("matched new mails",
		"account_id", accountID,
		"count", len(out),
		"duration", time.Since(started),
	)
	return out, nil
}
