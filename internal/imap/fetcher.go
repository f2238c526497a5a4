package imap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/vdavid/mailsift/internal/models"
	"github.com/vdavid/mailsift/internal/rules"
)

// ErrConnect indicates the connection or login to the mail server failed.
// It invalidates the whole fetch: the orchestrator aborts the account run.
var ErrConnect = errors.New("imap connection failed")

// FetchResult is one per-message outcome of a fetch run. Exactly one of
// Msg and Err is set.
type FetchResult struct {
	Msg *models.FetchedMessage
	Err error
}

// Fetcher retrieves requested messages and applies body-exclusion filtering
// and content-signature deduplication.
type Fetcher struct {
	rules *rules.Directory
}

// NewFetcher creates a Fetcher filtering against the given rule directory.
func NewFetcher(directory *rules.Directory) *Fetcher {
	return &Fetcher{rules: directory}
}

// Fetch connects once and retrieves the requested messages folder by
// folder, one multiplexed UID fetch per folder. The returned channel is a
// single-pass stream, closed when the run is done; it honors ctx
// cancellation. With no requests it yields nothing and opens no connection.
// A connection failure yields exactly one result wrapping ErrConnect; a
// folder that cannot be selected is skipped; everything else is a
// per-message outcome.
func (f *Fetcher) Fetch(ctx context.Context, creds models.MailboxCredentials, requests []models.FetchRequest) <-chan FetchResult {
	out := make(chan FetchResult)
	go func() {
		defer close(out)
		f.run(ctx, creds, requests, out)
	}()
	return out
}

func (f *Fetcher) run(ctx context.Context, creds models.MailboxCredentials, requests []models.FetchRequest, out chan<- FetchResult) {
	boxes := groupByPath(requests)
	if len(boxes) == 0 {
		return
	}

	slog.Info("fetching mails", "count", len(requests), "boxes", len(boxes))

	c, err := Connect(creds)
	if err != nil {
		emit(ctx, out, FetchResult{Err: fmt.Errorf("%w: %v", ErrConnect, err)})
		return
	}
	defer func() { _ = c.Logout() }()

	// Within-run dedup state; discarded when the run ends.
	seen := make(map[string]struct{})

	paths := make([]string, 0, len(boxes))
	for path := range boxes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.Select(path, false); err != nil {
			slog.Warn("failed to select box, skipping", "path", path, "error", err)
			continue
		}
		if !f.fetchBox(ctx, c, path, boxes[path], seen, out) {
			return
		}
	}
}

// fetchBox issues one multiplexed UID fetch for the folder and streams the
// per-message outcomes. Returns false when the context was cancelled.
func (f *Fetcher) fetchBox(ctx context.Context, c *client.Client, path string, requests map[uint32]models.FetchRequest, seen map[string]struct{}, out chan<- FetchResult) bool {
	seqSet := new(imap.SeqSet)
	for uid := range requests {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		imap.FetchInternalDate,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	for msg := range messages {
		result, ok := f.buildResult(msg, path, requests, seen)
		if !ok {
			continue
		}
		if !emit(ctx, out, result) {
			for range messages {
			}
			<-done
			return false
		}
	}

	// A failed fetch only invalidates this folder; the run moves on.
	if err := <-done; err != nil {
		emit(ctx, out, FetchResult{Err: fmt.Errorf("failed to fetch box %s: %w", path, err)})
	}
	return ctx.Err() == nil
}

// buildResult turns one fetched message into a per-message outcome. The
// second return is false when the message is silently dropped: not
// requested, rule set emptied by body exclusion, missing headers, or a
// duplicate signature.
func (f *Fetcher) buildResult(msg *imap.Message, path string, requests map[uint32]models.FetchRequest, seen map[string]struct{}) (FetchResult, bool) {
	request, ok := requests[msg.Uid]
	if !ok {
		return FetchResult{}, false
	}

	parsed, err := parseMail(msg)
	if err != nil {
		return FetchResult{Err: fmt.Errorf("box %s: %w", path, err)}, true
	}

	allowed := make([]string, 0, len(request.Rules))
	for _, name := range request.Rules {
		rule, err := f.rules.Get(name)
		if err != nil {
			slog.Warn("skipping unknown rule", "rule", name, "error", err)
			continue
		}
		if !rule.ExcludesHTML(parsed.html) {
			allowed = append(allowed, name)
		}
	}
	if len(allowed) == 0 {
		return FetchResult{}, false
	}

	if !parsed.complete() {
		return FetchResult{}, false
	}

	signature := parsed.signature(msg.InternalDate)
	if _, dup := seen[signature]; dup {
		return FetchResult{}, false
	}
	seen[signature] = struct{}{}

	return FetchResult{Msg: &models.FetchedMessage{
		AccountID: request.AccountID,
		UID:       msg.Uid,
		Path:      path,
		Rules:     allowed,
		Headers: models.MailHeaders{
			Date:      parsed.date,
			From:      parsed.from,
			Subject:   parsed.subject,
			To:        parsed.to,
			Signature: signature,
		},
		HTML: parsed.html,
	}}, true
}

// groupByPath keys requests by folder, then by uid. A repeated uid within a
// folder keeps the last request.
func groupByPath(requests []models.FetchRequest) map[string]map[uint32]models.FetchRequest {
	boxes := make(map[string]map[uint32]models.FetchRequest)
	for _, request := range requests {
		if boxes[request.Path] == nil {
			boxes[request.Path] = make(map[uint32]models.FetchRequest)
		}
		boxes[request.Path][request.UID] = request
	}
	return boxes
}

func emit(ctx context.Context, out chan<- FetchResult, result FetchResult) bool {
	select {
	case out <- result:
		return true
	case <-ctx.Done():
		return false
	}
}
