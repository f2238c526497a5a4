package extract

import (
	"context"
	"log/slog"

	"github.com/vdavid/mailsift/internal/models"
	"github.com/vdavid/mailsift/internal/rules"
)

// ItemResult is one per-item enrichment outcome: an enriched record, or the
// failure of the rule call that should have produced it.
type ItemResult struct {
	Record *models.EnrichedRecord
	Err    error
}

// Invoker runs every still-applicable rule of a fetched message through the
// extraction service and derives the stable identifiers of the results.
type Invoker struct {
	client *Client
	rules  *rules.Directory
}

// NewInvoker creates an Invoker using the given service client and rule
// directory.
func NewInvoker(client *Client, directory *rules.Directory) *Invoker {
	return &Invoker{client: client, rules: directory}
}

// ParseMail invokes the service once per rule attached to the message and
// returns one result per extracted item, plus one failure result per rule
// call that failed. A failed rule never aborts the message's other rules.
func (inv *Invoker) ParseMail(ctx context.Context, account *models.Account, mail *models.FetchedMessage) []ItemResult {
	var out []ItemResult

	for _, name := range mail.Rules {
		rule, err := inv.rules.Get(name)
		if err != nil {
			out = append(out, ItemResult{Err: err})
			continue
		}

		items, err := inv.client.Parse(ctx, rule, mail)
		if err != nil {
			slog.Info("failed to parse mail",
				"uid", mail.UID,
				"rule", name,
				"error", err,
			)
			out = append(out, ItemResult{Err: err})
			continue
		}

		slog.Info("parsed mail", "uid", mail.UID, "rule", name, "items", len(items))

		orders := orderIDs(rule.Name, mail.Headers.From, account.UserID, mail.Headers.Date, mail.UID, items)
		for index, item := range items {
			out = append(out, ItemResult{Record: &models.EnrichedRecord{
				Item:          item,
				DocumentID:    documentID(rule.Name, mail.Headers.From, account.UserID, mail.Headers.Date, mail.UID, index),
				OrderID:       orders[index],
				ParserName:    rule.Name,
				ParserID:      rule.ID,
				ParserVersion: rule.Version,
				AccountID:     account.ID,
				UserID:        account.UserID,
				Path:          mail.Path,
				UID:           mail.UID,
				Signature:     mail.Headers.Signature,
				Domain:        mail.Domain(),
				From:          mail.Headers.From,
				Index:         index,
				Date:          mail.Headers.Date,
				CreatedAt:     mail.Headers.Date,
			}})
		}
	}

	return out
}
