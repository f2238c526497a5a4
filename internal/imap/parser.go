package imap

import (
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/vdavid/mailsift/internal/hash"
)

// parsedMail holds the pieces of a raw message the pipeline reads.
type parsedMail struct {
	date    time.Time
	from    string
	to      string
	subject string
	html    string
}

// complete reports whether all required headers were present. Messages
// missing any of date, from, subject or to are dropped as malformed.
func (p *parsedMail) complete() bool {
	return !p.date.IsZero() && p.from != "" && p.to != "" && p.subject != ""
}

// signature is the content hash used for within-run deduplication: two
// messages with the same receipt timestamp, subject, from and to are the
// same logical message.
func (p *parsedMail) signature(internalDate time.Time) string {
	return hash.SHA1Hex(strconv.FormatInt(internalDate.UnixMilli(), 10) + p.subject + p.from + p.to)
}

// parseMail parses the raw source of the fetched message. The HTML body is
// taken as-is; plain-text-only messages get an empty html.
func parseMail(msg *imap.Message) (*parsedMail, error) {
	section := &imap.BodySectionName{}
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("server returned no body for message %d", msg.Uid)
	}

	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", msg.Uid, err)
	}

	parsed := &parsedMail{
		from:    envelope.GetHeader("From"),
		to:      envelope.GetHeader("To"),
		subject: envelope.GetHeader("Subject"),
		html:    envelope.HTML,
	}

	if raw := envelope.GetHeader("Date"); raw != "" {
		if date, err := mail.ParseDate(raw); err == nil {
			parsed.date = date
		}
	}

	return parsed, nil
}
