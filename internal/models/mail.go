// Package models defines the data structures shared across the pipeline
// stages.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MailReference is a lightweight pointer to a mailbox message, queued by the
// fetching service. The queue serialises uid as a string; older producers
// used a number, so both are accepted.
type MailReference struct {
	UID     uint32 `json:"uid"`
	Sender  string `json:"sender"`
	Path    string `json:"path"`
	Subject string `json:"subject"`
}

func (m *MailReference) UnmarshalJSON(data []byte) error {
	var raw struct {
		UID     json.Number `json:"uid"`
		Sender  string      `json:"sender"`
		Path    string      `json:"path"`
		Subject string      `json:"subject"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	uid, err := strconv.ParseUint(raw.UID.String(), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid uid %q: %w", raw.UID.String(), err)
	}
	m.UID = uint32(uid)
	m.Sender = raw.Sender
	m.Path = raw.Path
	m.Subject = raw.Subject
	return nil
}

// FetchRequest is one message to retrieve from the mailbox, tagged with the
// names of the rules that matched its reference.
type FetchRequest struct {
	AccountID string   `json:"accountId"`
	UID       uint32   `json:"uid"`
	Path      string   `json:"path"`
	Rules     []string `json:"parsers"`
}

// MailHeaders are the headers the pipeline reads from a fetched message.
// Signature is the content hash used for within-run deduplication.
type MailHeaders struct {
	Date      time.Time `json:"date"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	To        string    `json:"to"`
	Signature string    `json:"signature"`
}

// FetchedMessage is a fully retrieved and parsed mailbox message, carrying
// the rule names that still apply after body-exclusion filtering.
type FetchedMessage struct {
	AccountID string      `json:"accountId"`
	UID       uint32      `json:"uid"`
	Path      string      `json:"path"`
	Rules     []string    `json:"parsers"`
	Headers   MailHeaders `json:"headers"`
	HTML      string      `json:"html"`
}

// Domain returns the part of the from address after "@", empty if there is
// none.
func (m *FetchedMessage) Domain() string {
	return domainOf(m.Headers.From)
}

func domainOf(from string) string {
	for i := 0; i < len(from); i++ {
		if from[i] == '@' {
			rest := from[i+1:]
			for j := 0; j < len(rest); j++ {
				if rest[j] == '>' {
					return rest[:j]
				}
			}
			return rest
		}
	}
	return ""
}
