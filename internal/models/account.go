package models

import (
	"encoding/json"
	"time"
)

// Account is a mailbox account as stored in the accounts table. The
// credential payload stays encrypted until just before the IMAP connection
// is opened.
type Account struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Payload      string    `json:"payload"`
	IsAccessible bool      `json:"is_accessible"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MailboxCredentials is the decrypted form of Account.Payload.
type MailboxCredentials struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	App      string          `json:"app"`
	Type     string          `json:"type"`
	Settings MailboxSettings `json:"settings"`
}

// MailboxSettings holds the connection settings for the account's IMAP
// server.
type MailboxSettings struct {
	Host string      `json:"host"`
	Port int         `json:"port"`
	TLS  TLSSetting  `json:"tls"`
}

// TLSSetting accepts either a plain boolean or an options object in the
// payload JSON. Any object value means TLS is enabled.
type TLSSetting bool

func (t *TLSSetting) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = TLSSetting(b)
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = true
	return nil
}

func (t TLSSetting) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(t))
}
