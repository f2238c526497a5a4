// Package imap retrieves requested messages from an account's mailbox over
// IMAP, one connection per account run.
package imap

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/vdavid/mailsift/internal/models"
)

// dialTimeout bounds the TCP connect to the mail server.
const dialTimeout = 5 * time.Second

// Connect dials the account's IMAP server and authenticates. The returned
// client is single-threaded: callers own it exclusively for the duration of
// the run and must Logout when done.
func Connect(creds models.MailboxCredentials) (*client.Client, error) {
	address := net.JoinHostPort(creds.Settings.Host, strconv.Itoa(creds.Settings.Port))

	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}

	var c *client.Client
	var err error
	if bool(creds.Settings.TLS) {
		c, err = client.DialWithDialerTLS(dialer, address, nil)
	} else {
		c, err = client.DialWithDialer(dialer, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	if err := c.Login(creds.Email, creds.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	return c, nil
}
