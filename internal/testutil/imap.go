package testutil

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"

	"github.com/vdavid/mailsift/internal/models"
)

// TestIMAPServer represents a test IMAP server instance.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// NewTestIMAPServer creates a new test IMAP server with an in-memory backend.
// The memory backend creates a default user with username "username" and
// password "password".
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		_ = s.Close()
	}

	return &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  cleanup,
		username: "username",
		password: "password",
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Credentials returns mailbox credentials pointing at the test server.
func (s *TestIMAPServer) Credentials(t *testing.T) models.MailboxCredentials {
	t.Helper()

	host, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		t.Fatalf("Failed to split server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Failed to parse server port: %v", err)
	}

	return models.MailboxCredentials{
		Email:    s.username,
		Password: s.password,
		Settings: models.MailboxSettings{
			Host: host,
			Port: port,
			TLS:  false,
		},
	}
}

// Connect creates a new IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	cleanup := func() {
		_ = client.Logout()
	}

	return client, cleanup
}

// CreateFolder ensures the given folder exists for the default user.
func (s *TestIMAPServer) CreateFolder(t *testing.T, name string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(name, false); err != nil {
		if err := client.Create(name); err != nil {
			t.Fatalf("Failed to create folder %s: %v", name, err)
		}
	}
}

// TestMail describes a message to append to the test server.
type TestMail struct {
	MessageID string
	From      string
	To        string
	Subject   string
	Date      time.Time
	HTML      string
	// OmitTo drops the To header, producing a malformed message.
	OmitTo bool
}

// AddMessage appends the message to the given folder with Date as the
// internal receipt timestamp, and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName string, mail TestMail) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	var b strings.Builder
	b.WriteString("Message-ID: " + mail.MessageID + "\r\n")
	b.WriteString("Date: " + mail.Date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("From: " + mail.From + "\r\n")
	if !mail.OmitTo {
		b.WriteString("To: " + mail.To + "\r\n")
	}
	b.WriteString("Subject: " + mail.Subject + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(mail.HTML)
	b.WriteString("\r\n")

	if err := client.Append(folderName, nil, mail.Date, strings.NewReader(b.String())); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", mail.MessageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[len(uids)-1]
}
