package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailReferenceUnmarshal(t *testing.T) {
	t.Run("uid as string", func(t *testing.T) {
		var ref MailReference
		err := json.Unmarshal([]byte(`{"uid": "42", "sender": "noreply@shop.example", "path": "INBOX", "subject": "Order 1001"}`), &ref)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), ref.UID)
		assert.Equal(t, "noreply@shop.example", ref.Sender)
		assert.Equal(t, "INBOX", ref.Path)
		assert.Equal(t, "Order 1001", ref.Subject)
	})

	t.Run("uid as number", func(t *testing.T) {
		var ref MailReference
		err := json.Unmarshal([]byte(`{"uid": 7, "sender": "a@b.example", "path": "Archive", "subject": "x"}`), &ref)
		require.NoError(t, err)
		assert.Equal(t, uint32(7), ref.UID)
	})

	t.Run("non-numeric uid fails", func(t *testing.T) {
		var ref MailReference
		err := json.Unmarshal([]byte(`{"uid": "seven", "sender": "a@b.example", "path": "INBOX", "subject": "x"}`), &ref)
		assert.Error(t, err)
	})

	t.Run("negative uid fails", func(t *testing.T) {
		var ref MailReference
		err := json.Unmarshal([]byte(`{"uid": -1, "sender": "a@b.example", "path": "INBOX", "subject": "x"}`), &ref)
		assert.Error(t, err)
	})
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"bare address", "noreply@shop.example", "shop.example"},
		{"display name with angle brackets", "Shop <noreply@shop.example>", "shop.example"},
		{"no at sign", "not-an-address", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FetchedMessage{Headers: MailHeaders{From: tt.from}}
			assert.Equal(t, tt.want, msg.Domain())
		})
	}
}
