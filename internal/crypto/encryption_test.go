package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/vdavid/mailsift/internal/models"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewEncryptor(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		encryptor, err := NewEncryptor(testKey(t))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if encryptor == nil {
			t.Fatal("Expected encryptor, got nil")
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewEncryptor("not-valid-base64!!!")
		if err == nil {
			t.Fatal("Expected error for invalid base64, got nil")
		}
	})

	t.Run("wrong key length", func(t *testing.T) {
		key := make([]byte, 16)
		_, err := NewEncryptor(base64.StdEncoding.EncodeToString(key))
		if err == nil {
			t.Fatal("Expected error for wrong key length, got nil")
		}
	})
}

func TestEncryptDecrypt(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	testCases := []struct {
		name      string
		plaintext string
	}{
		{"simple password", "mypassword123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"empty string", ""},
		{"unicode", "пароль密码🔐"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := encryptor.Encrypt(tc.plaintext)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			decrypted, err := encryptor.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			if decrypted != tc.plaintext {
				t.Errorf("Expected %q, got %q", tc.plaintext, decrypted)
			}
		})
	}
}

func TestDecryptCredentials(t *testing.T) {
	encryptor, err := NewEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		creds := models.MailboxCredentials{
			Email:    "user@example.org",
			Password: "secret",
			App:      "gmail",
			Type:     "imap",
			Settings: models.MailboxSettings{Host: "imap.example.org", Port: 993, TLS: true},
		}

		payload, err := encryptor.EncryptCredentials(creds)
		if err != nil {
			t.Fatalf("EncryptCredentials failed: %v", err)
		}

		decrypted, err := encryptor.DecryptCredentials(payload)
		if err != nil {
			t.Fatalf("DecryptCredentials failed: %v", err)
		}

		if decrypted != creds {
			t.Errorf("Expected %+v, got %+v", creds, decrypted)
		}
	})

	t.Run("invalid base64 payload", func(t *testing.T) {
		if _, err := encryptor.DecryptCredentials("!!!"); err == nil {
			t.Fatal("Expected error for invalid base64, got nil")
		}
	})

	t.Run("payload encrypted with a different key", func(t *testing.T) {
		other, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 32)))
		if err != nil {
			t.Fatalf("Failed to create encryptor: %v", err)
		}

		payload, err := other.EncryptCredentials(models.MailboxCredentials{Email: "x"})
		if err != nil {
			t.Fatalf("EncryptCredentials failed: %v", err)
		}

		if _, err := encryptor.DecryptCredentials(payload); err == nil {
			t.Fatal("Expected error for wrong key, got nil")
		}
	})
}
