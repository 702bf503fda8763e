package crypto

import (
	"strings"
	"testing"
)

const testKey = "0001020304050607080910111213141516171819202122232425262728293031"

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := "Patient should take medication X daily for 7 days."
	sealed, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if strings.Contains(sealed, plaintext) {
		t.Error("ciphertext must not contain the plaintext")
	}

	opened, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if opened != plaintext {
		t.Errorf("expected %q, got %q", plaintext, opened)
	}
}

func TestCipher_NonceVariesPerEncryption(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := c.Encrypt("same text")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	b, err := c.Encrypt("same text")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same text must differ")
	}
}

func TestNewCipher_BadKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
	}{
		{name: "not hex", key: "zzzz"},
		{name: "too short", key: "0001"},
		{name: "empty", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewCipher(tt.key); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCipher_DecryptGarbage(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Decrypt("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := c.Decrypt("YWJj"); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}
