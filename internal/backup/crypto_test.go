package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 and some rows")

	sealed, err := Seal(original, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, original) {
		t.Error("sealed output should not contain the plaintext")
	}
	if len(sealed) <= saltSize+nonceSize {
		t.Fatalf("sealed length = %d", len(sealed))
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("round trip = %q, want %q", got, original)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("same"), "pass")
	b, _ := Seal([]byte("same"), "pass")
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("two seals should not share a salt")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, _ := Seal([]byte("secret"), "right")
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Error("expected error for wrong passphrase")
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, _ := Seal([]byte("secret"), "pass")
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, "pass"); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestOpenTooShort(t *testing.T) {
	if _, err := Open([]byte("short"), "pass"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("1234567890abcdef")
	if !bytes.Equal(deriveKey("p", salt), deriveKey("p", salt)) {
		t.Error("same passphrase and salt should produce the same key")
	}
	if bytes.Equal(deriveKey("p1", salt), deriveKey("p2", salt)) {
		t.Error("different passphrases should produce different keys")
	}
	if len(deriveKey("p", salt)) != keySize {
		t.Errorf("key length = %d, want %d", len(deriveKey("p", salt)), keySize)
	}
}
