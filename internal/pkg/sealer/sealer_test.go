package sealer

import "testing"

func TestSealOpen(t *testing.T) {
	s, err := New("passphrase")
	if err != nil {
		t.Fatalf("new error: %v", err)
	}
	sealed, err := s.Seal("eyJhbGciOi.payload.sig")
	if err != nil {
		t.Fatalf("seal error: %v", err)
	}
	if sealed == "eyJhbGciOi.payload.sig" {
		t.Fatalf("expected ciphertext to differ from plaintext")
	}
	plain, err := s.Open(sealed)
	if err != nil || plain != "eyJhbGciOi.payload.sig" {
		t.Fatalf("expected round trip, got %q err=%v", plain, err)
	}

	again, _ := s.Seal("eyJhbGciOi.payload.sig")
	if again == sealed {
		t.Fatalf("expected fresh nonce per seal")
	}
}

func TestOpenRejectsForeignKeyAndGarbage(t *testing.T) {
	a, _ := New("key-a")
	b, _ := New("key-b")
	sealed, _ := a.Seal("secret")
	if _, err := b.Open(sealed); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext for wrong key, got %v", err)
	}
	for _, in := range []string{"", "!!!", "c2hvcnQ"} {
		if _, err := a.Open(in); err != ErrInvalidCiphertext {
			t.Fatalf("expected ErrInvalidCiphertext for %q, got %v", in, err)
		}
	}
}

func TestNewRequiresPassphrase(t *testing.T) {
	if _, err := New(""); err != ErrEmptyPassphrase {
		t.Fatalf("expected ErrEmptyPassphrase, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("token")
	if len(fp) != 12 || fp != Fingerprint("token") {
		t.Fatalf("expected stable 12 char fingerprint, got %q", fp)
	}
	if Fingerprint("") != "-" {
		t.Fatalf("expected placeholder for empty token")
	}
}
