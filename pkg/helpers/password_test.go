package helpers

import "testing"

func TestBcryptHashAndVerify(t *testing.T) {
	h := NewBcryptHasher()

	digest, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "secret123" || digest == "" {
		t.Fatalf("digest must not echo the plaintext")
	}
	if !h.Verify("secret123", digest) {
		t.Fatalf("expected verify to succeed")
	}
	if h.Verify("secret124", digest) {
		t.Fatalf("wrong password must verify false")
	}
	if h.Verify("secret123", "not-a-digest") {
		t.Fatalf("malformed digest must verify false, not panic")
	}
}

func TestBcryptDigestEmbedsSalt(t *testing.T) {
	h := NewBcryptHasher()
	d1, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	d2, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if d1 == d2 {
		t.Fatalf("two digests of the same input must differ (independent salts)")
	}
}

func TestBcryptRejectsEmptyPassword(t *testing.T) {
	if _, err := NewBcryptHasher().Hash(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
