package githubhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyValidSignature(t *testing.T) {
	t.Parallel()

	secret := "local-dev-secret"
	body := []byte(`{"action":"completed"}`)

	v := NewVerifier(secret)
	result := v.Verify(body, signBody(secret, body))

	if !result.Valid {
		t.Fatalf("valid = false, want true; reason=%q", result.Reason)
	}
	if result.Skipped {
		t.Fatal("skipped = true, want false")
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	t.Parallel()

	secret := "local-dev-secret"
	body := []byte(`{"action":"completed"}`)
	signature := signBody(secret, body)

	v := NewVerifier(secret)

	// Flipping any single byte of the body must invalidate the signature.
	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01

		if result := v.Verify(tampered, signature); result.Valid {
			t.Fatalf("valid = true for body with byte %d flipped, want false", i)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	body := []byte(`{"action":"completed"}`)
	v := NewVerifier("right-secret")

	result := v.Verify(body, signBody("wrong-secret", body))
	if result.Valid {
		t.Fatal("valid = true for signature from another secret, want false")
	}
}

func TestVerifyRejectsBadHeaders(t *testing.T) {
	t.Parallel()

	body := []byte(`{"action":"completed"}`)
	v := NewVerifier("local-dev-secret")

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no prefix", hex.EncodeToString(make([]byte, 32))},
		{"wrong prefix", "sha1=" + hex.EncodeToString(make([]byte, 20))},
		{"prefix only", "sha256="},
		{"not hex", "sha256=zzzz"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := v.Verify(body, tc.header)
			if result.Valid {
				t.Fatalf("valid = true for header %q, want false", tc.header)
			}
			if result.Reason == "" {
				t.Fatal("reason is empty, want rejection reason")
			}
		})
	}
}

func TestVerifySkipsWithoutSecret(t *testing.T) {
	t.Parallel()

	v := NewVerifier("")
	result := v.Verify([]byte(`{}`), "")

	if !result.Valid {
		t.Fatal("valid = false, want true when no secret is configured")
	}
	if !result.Skipped {
		t.Fatal("skipped = false, want true when no secret is configured")
	}
}
