package githubhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pragent/internal/ports"
)

const signaturePrefix = "sha256="

// Verifier checks the X-Hub-Signature-256 header GitHub attaches to
// webhook deliveries: HMAC-SHA256 over the raw body, hex encoded.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify fails closed: a missing or malformed header is a rejection, never
// an error. With no secret configured the request passes, flagged so the
// caller can audit it as unverified.
func (v *Verifier) Verify(body []byte, signatureHeader string) ports.VerificationResult {
	if v.secret == "" {
		return ports.VerificationResult{Valid: true, Skipped: true, Reason: "unverified"}
	}

	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return ports.VerificationResult{Reason: "missing X-Hub-Signature-256"}
	}
	if len(signature) <= len(signaturePrefix) || !strings.EqualFold(signature[:len(signaturePrefix)], signaturePrefix) {
		return ports.VerificationResult{Reason: "invalid X-Hub-Signature-256 format"}
	}

	decoded, err := hex.DecodeString(signature[len(signaturePrefix):])
	if err != nil {
		return ports.VerificationResult{Reason: "invalid X-Hub-Signature-256 digest"}
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)

	// hmac.Equal is constant-time.
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return ports.VerificationResult{Reason: "invalid X-Hub-Signature-256"}
	}
	return ports.VerificationResult{Valid: true}
}
