package ports

// VerificationResult is the definite outcome of webhook signature
// verification. Verifiers fail closed: any mismatch, missing header, or
// malformed header yields Valid=false with a diagnostic reason.
type VerificationResult struct {
	Valid bool
	// Skipped is set when no secret is configured. The request is accepted
	// but callers must propagate the unverified state to the audit log.
	Skipped bool
	Reason  string
}

type Verifier interface {
	Verify(body []byte, signatureHeader string) VerificationResult
}
