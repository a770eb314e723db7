package relay

import "errors"

// Error taxonomy for the ingestion and delivery pipeline. The HTTP layer
// maps these to response codes; everything else wraps them with context.
var (
	// ErrVerificationFailed: signature mismatch or malformed signature
	// header. Terminal for the request (401), no persistence, no dispatch.
	ErrVerificationFailed = errors.New("webhook signature verification failed")

	// ErrMalformedPayload: the body cannot be parsed into the expected
	// event shape. Terminal for the request (400), no persistence.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrStorageUnavailable: the event store cannot be reached or timed
	// out. Reported retryable (503) so the sender can redeliver.
	ErrStorageUnavailable = errors.New("event storage unavailable")

	// ErrDispatchExhausted: the retry ceiling was reached without a
	// successful delivery. Terminal; recorded, never re-queued.
	ErrDispatchExhausted = errors.New("notification dispatch attempts exhausted")

	// ErrQueueFull: the bounded dispatch queue rejected a new job.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrConfigurationInvalid: a required setting is missing or out of
	// range. Fatal at startup; the process refuses to serve traffic.
	ErrConfigurationInvalid = errors.New("configuration invalid")
)
