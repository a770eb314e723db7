package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/go-github/v68/github"

	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/usecase/relay"
)

// maxWebhookBody bounds request bodies; GitHub caps payloads at 25 MB.
const maxWebhookBody = 25 << 20

type webhookIngestService interface {
	Ingest(ctx context.Context, input relay.IngestInput) (relay.IngestResult, error)
	Health(ctx context.Context) error
}

type webhookAcceptedResponse struct {
	Status     string `json:"status"`
	DeliveryID string `json:"delivery_id"`
	EventType  string `json:"event_type"`
	Duplicate  bool   `json:"duplicate"`
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

func newWebhookHandler(svc webhookIngestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeWebhookError(w, http.StatusInternalServerError, "ingest service is not configured")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeWebhookError(w, http.StatusBadRequest, "failed to read payload")
			return
		}

		result, err := svc.Ingest(r.Context(), relay.IngestInput{
			DeliveryID: github.DeliveryID(r),
			EventType:  github.WebHookType(r),
			Signature:  r.Header.Get(github.SHA256SignatureHeader),
			Body:       body,
		})
		if err != nil {
			writeWebhookError(w, webhookStatusFor(err), err.Error())
			return
		}

		writeWebhookJSON(w, http.StatusAccepted, webhookAcceptedResponse{
			Status:     "accepted",
			DeliveryID: result.DeliveryID,
			EventType:  result.EventType,
			Duplicate:  result.Duplicate,
		})
	}
}

// webhookStatusFor maps pipeline failures onto HTTP status codes: rejected
// signatures never read as client formatting errors, and storage outages
// read as retryable.
func webhookStatusFor(err error) int {
	switch {
	case errors.Is(err, domainrelay.ErrVerificationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, domainrelay.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domainrelay.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newHealthHandler(svc webhookIngestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeWebhookError(w, http.StatusInternalServerError, "ingest service is not configured")
			return
		}
		if err := svc.Health(r.Context()); err != nil {
			writeWebhookError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		writeWebhookJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	writeWebhookJSON(w, status, webhookErrorResponse{Error: message})
}

func writeWebhookJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
