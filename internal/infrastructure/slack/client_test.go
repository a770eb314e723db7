package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pragent/internal/bootstrap/config"
	"pragent/internal/ports"
)

func TestSendPostsMrkdwnPayload(t *testing.T) {
	t.Parallel()

	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(config.SlackConfig{WebhookURL: server.URL})
	err := client.Send(context.Background(), ports.NotificationMessage{Body: "*CI Failure Alert*"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if got.Text != "*CI Failure Alert*" {
		t.Fatalf("text = %q, want message body", got.Text)
	}
	if !got.Mrkdwn {
		t.Fatal("mrkdwn = false, want true")
	}
}

func TestSendClassifiesStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}

	for _, tc := range cases {
		tc := tc
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client := NewClient(config.SlackConfig{WebhookURL: server.URL})
		err := client.Send(context.Background(), ports.NotificationMessage{Body: "hi"})
		server.Close()

		if err == nil {
			t.Fatalf("status %d: err = nil, want SendError", tc.status)
		}
		var sendErr *SendError
		if !errors.As(err, &sendErr) {
			t.Fatalf("status %d: err = %T, want *SendError", tc.status, err)
		}
		if sendErr.Retryable() != tc.retryable {
			t.Fatalf("status %d: retryable = %v, want %v", tc.status, sendErr.Retryable(), tc.retryable)
		}
	}
}

func TestSendConnectionFailureIsRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewClient(config.SlackConfig{WebhookURL: server.URL})
	err := client.Send(context.Background(), ports.NotificationMessage{Body: "hi"})
	if err == nil {
		t.Fatal("err = nil, want connection failure")
	}

	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %T, want *SendError", err)
	}
	if !sendErr.Retryable() {
		t.Fatal("retryable = false, want true for connection failure")
	}
}

func TestSendMissingURLIsPermanent(t *testing.T) {
	t.Parallel()

	client := NewClient(config.SlackConfig{})
	err := client.Send(context.Background(), ports.NotificationMessage{Body: "hi"})
	if err == nil {
		t.Fatal("err = nil, want configuration failure")
	}

	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %T, want *SendError", err)
	}
	if sendErr.Retryable() {
		t.Fatal("retryable = true, want false for missing webhook url")
	}
}
