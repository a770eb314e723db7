package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	domainrelay "pragent/internal/domain/relay"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: pragent\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("server.addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Database.DSN == "" {
		t.Fatal("database.dsn is empty, want default")
	}
	if cfg.Dispatch.MaxAttempts != 5 {
		t.Fatalf("dispatch.max_attempts = %d, want 5", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.OnDuplicate != OnDuplicateSuppress {
		t.Fatalf("dispatch.on_duplicate = %q, want suppress", cfg.Dispatch.OnDuplicate)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
dispatch:
  max_attempts: 3
  on_duplicate: resend
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("server.addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Fatalf("dispatch.max_attempts = %d, want 3", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Dispatch.OnDuplicate != OnDuplicateResend {
		t.Fatalf("dispatch.on_duplicate = %q, want resend", cfg.Dispatch.OnDuplicate)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty dsn", "database:\n  dsn: \"\"\n"},
		{"bad attempts", "dispatch:\n  max_attempts: 0\n"},
		{"bad queue size", "dispatch:\n  queue_size: 0\n"},
		{"bad workers", "dispatch:\n  workers: 0\n"},
		{"bad duplicate policy", "dispatch:\n  on_duplicate: maybe\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := Load(context.Background(), path)
			if err == nil {
				t.Fatalf("load %s: err = nil, want validation failure", tc.name)
			}
			if !errors.Is(err, domainrelay.ErrConfigurationInvalid) {
				t.Fatalf("load %s: err = %v, want ErrConfigurationInvalid in chain", tc.name, err)
			}
		})
	}
}

func TestValidateForServe(t *testing.T) {
	var cfg Config
	err := cfg.ValidateForServe()
	if err == nil {
		t.Fatal("err = nil, want missing slack webhook url")
	}
	if !errors.Is(err, domainrelay.ErrConfigurationInvalid) {
		t.Fatalf("err = %v, want ErrConfigurationInvalid in chain", err)
	}

	cfg.Slack.WebhookURL = "https://hooks.slack.com/services/T/B/x"
	if err := cfg.ValidateForServe(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
