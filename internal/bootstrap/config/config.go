package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pragent/internal/bootstrap/logging"
	domainrelay "pragent/internal/domain/relay"
	"pragent/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxIdle  time.Duration `mapstructure:"conn_max_idle"`
	OpTimeout    time.Duration `mapstructure:"op_timeout"`
}

type GitHubConfig struct {
	// WebhookSecret is optional. When empty, signature verification is
	// skipped and every ingested event is flagged unverified.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SlackConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	Channel        string        `mapstructure:"channel"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Duplicate-delivery dispatch policies.
const (
	OnDuplicateSuppress = "suppress"
	OnDuplicateResend   = "resend"
)

type DispatchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	QueueSize   int           `mapstructure:"queue_size"`
	Workers     int           `mapstructure:"workers"`
	OnDuplicate string        `mapstructure:"on_duplicate"`
	DrainGrace  time.Duration `mapstructure:"drain_grace"`
}

type NATSConfig struct {
	// URL is optional; an empty URL disables outcome publishing.
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PRAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("signature_verification", cfg.GitHub.WebhookSecret != ""),
	)

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errs.Wrap(domainrelay.ErrConfigurationInvalid, "database.dsn is required")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return errs.Wrap(domainrelay.ErrConfigurationInvalid, "dispatch.max_attempts must be at least 1")
	}
	if c.Dispatch.QueueSize < 1 {
		return errs.Wrap(domainrelay.ErrConfigurationInvalid, "dispatch.queue_size must be at least 1")
	}
	if c.Dispatch.Workers < 1 {
		return errs.Wrap(domainrelay.ErrConfigurationInvalid, "dispatch.workers must be at least 1")
	}
	switch c.Dispatch.OnDuplicate {
	case OnDuplicateSuppress, OnDuplicateResend:
	default:
		return errs.Wrapf(domainrelay.ErrConfigurationInvalid,
			"dispatch.on_duplicate must be %q or %q, got %q",
			OnDuplicateSuppress, OnDuplicateResend, c.Dispatch.OnDuplicate)
	}
	return nil
}

// ValidateForServe checks the settings the ingestion server cannot run
// without. Called before serving traffic; a failure here is fatal.
func (c Config) ValidateForServe() error {
	if strings.TrimSpace(c.Slack.WebhookURL) == "" {
		return errs.Wrap(domainrelay.ErrConfigurationInvalid, "slack.webhook_url is required to serve ingestion traffic")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pragent")
	v.SetDefault("app.env", "local")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_grace", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/pragent.sqlite")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_idle", "5m")
	v.SetDefault("database.op_timeout", "5s")

	v.SetDefault("slack.channel", "#ci")
	v.SetDefault("slack.request_timeout", "10s")

	v.SetDefault("dispatch.max_attempts", 5)
	v.SetDefault("dispatch.base_delay", "500ms")
	v.SetDefault("dispatch.max_delay", "30s")
	v.SetDefault("dispatch.queue_size", 256)
	v.SetDefault("dispatch.workers", 2)
	v.SetDefault("dispatch.on_duplicate", OnDuplicateSuppress)
	v.SetDefault("dispatch.drain_grace", "10s")

	v.SetDefault("nats.subject_prefix", "pragent")
}
