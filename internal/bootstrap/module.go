package bootstrap

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"pragent/internal/bootstrap/config"
	"pragent/internal/bootstrap/database"
	"pragent/internal/bootstrap/logging"
	"pragent/internal/infrastructure/githubhook"
	"pragent/internal/infrastructure/natspub"
	sqliterepo "pragent/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "pragent/internal/infrastructure/persistence/sqlite/uow"
	slackinfra "pragent/internal/infrastructure/slack"
	"pragent/internal/metrics"
	"pragent/internal/ports"
	"pragent/internal/usecase/dispatch"
	"pragent/internal/usecase/relay"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(provideEventStore),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideVerifier),
	fx.Provide(provideFormatter),
	fx.Provide(provideSender),
	fx.Provide(provideRegistry),
	fx.Provide(provideMetrics),
	fx.Provide(provideDispatcher),
	fx.Provide(providePublisher),
	fx.Provide(provideWorker),
	fx.Provide(provideQueue),
	fx.Provide(relay.NewService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideEventStore(db *gorm.DB, cfg config.Config) ports.EventStore {
	return sqliterepo.NewEventRepository(db, cfg.Database.OpTimeout)
}

func provideVerifier(cfg config.Config) ports.Verifier {
	return githubhook.NewVerifier(cfg.GitHub.WebhookSecret)
}

func provideFormatter(cfg config.Config) ports.Formatter {
	return relay.NewSlackFormatter(cfg.Slack.Channel)
}

func provideSender(cfg config.Config) ports.Sender {
	return slackinfra.NewClient(cfg.Slack)
}

func provideDispatcher(sender ports.Sender, m *metrics.Metrics, cfg config.Config) ports.Dispatcher {
	return dispatch.NewRetryDispatcher(sender, m, cfg.Dispatch)
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func providePublisher(lc fx.Lifecycle, cfg config.Config) (ports.Publisher, error) {
	publisher, err := natspub.New(cfg.NATS)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			publisher.Close()
			return nil
		},
	})

	return publisher, nil
}

func provideWorker(lc fx.Lifecycle, dispatcher ports.Dispatcher, store ports.EventStore, publisher ports.Publisher, m *metrics.Metrics, ctx context.Context, cfg config.Config) *dispatch.Worker {
	worker := dispatch.NewWorker(dispatcher, store, publisher, m, cfg.Dispatch)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			worker.Start(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			return worker.Close(stopCtx)
		},
	})

	return worker
}

func provideQueue(worker *dispatch.Worker) relay.DispatchQueue {
	return worker
}
