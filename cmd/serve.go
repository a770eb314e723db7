package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pragent/internal/bootstrap/config"
	"pragent/internal/bootstrap/logging"
	"pragent/internal/errs"
)

// serveCmd runs the webhook ingestion server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GitHub webhook ingestion server",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := deps.App.Config.ValidateForServe(); err != nil {
			return errs.Wrap(err, "validate serve config")
		}

		// First boot on an empty database must come up serving.
		if err := deps.App.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		serverCfg := deps.App.Config.Server

		router := newRouter(deps.Service, deps.Registry, serverCfg)

		server := &http.Server{
			Addr:         serverCfg.Addr,
			Handler:      router,
			ReadTimeout:  serverCfg.ReadTimeout,
			WriteTimeout: serverCfg.WriteTimeout,
			BaseContext:  func(net.Listener) context.Context { return ctx },
		}

		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.ListenAndServe()
		}()

		logging.Info(ctx, "webhook server started", slog.String("addr", serverCfg.Addr))

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "webhook server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve webhook")
			}
			return nil
		case <-runCtx.Done():
		}

		logging.Info(ctx, "shutting down webhook server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverCfg.ShutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "webhook server shutdown failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "shutdown webhook server")
		}

		// The dispatch worker drains via the container's stop hooks after
		// this returns.
		logging.Info(ctx, "webhook server stopped")
		return nil
	}),
}

func newRouter(svc webhookIngestService, registry *prometheus.Registry, cfg config.ServerConfig) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	if cfg.WriteTimeout > 0 {
		router.Use(middleware.Timeout(cfg.WriteTimeout))
	}

	router.Post("/webhook/github", newWebhookHandler(svc))
	router.Get("/healthz", newHealthHandler(svc))
	if registry != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return router
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
