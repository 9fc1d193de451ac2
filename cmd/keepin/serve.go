package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-keepin-auth"
	"github.com/goliatone/go-keepin-auth/activitymap"
	"github.com/goliatone/go-keepin-auth/adapters/metrics"
	"github.com/goliatone/go-keepin-auth/config"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Open the database, apply pending migrations and serve the account
and token endpoints until SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := auth.NewSlogLogger(newLogger(cmd.ErrOrStderr(), cfg.Log))

	if cfg.Debug {
		logger.Debug("effective configuration", "config", print.MaybePrettyJSON(cfg))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.Migrate(ctx, db, logger.With("component", "migrate")); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := newServer(cfg, db, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.Serve(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return srv.WrappedRouter().ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
}

// newServer wires the services and mounts every route on a fiber backed
// router server.
func newServer(cfg *config.Config, db *bun.DB, registry *prometheus.Registry, logger *auth.SlogLogger) router.Server[*fiber.App] {
	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	activity := auth.MultiActivitySink{
		metrics.NewSink(registry),
		auditSink(logger.With("component", "audit")),
	}

	register := auth.NewRegisterUserHandler(repo, hasher).
		WithPhoneRegion(cfg.Users.PhoneRegion).
		WithStrictPhone(cfg.Users.StrictPhone).
		WithHashid(cfg.Users.DeterministicIDs).
		WithActivitySink(activity).
		WithLogger(logger)

	auther := auth.NewAuthenticator(repo, hasher, cfg).
		WithRegisterHandler(register).
		WithActivitySink(activity).
		WithLogger(logger)

	guard := auth.NewHTTPAuthenticator(auther, cfg).WithLogger(logger)

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "keepin",
			DisableStartupMessage: true,
			ErrorHandler:          auth.DefaultErrorHandler(logger),
		}))
		app.Use(recover.New())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		return app
	})

	auth.RegisterRoutes(srv.Router(),
		auth.WithControllerLogger(logger),
		auth.WithControllerRepo(repo),
		auth.WithControllerAuther(auther),
		auth.WithControllerGuard(guard),
		auth.WithControllerRefreshHeader(cfg.GetRefreshTokenHeader()),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerProfileHandler(
			auth.NewUpdateProfileHandler(repo).
				WithPhoneRegion(cfg.Users.PhoneRegion).
				WithStrictPhone(cfg.Users.StrictPhone).
				WithActivitySink(activity).
				WithLogger(logger),
		),
		auth.WithControllerPasswordHandler(
			auth.NewChangePasswordHandler(repo, hasher).
				WithActivitySink(activity).
				WithLogger(logger),
		),
	)

	return srv
}

func auditSink(logger auth.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		n := activitymap.Normalize(event)
		logger.Info("auth activity",
			"action", n.Action,
			"outcome", n.Outcome,
			"actor_id", n.ActorID,
			"occurred_at", n.OccurredAt,
		)
		return nil
	})
}
