package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/handler"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/middleware"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/seed"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(!skipMigrate)
			if err != nil {
				return err
			}
			defer a.close()
			log := a.log
			log.Info("Starting marketplace service...", zap.String("environment", a.cfg.Server.Env))

			e := echo.New()
			e.HideBanner = true
			e.HTTPErrorHandler = handler.HTTPErrorHandler
			e.Validator = handler.NewValidator()

			// Apply global middleware - order matters
			e.Use(echomiddleware.Recover())
			e.Use(echomiddleware.CORS())
			e.Use(middleware.RequestIDMiddleware(log))
			e.Use(logger.Middleware())
			e.Use(prometheus.MetricsMiddleware())

			handler.New(a.svc, a.hub, a.db, a.cfg.Events.Heartbeat).Routes(e, a.jwt)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
				if err := e.Start(":" + a.cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate the schema on start")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer a.close()
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the super admin and the starter categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			defer a.close()
			_, err = seed.Run(cmd.Context(), a.repo, a.svc, a.cfg.Seed, a.log)
			return err
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-quotes",
		Short: "Persist the expired status of quotes past their expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.close()
			n, err := a.svc.Quotes.ReconcileExpired(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("Reconciled expired quotes", zap.Int("count", n))
			return nil
		},
	}
}
