package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/events"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/repository"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/service"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/config"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/database"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/jwtutil"
	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketplace",
		Short:         "Construction materials pricing marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), reconcileCmd())
	return root
}

// app is the wiring every command shares.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	db   *gorm.DB
	repo repository.Repository
	hub  *events.Hub
	jwt  *jwtutil.JWTUtil
	svc  *service.Services
}

// bootstrap loads configuration, initialises logging and opens the database.
// With migrate set the schema is brought up to date first.
func bootstrap(migrate bool) (*app, error) {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.GetLogger()

	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.MigrateModels(db, log, repository.Models()...); err != nil {
			return nil, err
		}
	}

	a := &app{
		cfg:  cfg,
		log:  log,
		db:   db,
		repo: repository.New(db),
		hub:  events.NewHub(cfg.Events.SubscriberBuffer, log),
		jwt:  jwtutil.NewJWTUtil(&cfg.JWT),
	}
	a.svc = service.New(a.repo, a.hub, a.jwt, log)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
