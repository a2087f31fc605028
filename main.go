package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/camden-git/galacticcensus/config"
	"github.com/camden-git/galacticcensus/database"
	"github.com/camden-git/galacticcensus/importer"
	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/realtime"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/camden-git/galacticcensus/services"
	"github.com/camden-git/galacticcensus/uploads"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "galacticcensus",
		Short:        "Galactic census roster: CSV import and people API",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newImportCmd())
	return cmd
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	people  *repository.PersonRepository
	refs    *repository.ReferenceRepository
	runs    *repository.ImportRunRepository
	imports *services.ImportService
	im      *importer.Importer
	hub     *realtime.Hub
}

// bootstrap loads configuration and wires the database, repositories and
// import pipeline. A non-empty logOutput overrides LOG_OUTPUT.
func bootstrap(logOutput string) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if logOutput != "" {
		cfg.LogOutput = logOutput
	}
	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})

	if cfg.DatabasePath != ":memory:" && !strings.HasPrefix(cfg.DatabasePath, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath, zl, logger.MapGormLogLevel(cfg.DBLogLevel),
		logger.WithSlowThreshold(time.Duration(cfg.DBSlowQueryMS)*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	zl.Info("database ready", zap.String("path", cfg.DatabasePath))

	store, err := uploads.NewLocalStorage(cfg.UploadStoragePath, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	a := &app{
		cfg:    cfg,
		log:    zl,
		db:     db,
		people: repository.NewPersonRepository(db),
		refs:   repository.NewReferenceRepository(db),
		runs:   repository.NewImportRunRepository(db),
	}
	a.hub = realtime.NewHub(zl)
	a.im = importer.New(a.people, a.refs, zl)
	a.imports = services.NewImportService(a.im, a.runs, store, a.hub, zl)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
