package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/fieldcare/fieldcare-backend/internal/data/db"
	"github.com/fieldcare/fieldcare-backend/internal/http"
	"github.com/fieldcare/fieldcare-backend/internal/observability"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	metrics := observability.Init(log)

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.Migrate(log, theDB); err != nil {
		_ = db.Close(theDB)
		log.Sync()
		return nil, err
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = db.Close(theDB)
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = db.Close(theDB)
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "addr", a.Cfg.Addr)
	return a.Server.Run(ctx, a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if err := db.Close(a.DB); err != nil && a.Log != nil {
		a.Log.Warn("close database", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
