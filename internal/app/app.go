package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/auth/jwt"
	"github.com/gokatarajesh/paper-builder/internal/bank"
	"github.com/gokatarajesh/paper-builder/internal/config"
	"github.com/gokatarajesh/paper-builder/internal/db/repository"
	"github.com/gokatarajesh/paper-builder/internal/logging"
	"github.com/gokatarajesh/paper-builder/internal/metrics"
	"github.com/gokatarajesh/paper-builder/internal/papers"
	"github.com/gokatarajesh/paper-builder/internal/server"
	"github.com/gokatarajesh/paper-builder/internal/workspace"
	ws "github.com/gokatarajesh/paper-builder/pkg/http/ws"
)

// Application aggregates shared infrastructure (store, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	closeStore func()
	redis      *redis.Client
	http       *http.Server
	prefetcher *bank.Prefetcher
	relay      *workspace.Relay
	bgCancels  []context.CancelFunc
	closers    []func(context.Context) error
}

// NewAuthService builds the staff auth service from config.
func NewAuthService(cfg *config.App, staffRepo *repository.StaffRepository, logger zerolog.Logger) *auth.Service {
	var refresh []byte
	if cfg.Security.JWTRefreshSecret != "" {
		refresh = []byte(cfg.Security.JWTRefreshSecret)
	}
	return auth.NewService(staffRepo, auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: refresh,
			AccessTTL:     cfg.Security.AccessTokenTTL,
			RefreshTTL:    cfg.Security.RefreshTokenTTL,
			Issuer:        cfg.Name,
		},
	}, logger)
}

// New bootstraps logger, store, Redis, the question bank and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	a := &Application{
		cfg:        cfg,
		logger:     logger,
		closeStore: closeStore,
		redis:      redisClient,
	}

	source, err := a.bankSource(ctx)
	if err != nil {
		closeStore()
		return nil, err
	}
	cached := bank.NewCachedSource(source, redisClient, cfg.Bank.CacheTTL)
	bankSvc := bank.NewService(cached, m, bank.ServiceOptions{FetchTimeout: cfg.Bank.FetchTimeout}, logger)
	a.prefetcher = bank.NewPrefetcher(cached, cfg.Bank.PrefetchSize, logger, cfg.Bank.FetchTimeout)

	staffRepo := repository.NewStaffRepository(store)
	paperRepo := repository.NewPaperRepository(store)

	authSvc := NewAuthService(cfg, staffRepo, logger)
	authHandlers := auth.NewHTTPHandlers(authSvc, logger)

	paperSvc := papers.NewService(paperRepo, m, logger)

	hub := ws.NewHub(logger, m.ActiveSockets)
	a.relay = workspace.NewRelay(redisClient, hub, "", logger)
	state := workspace.NewStateManager(redisClient, cfg.Drafts.TTL, cfg.Drafts.LockTTL, logger)
	workspaceSvc := workspace.NewService(state, bankSvc, paperSvc, workspace.ServiceOptions{
		Notifier:   a.relay,
		Prefetcher: a.prefetcher,
		Metrics:    m,
	}, logger)
	socket := workspace.NewSocketHandler(hub, authSvc, ws.NewUpgrader(cfg.CORS.AllowedOrigins), logger)

	a.http = server.NewHTTPServer(cfg, logger, server.Deps{
		Auth:     authSvc,
		Handlers: authHandlers,
		Features: []server.RouteRegistrar{
			papers.NewHTTPHandler(paperSvc, logger),
			workspace.NewHTTPHandler(workspaceSvc, logger),
		},
		PoolHTTP: bank.NewHTTPHandler(bankSvc, logger).Resolve,
		DraftWS:  socket.HandleWebSocket,
		Gatherer: registry,
		Pings: map[string]server.Pinger{
			"store": store,
			"redis": server.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	return a, nil
}

func (a *Application) bankSource(ctx context.Context) (bank.Source, error) {
	switch a.cfg.Bank.Source {
	case "mongo":
		client, coll, err := bank.ConnectMongo(ctx, a.cfg.Bank.MongoURI, a.cfg.Bank.MongoDatabase, a.cfg.Bank.MongoCollection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		a.logger.Info().Str("database", a.cfg.Bank.MongoDatabase).Str("collection", a.cfg.Bank.MongoCollection).Msg("question bank from mongo")
		return bank.NewMongoSource(coll), nil
	default:
		a.logger.Info().Str("url", a.cfg.Bank.URL).Msg("question bank over http")
		return bank.NewHTTPSource(a.cfg.Bank.URL, &http.Client{Timeout: a.cfg.Bank.FetchTimeout}), nil
	}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.prefetcher.Stop()

	for _, closeFn := range a.closers {
		if err := closeFn(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("dependency shutdown error")
		}
	}
	a.closeStore()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	go a.prefetcher.Run()

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.relay.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("draft relay stopped")
		}
	}()
}
