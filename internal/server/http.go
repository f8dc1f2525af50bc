package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/config"
	"github.com/gokatarajesh/paper-builder/internal/logging"
	httperrors "github.com/gokatarajesh/paper-builder/pkg/http/errors"
)

// Pinger is a dependency checked by /v1/ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouteRegistrar is implemented by feature handlers that own a set of routes.
type RouteRegistrar interface {
	Register(mux *http.ServeMux, protect func(http.Handler) http.Handler)
}

// Deps are the handlers and checks the API server routes to.
type Deps struct {
	Auth     *auth.Service
	Handlers *auth.HTTPHandlers
	Features []RouteRegistrar
	PoolHTTP http.HandlerFunc
	DraftWS  http.HandlerFunc
	Gatherer prometheus.Gatherer
	Pings    map[string]Pinger
}

// NewHTTPServer wires health, metrics, auth and feature routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if name, err := pingDependencies(ctx, deps.Pings); err != nil {
			logger := logging.FromContext(r.Context())
			logger.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
			httperrors.RespondDependencyDown(w, name)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	protect := func(h http.Handler) http.Handler { return h }
	if deps.Auth != nil {
		authenticate := auth.AuthMiddleware(deps.Auth, logger)
		protect = func(h http.Handler) http.Handler {
			return authenticate(auth.RequireAuth(h))
		}
	}

	if deps.Handlers != nil {
		mux.HandleFunc("POST /v1/auth/login", deps.Handlers.Login)
		mux.HandleFunc("POST /v1/auth/refresh", deps.Handlers.RefreshToken)
	}

	for _, f := range deps.Features {
		f.Register(mux, protect)
	}

	if deps.PoolHTTP != nil {
		mux.Handle("POST /v1/pool/resolve", protect(deps.PoolHTTP))
	}

	// token travels in the query string; browsers cannot set headers on upgrade
	if deps.DraftWS != nil {
		mux.HandleFunc("GET /ws/drafts", deps.DraftWS)
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsHandler(RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pingDependencies(ctx context.Context, pings map[string]Pinger) (string, error) {
	for name, p := range pings {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return name, err
		}
	}
	return "", nil
}
