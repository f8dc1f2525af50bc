package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/paper-builder/internal/config"
	"github.com/gokatarajesh/paper-builder/internal/metrics"
)

type registrarFunc func(mux *http.ServeMux, protect func(http.Handler) http.Handler)

func (f registrarFunc) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	f(mux, protect)
}

func testConfig() *config.App {
	return &config.App{
		HTTPAddr: "127.0.0.1:0",
		CORS: config.CORS{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         60,
		},
	}
}

func serve(srv *http.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRequestID(t *testing.T) {
	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Deps{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = serve(srv, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestPingReportsFailingDependency(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("redis down") })

	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Deps{Pings: map[string]Pinger{"store": healthy}})
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv = NewHTTPServer(testConfig(), zerolog.Nop(), Deps{Pings: map[string]Pinger{"store": healthy, "redis": broken}})
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"service_unavailable","message":"redis is unavailable","details":{"dependency":"redis"}}`, rec.Body.String())
}

func TestMetricsUsesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.DraftOps.WithLabelValues("commit", "ok").Inc()

	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Deps{Gatherer: reg})
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `paperbuilder_drafts_operations_total{op="commit",outcome="ok"} 1`)
}

func TestFeatureRoutesAndCORS(t *testing.T) {
	var protected bool
	feature := registrarFunc(func(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
		protected = true
		mux.Handle("GET /v1/papers", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})))
	})
	srv := NewHTTPServer(testConfig(), zerolog.Nop(), Deps{Features: []RouteRegistrar{feature}})
	require.True(t, protected)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/papers", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	preflight := httptest.NewRequest(http.MethodOptions, "/v1/papers", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", "PATCH")
	rec = serve(srv, preflight)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(srv, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
