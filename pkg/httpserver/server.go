// Package httpserver exposes metrics, health probes, the REST control
// surface, and the websocket ticker endpoint.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/broadcast"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/healthprobe"
)

// Server provides HTTP endpoints for metrics, health checks, and control.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker

	KalshiStore     *kalshi.Store
	PolymarketStore *polymarket.Store

	Manager     *arbitrage.Manager
	Registry    *arbitrage.Registry
	Settings    *arbitrage.SettingsCoordinator
	Broadcaster *broadcast.Broadcaster
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	h := newAPIHandler(cfg)

	// Request-scoped routes; the long-lived websocket route stays outside
	// the timeout middleware.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Get("/health", cfg.HealthChecker.Health())
		r.Get("/ready", cfg.HealthChecker.Ready())

		r.Get("/api/orderbook", h.handleOrderbook)
		r.Get("/api/pairs", h.handleListPairs)
		r.Post("/api/pairs", h.handleAddPair)
		r.Delete("/api/pairs/{pairID}", h.handleRemovePair)
		r.Post("/api/markets/subscribe", h.handleSubscribeMarket)
		r.Post("/api/arbitrage/settings", h.handleSettings)
		r.Get("/api/arbitrage/settings", h.handleGetSettings)
	})

	if cfg.Broadcaster != nil {
		ws := &wsHandler{
			broadcaster: cfg.Broadcaster,
			logger:      cfg.Logger,
			upgrader: websocket.Upgrader{
				ReadBufferSize:  4096,
				WriteBufferSize: 4096,
				CheckOrigin:     func(r *http.Request) bool { return true },
			},
		}
		r.Get("/ws/ticker", ws.handleTicker)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Handler exposes the router; used by tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// wsHandler upgrades ticker stream connections and hands them to the
// broadcaster.
type wsHandler struct {
	broadcaster *broadcast.Broadcaster
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// handleTicker handles GET /ws/ticker. The websocket write timeout is
// enforced per message by the broadcaster, so a stalled consumer cannot
// hold up fan-out.
func (h *wsHandler) handleTicker(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}

	// Clear the server's read/write deadlines inherited through the
	// hijack; the broadcaster sets its own per-message write deadline.
	_ = conn.UnderlyingConn().SetDeadline(time.Time{})

	h.broadcaster.HandleClient(r.Context(), conn)
}
