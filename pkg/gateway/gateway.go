package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igorsilveira/weeklypreview/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Gateway is the HTTP server in front of one agent.
type Gateway struct {
	name     string
	server   *http.Server
	router   *chi.Mux
	agent    http.Handler
	webhooks http.Handler
	ready    func(context.Context) error
	logger   *slog.Logger
}

type Config struct {
	Name     string
	Bind     string
	Port     int
	Agent    http.Handler
	Webhooks http.Handler
	Ready    func(context.Context) error
	Logger   *slog.Logger
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	g := &Gateway{
		name:     cfg.Name,
		router:   r,
		agent:    cfg.Agent,
		webhooks: cfg.Webhooks,
		ready:    cfg.Ready,
		logger:   cfg.Logger,
	}

	g.registerRoutes()

	g.server = &http.Server{
		Addr:              resolveAddr(cfg.Bind, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return g
}

func (g *Gateway) registerRoutes() {
	g.router.Get("/healthz", g.handleHealthz)
	g.router.Get("/readyz", g.handleReadyz)
	g.router.Handle("/metrics", promhttp.Handler())
	if g.webhooks != nil {
		g.router.Post("/webhooks", g.webhooks.ServeHTTP)
	}

	if g.agent != nil {
		g.router.Mount("/", g.agent)
	}
}

// Handler exposes the routed handler, mostly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Addr() string {
	return g.server.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("%s listen: %w", g.name, err)
	}
	return g.Serve(ctx, ln)
}

func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	logger := telemetry.FromContext(ctx)
	logger.Info("agent listening", slog.String("agent", g.name), slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return g.shutdown()
	case err := <-errCh:
		return err
	}
}

func (g *Gateway) shutdown() error {
	g.logger.Info("agent shutting down", slog.String("agent", g.name))
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.server.Shutdown(ctx)
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok", "agent": g.name})
}

func (g *Gateway) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if g.ready != nil {
		if err := g.ready(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func resolveAddr(bind string, port int) string {
	var host string
	switch bind {
	case "lan", "all":
		host = "0.0.0.0"
	case "loopback", "":
		host = "127.0.0.1"
	default:
		host = bind
	}
	return fmt.Sprintf("%s:%d", host, port)
}
