// Package server is the LabTrack HTTP shell: core endpoints, Prometheus
// metrics and the routes of every enabled module.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/registry"
	"github.com/HerbHall/labtrack/internal/version"
)

// VersionHeader carries the server version on core responses.
const VersionHeader = "X-LabTrack-Version"

// Server is the main LabTrack server.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server. gatherer backs GET /metrics; nil uses the default
// Prometheus registry.
func New(addr string, reg *registry.Registry, logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()

	s := &Server{
		// No read or write timeout: the console websocket outlives both.
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		registry: reg,
		logger:   logger,
		mux:      mux,
	}

	s.registerCoreRoutes(gatherer)
	s.mountPluginRoutes()

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

func (s *Server) registerCoreRoutes(gatherer prometheus.Gatherer) {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// mountPluginRoutes registers module routes under /api/v1/{module}, or at
// their own path for Root routes.
func (s *Server) mountPluginRoutes() {
	for pluginName, routes := range s.registry.AllRoutes() {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, pluginName, route.Path)
			if route.Root {
				pattern = fmt.Sprintf("%s %s", route.Method, route.Path)
			}
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", pluginName),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(VersionHeader, version.Short())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"service": "labtrack",
		"version": version.Map(),
	})
}

type pluginResponse struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies,omitempty"`
	Required     bool     `json:"required"`
	Enabled      bool     `json:"enabled"`
}

func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	plugins := s.registry.All()
	info := make([]pluginResponse, 0, len(plugins))
	for _, p := range plugins {
		pi := p.Info()
		info = append(info, pluginResponse{
			Name:         pi.Name,
			Version:      pi.Version,
			Description:  pi.Description,
			Dependencies: pi.Dependencies,
			Required:     pi.Required,
			Enabled:      !s.registry.IsDisabled(pi.Name),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(VersionHeader, version.Short())
	_ = json.NewEncoder(w).Encode(info)
}
