package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/labtrack/internal/apiclient"
	"github.com/HerbHall/labtrack/internal/audit"
	"github.com/HerbHall/labtrack/internal/config"
	"github.com/HerbHall/labtrack/internal/console"
	"github.com/HerbHall/labtrack/internal/event"
	"github.com/HerbHall/labtrack/internal/registry"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/server"
	"github.com/HerbHall/labtrack/internal/store"
	"github.com/HerbHall/labtrack/internal/web"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.GetString("log.level"))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.server.Addr()
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				a.close()
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return a.run(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.host and server.port)")
	return cmd
}

// app is the assembled console server.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.SQLiteStore
	registry *registry.Registry
	server   *server.Server
}

// newApp wires configuration into modules and initializes them. Nothing
// listens until run.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := store.New(cfg.GetString("audit.db_path"))
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: db}

	bus := event.NewBus(logger.Named("events"))
	api := newAPIClient(cfg, logger.Named("apiclient"), apiclient.NewMetrics(metrics))

	reg := registry.New(logger)
	modules := []plugin.Plugin{
		web.New(web.Options{
			Backend: api,
			Session: console.Options{
				PageSize:            cfg.GetInt("console.page_size"),
				SearchDebounce:      cfg.GetDuration("console.search_debounce"),
				AutoRefreshInterval: cfg.GetDuration("console.auto_refresh_interval"),
				ToastTTL:            cfg.GetDuration("console.toast_ttl"),
				Renderer:            render.New(render.WithLocation(loc)),
			},
			MaxSessions:    cfg.GetInt("console.max_sessions"),
			ConnectRate:    cfg.GetFloat64("console.connect_rate"),
			OriginPatterns: cfg.Viper().GetStringSlice("console.origin_patterns"),
			Registerer:     metrics,
		}),
		audit.New(),
	}
	for _, p := range modules {
		if err := reg.Register(p); err != nil {
			a.close()
			return nil, err
		}
		info := p.Info()
		if cfg.Enabled(info.Name) {
			continue
		}
		if info.Required {
			logger.Warn("required module cannot be disabled", zap.String("module", info.Name))
			continue
		}
		reg.Disable(info.Name, "disabled by configuration")
	}
	if err := reg.Validate(); err != nil {
		a.close()
		return nil, err
	}
	err = reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config: cfg.Sub("plugins." + name).Viper(),
			Logger: logger.Named(name),
			Bus:    bus,
			Store:  db,
		}
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.registry = reg

	addr := net.JoinHostPort(cfg.GetString("server.host"), cfg.GetString("server.port"))
	a.server = server.New(addr, reg, logger, metrics)
	return a, nil
}

// run starts the modules, serves on ln until ctx ends and then shuts down:
// HTTP first, then modules (which closes open consoles), then the store.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	if err := a.registry.StartAll(ctx); err != nil {
		a.close()
		return err
	}
	a.logger.Info("LabTrack ready",
		zap.String("addr", ln.Addr().String()),
		zap.String("backend", a.cfg.GetString("api.base_url")),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Serve(ln) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GetDuration("server.shutdown_timeout"))
		defer cancel()
		err := a.server.Shutdown(shutdownCtx)
		a.registry.StopAll(shutdownCtx)
		return err
	})
	err := g.Wait()
	a.close()
	a.logger.Info("LabTrack stopped")
	return err
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("close store", zap.Error(err))
	}
}
