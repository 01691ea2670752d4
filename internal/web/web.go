// Package web serves the console page and connects each browser tab to its
// own console session over a websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/labtrack/internal/console"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/server"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

//go:embed assets
var assetFS embed.FS

// Defaults for Options.
const (
	DefaultMaxSessions = 100
	DefaultIntentRate  = 20
	DefaultIntentBurst = 40
)

// Options configures the console module.
type Options struct {
	Backend console.Backend
	// Session is the template for every session; Bus and Logger are filled
	// in at Init.
	Session     console.Options
	MaxSessions int
	// ConnectRate caps websocket upgrades per second; zero is unlimited.
	ConnectRate float64
	// IntentRate and IntentBurst bound intents per connection.
	IntentRate  float64
	IntentBurst int
	// OriginPatterns are extra hosts allowed to open the websocket.
	OriginPatterns []string
	Registerer     prometheus.Registerer
}

// Module is the "console" module.
type Module struct {
	opts    Options
	logger  *zap.Logger
	metrics *metrics
	connect *rate.Limiter
	static  http.Handler
	index   []byte

	ctx    context.Context
	cancel context.CancelFunc
	active atomic.Int32
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients map[string]*client
}

// New creates the console module.
func New(opts Options) *Module {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IntentRate <= 0 {
		opts.IntentRate = DefaultIntentRate
	}
	if opts.IntentBurst <= 0 {
		opts.IntentBurst = DefaultIntentBurst
	}
	connect := rate.NewLimiter(rate.Inf, 0)
	if opts.ConnectRate > 0 {
		connect = rate.NewLimiter(rate.Limit(opts.ConnectRate), max(1, int(opts.ConnectRate)))
	}

	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	index, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		panic(err)
	}

	m := &Module{
		opts:    opts,
		logger:  zap.NewNop(),
		metrics: newMetrics(opts.Registerer),
		connect: connect,
		static:  http.StripPrefix("/static/", http.FileServerFS(sub)),
		index:   index,
		clients: make(map[string]*client),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "console",
		Version:     "0.1.0",
		Description: "Browser console for the machine inventory",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	if deps.Logger != nil {
		m.logger = deps.Logger
	}
	if m.opts.Session.Bus == nil {
		m.opts.Session.Bus = deps.Bus
	}
	m.opts.Session.Logger = m.logger
	if m.opts.Session.Renderer == nil {
		m.opts.Session.Renderer = render.New()
	}
	m.logger.Info("console module initialized", zap.Int("max_sessions", m.opts.MaxSessions))
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("console module started")
	return nil
}

// Stop closes every open session and waits for their connections to end.
func (m *Module) Stop(_ context.Context) error {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("console module stopped")
	return nil
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/{$}", Handler: m.handleIndex, Root: true},
		{Method: "GET", Path: "/static/", Handler: m.static.ServeHTTP, Root: true},
		{Method: "GET", Path: "/ws", Handler: m.handleWS, Root: true},
		{Method: "GET", Path: "/sessions", Handler: m.handleSessions},
	}
}

func (m *Module) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(m.index)
}

func (m *Module) handleWS(w http.ResponseWriter, r *http.Request) {
	if m.ctx.Err() != nil {
		server.Unavailable(w, "console is shutting down", r.URL.Path)
		return
	}
	if !m.connect.Allow() {
		m.metrics.rejected.WithLabelValues(rejectRate).Inc()
		server.RateLimited(w, "too many console connections, retry shortly", r.URL.Path)
		return
	}
	if n := m.active.Add(1); int(n) > m.opts.MaxSessions {
		m.active.Add(-1)
		m.metrics.rejected.WithLabelValues(rejectCapacity).Inc()
		server.Unavailable(w, "console session limit reached", r.URL.Path)
		return
	}
	defer m.active.Add(-1)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: m.opts.OriginPatterns})
	if err != nil {
		m.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxIntentBytes)

	m.wg.Add(1)
	defer m.wg.Done()
	m.serve(conn, r.RemoteAddr)
}

// serve runs one session for the lifetime of conn.
func (m *Module) serve(conn *websocket.Conn, remote string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Shutdown says goodbye with a close frame; the read loop then ends.
	stop := context.AfterFunc(m.ctx, func() {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	})
	defer stop()

	c := &client{
		conn:      conn,
		doc:       render.NewDocument(),
		out:       make(chan []render.Patch, outboxSize),
		resync:    make(chan struct{}, 1),
		limiter:   rate.NewLimiter(rate.Limit(m.opts.IntentRate), m.opts.IntentBurst),
		metrics:   m.metrics,
		remote:    remote,
		connected: time.Now().UTC(),
	}
	c.session = console.NewSession(m.opts.Backend, render.Tee{c.doc, c}, m.opts.Session)
	c.logger = m.logger.With(zap.String("session", c.session.ID()), zap.String("remote", remote))

	m.track(c)
	defer m.untrack(c)

	c.logger.Info("console session opened")
	c.session.Start(ctx)
	err := c.run(ctx)
	c.session.Close()

	code, reason := closeStatus(m.ctx, err)
	_ = conn.Close(code, reason)
	c.logger.Info("console session closed", zap.Int("status", int(code)), zap.Error(err))
}

func (m *Module) track(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.session.ID()] = c
	m.metrics.sessions.Set(float64(len(m.clients)))
}

func (m *Module) untrack(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, c.session.ID())
	m.metrics.sessions.Set(float64(len(m.clients)))
}

type sessionView struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

// handleSessions lists open console sessions, oldest first.
func (m *Module) handleSessions(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	views := make([]sessionView, 0, len(m.clients))
	for id, c := range m.clients {
		views = append(views, sessionView{ID: id, Remote: c.remote, ConnectedAt: c.connected})
	}
	m.mu.Unlock()
	sort.Slice(views, func(i, j int) bool { return views[i].ConnectedAt.Before(views[j].ConnectedAt) })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}
