// Package console implements a machine inventory console session: the state
// store, the backend calls and the rendering of one browser tab.
package console

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/apiclient"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/state"
	"github.com/HerbHall/labtrack/pkg/models"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

// Default timings.
const (
	DefaultSearchDebounce      = 300 * time.Millisecond
	DefaultAutoRefreshInterval = 30 * time.Second
	DefaultToastTTL            = 4 * time.Second
)

// Backend is the machine inventory API a session talks to.
type Backend interface {
	List(ctx context.Context, p apiclient.ListParams) (*models.MachineList, error)
	Get(ctx context.Context, id string) (*models.Machine, error)
	Create(ctx context.Context, in models.MachineCreate) (*models.Machine, error)
	Update(ctx context.Context, id string, patch models.MachineUpdate) (*models.Machine, error)
	Delete(ctx context.Context, id string) error
	HealthCheck(ctx context.Context, id string) (*models.HealthCheckResult, error)
}

var _ Backend = (*apiclient.Client)(nil)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	PageSize            int
	SearchDebounce      time.Duration
	AutoRefreshInterval time.Duration
	ToastTTL            time.Duration

	// Executor overrides the session's own Loop.
	Executor Executor
	Renderer *render.Renderer
	Logger   *zap.Logger
	// Bus receives an ActionEvent for every backend-reaching action.
	Bus plugin.EventBus
	// NewID generates session, toast and confirm token ids.
	NewID func() string
}

func (o *Options) defaults() {
	if o.PageSize <= 0 {
		o.PageSize = state.DefaultPageSize
	}
	if o.SearchDebounce <= 0 {
		o.SearchDebounce = DefaultSearchDebounce
	}
	if o.AutoRefreshInterval <= 0 {
		o.AutoRefreshInterval = DefaultAutoRefreshInterval
	}
	if o.ToastTTL <= 0 {
		o.ToastTTL = DefaultToastTTL
	}
	if o.Renderer == nil {
		o.Renderer = render.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
}

type pendingConfirm struct {
	token   string
	resolve func(bool)
}

// Session is the console of one browser tab. Every field below exec is
// owned by the loop.
type Session struct {
	id      string
	store   *state.Store
	api     Backend
	surface render.Surface
	r       *render.Renderer
	logger  *zap.Logger
	bus     plugin.EventBus
	opts    Options

	exec   Executor
	loop   *Loop
	ctx    context.Context
	cancel context.CancelFunc

	modal    render.ModalView
	modalSeq uint64
	confirm  *pendingConfirm

	searchTimer *time.Timer
	searchSeq   uint64

	autoStop func()
	autoSeq  uint64
	// tickers counts running auto-refresh goroutines.
	tickers atomic.Int32
}

// NewSession creates a session that renders to surface. Call Start to
// bootstrap it.
func NewSession(api Backend, surface render.Surface, opts Options) *Session {
	opts.defaults()
	s := &Session{
		id:      opts.NewID(),
		api:     api,
		surface: surface,
		r:       opts.Renderer,
		bus:     opts.Bus,
		opts:    opts,
		exec:    opts.Executor,
	}
	initial := state.Initial()
	initial.PageSize = opts.PageSize
	s.store = state.NewStore(initial)
	s.logger = opts.Logger.Named("console").With(zap.String("session", s.id))
	if s.exec == nil {
		s.loop = NewLoop(64)
		s.exec = s.loop
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Store exposes the session state for inspection.
func (s *Session) Store() *state.Store { return s.store }

// Start runs the loop (when the session owns one) and performs the initial
// render and load. Cancelling ctx ends the session.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if s.loop != nil {
		go s.loop.Run(s.ctx)
	}
	s.exec.Post(s.bootstrap)
}

func (s *Session) bootstrap() {
	st := s.store.Get()
	s.apply(s.r.Filters(st.Filters), s.r.Stats(st), s.r.Pagination(st))
	s.apply(s.r.Modal(s.modal)...)
	s.apply(s.r.Confirm(render.ConfirmView{})...)
	s.loadMachines()
}

// Close stops the auto-refresh ticker and the loop. In-flight backend calls
// are cancelled and their results dropped.
func (s *Session) Close() {
	s.cancel()
	if s.loop != nil {
		s.loop.Close()
	}
}

func (s *Session) apply(patches ...render.Patch) {
	s.surface.Apply(patches...)
}

// call runs fn off the loop and hands its result to then on the loop.
func call[T any](s *Session, fn func(context.Context) (T, error), then func(T, error)) {
	s.exec.Go(func() {
		v, err := fn(s.ctx)
		s.exec.Post(func() {
			if s.ctx.Err() != nil {
				return
			}
			then(v, err)
		})
	})
}

// loadMachines fetches the current page with the current filters. Each
// response is applied in arrival order.
func (s *Session) loadMachines() {
	st := s.store.Get()
	params := apiclient.ListParams{
		Search:      st.Filters.Search,
		Status:      st.Filters.Status,
		UsedFor:     st.Filters.UsedFor,
		MachineType: st.Filters.MachineType,
		Page:        st.Page,
		PageSize:    st.PageSize,
	}

	s.store.Set(state.Loading(true), state.Error(""))
	s.apply(s.r.Table(s.store.Get()))

	call(s, func(ctx context.Context) (*models.MachineList, error) {
		return s.api.List(ctx, params)
	}, func(list *models.MachineList, err error) {
		if err != nil {
			s.logger.Warn("list machines failed", zap.Error(err))
			s.store.Set(state.Loading(false), state.Error(detailOr(err, "Failed to connect to backend.")))
		} else {
			s.store.Set(
				state.Machines(list.Items),
				state.Total(list.Total),
				state.Pages(list.Pages),
				state.Loading(false),
			)
		}
		st := s.store.Get()
		s.apply(s.r.Table(st), s.r.Stats(st), s.r.Pagination(st))
	})
}

// toast shows a message and schedules its removal.
func (s *Session) toast(msg string, kind render.ToastKind) {
	t := render.Toast{ID: s.opts.NewID(), Message: msg, Kind: kind}
	s.apply(s.r.Toast(t))
	time.AfterFunc(s.opts.ToastTTL, func() {
		s.exec.Post(func() { s.apply(render.DismissToast(t)) })
	})
}

// Notify shows a toast. It may be called from any goroutine.
func (s *Session) Notify(msg string, kind render.ToastKind) {
	s.exec.Post(func() { s.toast(msg, kind) })
}

// ask opens the confirm dialog. resolve runs exactly once, with false when
// the dialog is cancelled, closed or superseded by another ask.
func (s *Session) ask(msg string, resolve func(bool)) {
	if prev := s.confirm; prev != nil {
		s.confirm = nil
		prev.resolve(false)
	}
	p := &pendingConfirm{token: s.opts.NewID(), resolve: resolve}
	s.confirm = p
	s.apply(s.r.Confirm(render.ConfirmView{Open: true, Message: msg, Token: p.token})...)
}

func (s *Session) handleConfirm(in Intent) {
	p := s.confirm
	if p == nil || in.Token != p.token {
		s.logger.Debug("stale confirm ignored", zap.String("token", in.Token))
		return
	}
	s.confirm = nil
	s.apply(s.r.Confirm(render.ConfirmView{})...)
	p.resolve(in.Action == ActionConfirmOK)
}

func (s *Session) publish(topic string, ev ActionEvent) {
	if s.bus == nil {
		return
	}
	ev.SessionID = s.id
	s.bus.PublishAsync(context.WithoutCancel(s.ctx), plugin.Event{
		Topic:     topic,
		Source:    "console",
		Timestamp: time.Now().UTC(),
		Payload:   ev,
	})
}

func outcome(err error) (string, string) {
	if err == nil {
		return OutcomeOK, ""
	}
	if d := apiclient.Detail(err); d != "" {
		return OutcomeError, d
	}
	return OutcomeError, err.Error()
}

// detailOr returns the backend's error detail, or fallback when there is
// none.
func detailOr(err error, fallback string) string {
	if d := apiclient.Detail(err); d != "" {
		return d
	}
	return fallback
}

// machineLabel is the IP of id on the current page, or id itself.
func (s *Session) machineLabel(id string) string {
	if m, ok := s.store.Get().Machine(id); ok && m.MachineIP != "" {
		return m.MachineIP
	}
	return id
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}
