// Package audit records every console action that reaches the inventory
// backend and serves the trail at /api/v1/audit.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/console"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

// Topics recorded by the module.
var Topics = []string{
	console.TopicMachineCreated,
	console.TopicMachineUpdated,
	console.TopicMachineDeleted,
	console.TopicMachineHealthChecked,
}

// Module implements the audit trail.
type Module struct {
	logger       *zap.Logger
	repo         Repository
	unsubscribe  []func()
	now          func() time.Time
	newID        func() string
	defaultLimit int
}

// Option configures a Module.
type Option func(*Module)

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Module) { m.now = now }
}

// WithIDs overrides entry id generation.
func WithIDs(newID func() string) Option {
	return func(m *Module) { m.newID = newID }
}

// New creates the audit module.
func New(opts ...Option) *Module {
	m := &Module{
		now:          time.Now,
		newID:        uuid.NewString,
		defaultLimit: DefaultLimit,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "audit",
		Version:     "0.1.0",
		Description: "Audit trail of console actions",
		Dependencies: []string{
			"console",
		},
		APIVersion: plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if deps.Store == nil {
		return errors.New("audit requires a store")
	}
	repo, err := NewSQLiteRepository(ctx, deps.Store)
	if err != nil {
		return err
	}
	m.repo = repo

	if deps.Config != nil {
		if n := deps.Config.GetInt("default_limit"); n > 0 {
			m.defaultLimit = min(n, MaxLimit)
		}
	}
	if deps.Bus != nil {
		for _, topic := range Topics {
			m.unsubscribe = append(m.unsubscribe, deps.Bus.Subscribe(topic, m.handleEvent))
		}
	}
	m.logger.Info("audit module initialized", zap.Int("topics", len(Topics)))
	return nil
}

func (m *Module) Start(_ context.Context) error {
	m.logger.Info("audit module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	for _, u := range m.unsubscribe {
		u()
	}
	m.unsubscribe = nil
	m.logger.Info("audit module stopped")
	return nil
}

// Repository exposes the entry store.
func (m *Module) Repository() Repository { return m.repo }

func (m *Module) handleEvent(ctx context.Context, ev plugin.Event) {
	var a console.ActionEvent
	switch p := ev.Payload.(type) {
	case console.ActionEvent:
		a = p
	case *console.ActionEvent:
		if p == nil {
			return
		}
		a = *p
	default:
		m.logger.Warn("unexpected audit payload",
			zap.String("topic", ev.Topic),
			zap.String("type", fmt.Sprintf("%T", ev.Payload)),
		)
		return
	}

	created := ev.Timestamp
	if created.IsZero() {
		created = m.now()
	}
	e := Entry{
		ID:        m.newID(),
		SessionID: a.SessionID,
		Topic:     ev.Topic,
		Action:    a.Action,
		MachineID: a.MachineID,
		MachineIP: a.MachineIP,
		Outcome:   a.Outcome,
		Detail:    a.Detail,
		CreatedAt: created.UTC(),
	}
	if err := m.repo.Insert(ctx, e); err != nil {
		m.logger.Error("record audit entry", zap.String("topic", ev.Topic), zap.Error(err))
	}
}
