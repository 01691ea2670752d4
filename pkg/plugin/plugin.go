// Package plugin defines the contract between the LabTrack server shell and
// the modules it hosts.
package plugin

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// API versions a module may declare. The registry rejects modules outside
// [APIVersionMin, APIVersionCurrent].
const (
	APIVersionMin     = 1
	APIVersionCurrent = 1
)

// PluginInfo describes a module to the registry.
type PluginInfo struct {
	Name        string
	Version     string
	Description string
	// Dependencies are module names that must be initialized first.
	Dependencies []string
	// Required modules abort startup when they cannot be initialized.
	// Optional ones are disabled instead.
	Required   bool
	APIVersion int
}

// Plugin defines the interface that all LabTrack modules must implement.
type Plugin interface {
	// Info returns the module's static metadata.
	Info() PluginInfo

	// Init wires the module to its dependencies.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins the module's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the module.
	Stop(ctx context.Context) error
}

// Route represents an HTTP route exposed by a module. Path is relative to
// the module's mount point unless Root is set.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	// Root mounts Path as-is instead of under /api/v1/{module}.
	Root bool
}

// HTTPProvider is implemented by modules that expose HTTP routes.
type HTTPProvider interface {
	Routes() []Route
}

// Dependencies are handed to each module at Init. Config is the module's
// own subtree ("plugins.<name>"), never nil.
type Dependencies struct {
	Config *viper.Viper
	Logger *zap.Logger
	Bus    EventBus
	Store  Store
}

// Event is a message published on the in-process bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// EventHandler receives published events.
type EventHandler func(ctx context.Context, event Event)

// EventBus fans events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event)
	Subscribe(topic string, handler EventHandler) (unsubscribe func())
	SubscribeAll(handler EventHandler) (unsubscribe func())
}

// Migration is a single schema step owned by a module.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the shared persistence handle.
type Store interface {
	DB() *sql.DB
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Migrate(ctx context.Context, pluginName string, migrations []Migration) error
}
