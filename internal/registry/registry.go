// Package registry orders LabTrack modules by their dependencies and drives
// their lifecycle.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/pkg/plugin"
)

// Registry manages the lifecycle of all registered modules.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	order    []string // registration order until Validate, then init order
	disabled map[string]string
	started  []string
	logger   *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		plugins:  make(map[string]plugin.Plugin),
		disabled: make(map[string]string),
		logger:   logger,
	}
}

// Register adds a module. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	info := p.Info()
	if info.Name == "" {
		return errors.New("plugin name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[info.Name]; exists {
		return fmt.Errorf("plugin %q already registered", info.Name)
	}
	r.plugins[info.Name] = p
	r.order = append(r.order, info.Name)
	r.logger.Info("plugin registered",
		zap.String("name", info.Name),
		zap.String("version", info.Version),
	)
	return nil
}

// Disable marks a module as disabled before Validate runs, e.g. when its
// configuration turns it off. Modules depending on it are disabled too.
func (r *Registry) Disable(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[name]; ok {
		r.disabled[name] = reason
	}
}

// IsDisabled reports whether name was disabled by configuration,
// validation or a failed Init.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.disabled[name]
	return ok
}

// Validate checks API versions and dependencies, disables optional modules
// that cannot run and computes the init order. A required module that cannot
// run, or a dependency cycle, is an error.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		info := r.plugins[name].Info()
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			reason := fmt.Sprintf("api version %d outside supported range [%d, %d]",
				info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
			if info.Required {
				return fmt.Errorf("plugin %q: %s", name, reason)
			}
			r.disable(name, reason)
		}
	}

	for _, name := range r.order {
		info := r.plugins[name].Info()
		for _, dep := range info.Dependencies {
			if _, ok := r.plugins[dep]; ok {
				continue
			}
			if info.Required {
				return fmt.Errorf("plugin %q requires missing plugin %q", name, dep)
			}
			r.disable(name, fmt.Sprintf("missing dependency %q", dep))
		}
	}

	order, err := r.topoSort()
	if err != nil {
		return err
	}
	r.order = order

	// Dependencies come first in order, so one pass propagates.
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		info := r.plugins[name].Info()
		for _, dep := range info.Dependencies {
			if _, off := r.disabled[dep]; !off {
				continue
			}
			if info.Required {
				return fmt.Errorf("plugin %q requires disabled plugin %q", name, dep)
			}
			r.disable(name, fmt.Sprintf("dependency %q disabled", dep))
			break
		}
	}
	return nil
}

// topoSort orders modules so that every module follows its dependencies.
// Ties keep registration order.
func (r *Registry) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(r.order))
	dependents := make(map[string][]string, len(r.order))
	pos := make(map[string]int, len(r.order))
	for i, name := range r.order {
		pos[name] = i
		indegree[name] += 0
		for _, dep := range r.plugins[name].Info().Dependencies {
			if _, ok := r.plugins[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for _, name := range r.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	out := make([]string, 0, len(r.order))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)
		for _, d := range dependents[name] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.SliceStable(ready, func(i, j int) bool { return pos[ready[i]] < pos[ready[j]] })
	}

	if len(out) != len(r.order) {
		var cycle []string
		for _, name := range r.order {
			if indegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}
		return nil, fmt.Errorf("dependency cycle among plugins %v", cycle)
	}
	return out, nil
}

// disable must be called with mu held.
func (r *Registry) disable(name, reason string) {
	if _, already := r.disabled[name]; already {
		return
	}
	r.disabled[name] = reason
	r.logger.Warn("plugin disabled", zap.String("name", name), zap.String("reason", reason))
}

// InitAll initializes every enabled module in dependency order. deps builds
// the dependencies handed to each module. A failing optional module is
// disabled along with everything that depends on it.
func (r *Registry) InitAll(ctx context.Context, deps func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			r.logger.Info("plugin disabled, skipping", zap.String("name", name))
			continue
		}
		p := r.plugins[name]
		info := p.Info()

		if dep, off := r.disabledDep(info); off {
			if info.Required {
				return fmt.Errorf("plugin %q requires disabled plugin %q", name, dep)
			}
			r.disable(name, fmt.Sprintf("dependency %q disabled", dep))
			continue
		}

		r.logger.Info("initializing plugin", zap.String("name", name))
		if err := p.Init(ctx, deps(name)); err != nil {
			if info.Required {
				return fmt.Errorf("failed to initialize plugin %q: %w", name, err)
			}
			r.disable(name, "init failed: "+err.Error())
		}
	}
	return nil
}

func (r *Registry) disabledDep(info plugin.PluginInfo) (string, bool) {
	for _, dep := range info.Dependencies {
		if _, off := r.disabled[dep]; off {
			return dep, true
		}
	}
	return "", false
}

// StartAll starts every enabled module in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		r.logger.Info("starting plugin", zap.String("name", name))
		if err := r.plugins[name].Start(ctx); err != nil {
			return fmt.Errorf("failed to start plugin %q: %w", name, err)
		}
		r.started = append(r.started, name)
	}
	return nil
}

// StopAll stops started modules in reverse start order. Errors are logged.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.started) - 1; i >= 0; i-- {
		name := r.started[i]
		r.logger.Info("stopping plugin", zap.String("name", name))
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Error("failed to stop plugin", zap.String("name", name), zap.Error(err))
		}
	}
	r.started = nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// All returns every registered module, in init order once validated.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.plugins[name])
	}
	return result
}

// AllRoutes returns the routes of enabled modules that implement
// plugin.HTTPProvider, keyed by module name.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]plugin.Route)
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		if hp, ok := r.plugins[name].(plugin.HTTPProvider); ok {
			routes[name] = hp.Routes()
		}
	}
	return routes
}
