// Package state holds the per-session console state and the Store that
// publishes changes to it.
package state

import (
	"slices"
	"sync"

	"github.com/HerbHall/labtrack/pkg/models"
)

// DefaultPageSize is the page size a fresh session requests.
const DefaultPageSize = 50

// EditField names a cell that can be edited in place.
type EditField string

const (
	EditStatus     EditField = "status"
	EditAllottedTo EditField = "allotted_to"
)

// Inline reports whether f is in the inline-edit set.
func (f EditField) Inline() bool {
	return f == EditStatus || f == EditAllottedTo
}

// Filters are the list filters. They are always replaced as a whole.
type Filters struct {
	Search      string `json:"search"`
	Status      string `json:"status"`
	UsedFor     string `json:"used_for"`
	MachineType string `json:"machine_type"`
}

// State is a console session's view of the world. Machines holds the
// current page only.
type State struct {
	Machines []models.Machine
	Total    int
	Page     int
	PageSize int
	Pages    int
	Loading  bool
	Error    string
	Filters  Filters

	// EditingCellID and EditingField are both empty or both set.
	EditingCellID string
	EditingField  EditField
	// EditBuffer is the pending value of the cell being edited.
	EditBuffer string

	AutoRefresh bool
}

// Initial returns the state of a freshly opened session.
func Initial() State {
	return State{
		Machines: []models.Machine{},
		Page:     1,
		PageSize: DefaultPageSize,
		Pages:    1,
	}
}

// Editing reports whether the given cell is the one being edited.
func (s State) Editing(id string, field EditField) bool {
	return s.EditingCellID != "" && s.EditingCellID == id && s.EditingField == field
}

// Machine returns the machine with id from the current page.
func (s State) Machine(id string) (models.Machine, bool) {
	for _, m := range s.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return models.Machine{}, false
}

// Listener is notified with the full state after every Set.
type Listener func(State)

type listener struct {
	id     uint64
	fn     Listener
	active bool
}

// Store is a mutable state cell with subscribe/notify semantics.
type Store struct {
	mu        sync.Mutex
	state     State
	nextID    uint64
	listeners []*listener
}

// NewStore creates a Store holding initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Get returns the current snapshot. Callers must not mutate it in place.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set applies partials in order over the current state, then notifies every
// subscriber, in subscription order, with the resulting state. Listeners run
// outside the lock and may call Get, Set or unsubscribe.
func (s *Store) Set(partials ...Partial) {
	s.mu.Lock()
	next := s.state
	for _, p := range partials {
		p(&next)
	}
	s.state = next
	pass := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range pass {
		s.mu.Lock()
		active := l.active
		s.mu.Unlock()
		if active {
			l.fn(next)
		}
	}
}

// Subscribe registers fn and returns a function that removes it. A listener
// removed during a notification pass is not invoked if it has not run yet.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l := &listener{id: s.nextID, fn: fn, active: true}
	s.listeners = append(s.listeners, l)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		l.active = false
		s.listeners = slices.DeleteFunc(s.listeners, func(x *listener) bool { return x.id == l.id })
	}
}
