package state

import (
	"slices"

	"github.com/HerbHall/labtrack/pkg/models"
)

// Partial replaces top-level fields of State as a whole. A list of partials
// is a depth-1 merge: fields not mentioned are preserved.
type Partial func(*State)

// Machines replaces the current page. The slice is copied.
func Machines(ms []models.Machine) Partial {
	cp := slices.Clone(ms)
	if cp == nil {
		cp = []models.Machine{}
	}
	return func(s *State) { s.Machines = cp }
}

// ReplaceMachine swaps the machine with the same id for m. It is a
// replacement of the Machines field computed from the state it is merged
// into; other entries keep their order.
func ReplaceMachine(m models.Machine) Partial {
	return func(s *State) {
		next := slices.Clone(s.Machines)
		for i := range next {
			if next[i].ID == m.ID {
				next[i] = m
			}
		}
		s.Machines = next
	}
}

func Total(n int) Partial    { return func(s *State) { s.Total = n } }
func Page(n int) Partial     { return func(s *State) { s.Page = n } }
func PageSize(n int) Partial { return func(s *State) { s.PageSize = n } }
func Pages(n int) Partial    { return func(s *State) { s.Pages = n } }
func Loading(b bool) Partial { return func(s *State) { s.Loading = b } }

// Error sets the request error message; "" clears it.
func Error(msg string) Partial { return func(s *State) { s.Error = msg } }

// WithFilters replaces the filters as a whole.
func WithFilters(f Filters) Partial { return func(s *State) { s.Filters = f } }

// EditCell puts one cell into inline-edit mode with buffer as its pending
// value. Both editing fields are set together.
func EditCell(id string, field EditField, buffer string) Partial {
	return func(s *State) {
		s.EditingCellID = id
		s.EditingField = field
		s.EditBuffer = buffer
	}
}

// EditBuffer replaces the pending inline-edit value.
func EditBuffer(v string) Partial { return func(s *State) { s.EditBuffer = v } }

// ClearEditing leaves inline-edit mode.
func ClearEditing() Partial {
	return func(s *State) {
		s.EditingCellID = ""
		s.EditingField = ""
		s.EditBuffer = ""
	}
}

func AutoRefresh(on bool) Partial { return func(s *State) { s.AutoRefresh = on } }
