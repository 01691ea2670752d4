// Package render maps console state to DOM patches. Every function is pure:
// it reads the values it is given and returns patches, never touching the
// backend or the state store.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/HerbHall/labtrack/internal/state"
	"github.com/HerbHall/labtrack/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// tableColumns is the column count of the machine table.
const tableColumns = 11

// ModalFocusID is focused when the modal opens.
const ModalFocusID = "f-ip"

// Renderer turns state into patches.
type Renderer struct {
	tmpl *template.Template
	loc  *time.Location
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLocation sets the zone timestamps are displayed in. The default is
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// New parses the embedded templates.
func New(opts ...Option) *Renderer {
	r := &Renderer{loc: time.Local}
	for _, o := range opts {
		o(r)
	}
	r.tmpl = template.Must(template.New("console").ParseFS(templateFS, "templates/*.html"))
	return r
}

// exec renders a named template. The templates are fixed and their inputs
// are typed, so a failure is a programming error.
func (r *Renderer) exec(name string, data any) string {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		panic("render: " + name + ": " + err.Error())
	}
	return buf.String()
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

func options[T ~string](values []T, selected string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: string(v), Label: string(v), Selected: string(v) == selected})
	}
	return out
}

type rowView struct {
	M             models.Machine
	EditStatus    bool
	EditAllotted  bool
	Buffer        string
	ControlID     string
	StatusOptions []option
	Allotted      string
	Build         string
	LastChecked   string
}

type tableView struct {
	Columns int
	Loading bool
	Error   string
	Rows    []rowView
}

// ControlID is the element id of the inline editor for a cell.
func ControlID(id string, field state.EditField) string {
	return "edit-" + id + "-" + string(field)
}

// Table renders the machine table body. Loading, error and empty states
// each render a single placeholder row.
func (r *Renderer) Table(s state.State) Patch {
	v := tableView{Columns: tableColumns, Loading: s.Loading, Error: s.Error}
	for _, m := range s.Machines {
		row := rowView{
			M:            m,
			EditStatus:   s.Editing(m.ID, state.EditStatus),
			EditAllotted: s.Editing(m.ID, state.EditAllottedTo),
			Allotted:     models.Deref(m.AllottedTo),
			Build:        models.Deref(m.CurrentBuild),
			LastChecked:  DateTime(m.LastCheckedAt, r.loc),
		}
		if row.EditStatus || row.EditAllotted {
			row.Buffer = s.EditBuffer
			row.ControlID = ControlID(m.ID, s.EditingField)
		}
		if row.EditStatus {
			row.StatusOptions = options(models.Statuses, s.EditBuffer)
		}
		v.Rows = append(v.Rows, row)
	}
	return Patch{Op: OpHTML, Target: RegionTable, HTML: r.exec("table", v)}
}

type pill struct {
	Label string
	Badge string
	Count int
}

// Stats renders one pill per status with a non-zero count on the current
// page, in fixed order, then the server-reported total.
func (r *Renderer) Stats(s state.State) Patch {
	counts := make(map[models.Status]int)
	for _, m := range s.Machines {
		counts[m.Status]++
	}
	var pills []pill
	for _, st := range models.Statuses {
		if n := counts[st]; n > 0 {
			pills = append(pills, pill{Label: string(st), Badge: st.Badge(), Count: n})
		}
	}
	data := struct {
		Pills []pill
		Total int
	}{pills, s.Total}
	return Patch{Op: OpHTML, Target: RegionStats, HTML: r.exec("stats", data)}
}

// Pagination renders the page controls, or nothing when there is at most
// one page.
func (r *Renderer) Pagination(s state.State) Patch {
	data := struct {
		Page, Pages, Total int
		Prev, Next         int
		HasPrev, HasNext   bool
	}{
		Page: s.Page, Pages: s.Pages, Total: s.Total,
		Prev: s.Page - 1, Next: s.Page + 1,
		HasPrev: s.Page > 1, HasNext: s.Page < s.Pages,
	}
	return Patch{Op: OpHTML, Target: RegionPagination, HTML: r.exec("pagination", data)}
}

type filterSelect struct {
	ID      string
	Action  string
	All     string
	Options []option
}

// Filters renders the filter bar with controls set to f.
func (r *Renderer) Filters(f state.Filters) Patch {
	data := struct {
		Search                       string
		Status, UsedFor, MachineType filterSelect
	}{
		Search:      f.Search,
		Status:      filterSelect{"filter-status", "filter-status", "All statuses", options(models.Statuses, f.Status)},
		UsedFor:     filterSelect{"filter-used-for", "filter-used-for", "All usage", options(models.UsageTypes, f.UsedFor)},
		MachineType: filterSelect{"filter-type", "filter-type", "All types", options(models.MachineTypes, f.MachineType)},
	}
	return Patch{Op: OpHTML, Target: RegionFilters, HTML: r.exec("filters", data)}
}

type formField struct {
	Label   string
	ID      string
	Name    string
	ErrID   string
	Error   string
	Value   string
	Options []option
}

func newField(label, name, value string, errs map[string]string) formField {
	return formField{
		Label: label,
		ID:    InputID(name),
		Name:  name,
		ErrID: strings.ReplaceAll(name, "_", "-"),
		Error: errs[name],
		Value: value,
	}
}

func selectField[T ~string](label, name, value string, values []T, errs map[string]string) formField {
	f := newField(label, name, value, errs)
	f.Options = options(values, value)
	return f
}

// Modal renders the machine form and shows or hides its overlay.
func (r *Renderer) Modal(v ModalView) []Patch {
	if !v.Open {
		return []Patch{{Op: OpHide, Target: ModalOverlay}}
	}
	errs := v.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	v.Errors = errs
	data := struct {
		ModalView
		MachineType, Status, UsedFor          formField
		AllottedTo, CurrentBuild, CustomerName formField
	}{
		ModalView:    v,
		MachineType:  selectField("Machine Type", FieldMachineType, v.Values.MachineType, models.MachineTypes, errs),
		Status:       selectField("Status", FieldStatus, v.Values.Status, models.Statuses, errs),
		UsedFor:      selectField("Used For", FieldUsedFor, v.Values.UsedFor, models.UsageTypes, errs),
		AllottedTo:   newField("Allotted To", FieldAllottedTo, v.Values.AllottedTo, errs),
		CurrentBuild: newField("Current Build", FieldCurrentBuild, v.Values.CurrentBuild, errs),
		CustomerName: newField("Customer Name", FieldCustomerName, v.Values.CustomerName, errs),
	}
	return []Patch{
		{Op: OpHTML, Target: RegionModal, HTML: r.exec("modal", data)},
		{Op: OpShow, Target: ModalOverlay},
	}
}

// Confirm renders the confirm dialog and shows or hides its overlay.
func (r *Renderer) Confirm(v ConfirmView) []Patch {
	if !v.Open {
		return []Patch{{Op: OpHide, Target: ConfirmOverlay}}
	}
	return []Patch{
		{Op: OpHTML, Target: RegionConfirm, HTML: r.exec("confirm", v)},
		{Op: OpShow, Target: ConfirmOverlay},
	}
}

// Toast appends a toast node.
func (r *Renderer) Toast(t Toast) Patch {
	return Patch{Op: OpAppend, Target: RegionToasts, ID: t.ElementID(), HTML: r.exec("toast", t)}
}

// DismissToast removes a toast node.
func DismissToast(t Toast) Patch {
	return Patch{Op: OpRemove, Target: t.ElementID()}
}

// Focus focuses an element.
func Focus(id string) Patch {
	return Patch{Op: OpFocus, Target: id}
}
