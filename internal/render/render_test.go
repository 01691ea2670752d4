package render

import (
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/labtrack/internal/state"
	"github.com/HerbHall/labtrack/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func machine(id, ip string, st models.Status) models.Machine {
	return models.Machine{
		ID:           id,
		MachineIP:    ip,
		MachineType:  models.MachineTypeBryck,
		Status:       st,
		HealthStatus: models.HealthUnknown,
		UsedFor:      models.UsageIdle,
	}
}

func withMachines(ms ...models.Machine) state.State {
	s := state.Initial()
	s.Machines = ms
	s.Total = len(ms)
	return s
}

func TestTable_EscapesMachineData(t *testing.T) {
	m := machine("m1", "<script>alert(1)</script>", models.StatusActive)
	m.AllottedTo = ptr(`"qa" & <ops>`)
	r := New(WithLocation(time.UTC))

	got := r.Table(withMachines(m)).HTML

	if strings.Contains(got, "<script>") {
		t.Fatalf("table contains raw <script>: %s", got)
	}
	if !strings.Contains(got, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Errorf("IP not escaped: %s", got)
	}
	if !strings.Contains(got, "&lt;ops&gt;") || strings.Contains(got, "<ops>") {
		t.Errorf("allotted_to not escaped: %s", got)
	}
}

func TestTable_Placeholders(t *testing.T) {
	r := New()
	tests := []struct {
		name  string
		state state.State
		want  string
	}{
		{"empty", withMachines(), "No machines found."},
		{"loading", func() state.State {
			s := withMachines(machine("m1", "10.0.0.1", models.StatusReady))
			s.Loading = true
			return s
		}(), "Loading…"},
		{"error", func() state.State {
			s := withMachines()
			s.Error = "Failed to connect to backend."
			return s
		}(), "Failed to connect to backend."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.Table(tt.state)
			if p.Op != OpHTML || p.Target != RegionTable {
				t.Errorf("patch = %s %s, want html %s", p.Op, p.Target, RegionTable)
			}
			if n := strings.Count(p.HTML, "<tr"); n != 1 {
				t.Errorf("rows = %d, want 1", n)
			}
			if !strings.Contains(p.HTML, tt.want) {
				t.Errorf("html = %s, want it to contain %q", p.HTML, tt.want)
			}
			if !strings.Contains(p.HTML, `colspan="11"`) {
				t.Error("placeholder should span all 11 columns")
			}
		})
	}
}

func TestTable_RowsInListOrder(t *testing.T) {
	r := New()
	got := r.Table(withMachines(
		machine("b", "10.0.0.2", models.StatusDown),
		machine("a", "10.0.0.1", models.StatusActive),
	)).HTML

	if n := strings.Count(got, "<tr"); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	if strings.Index(got, "10.0.0.2") > strings.Index(got, "10.0.0.1") {
		t.Error("rows not in list order")
	}
	if !strings.Contains(got, `badge--down`) || !strings.Contains(got, `badge--health-unknown`) || !strings.Contains(got, `badge--usage-idle`) {
		t.Errorf("missing badges: %s", got)
	}
}

func TestTable_AbsentValues(t *testing.T) {
	r := New()
	got := r.Table(withMachines(machine("m1", "10.0.0.1", models.StatusReady))).HTML

	if !strings.Contains(got, "<td>0</td>") {
		t.Error("tests_completed should render 0 when absent")
	}
	if strings.Count(got, Dash) < 4 {
		t.Errorf("want dashes for allotted, build, parallel and last checked: %s", got)
	}
}

func TestTable_InlineStatusEditor(t *testing.T) {
	s := withMachines(machine("m1", "10.0.0.1", models.StatusReady))
	s.EditingCellID, s.EditingField, s.EditBuffer = "m1", state.EditStatus, "Down"

	got := New().Table(s).HTML

	if !strings.Contains(got, `id="edit-m1-status"`) {
		t.Fatalf("missing inline select: %s", got)
	}
	for _, st := range models.Statuses {
		if !strings.Contains(got, `<option value="`+string(st)+`"`) {
			t.Errorf("missing option %s", st)
		}
	}
	if !strings.Contains(got, `<option value="Down" selected>`) {
		t.Errorf("buffer value not selected: %s", got)
	}
	if !strings.Contains(got, `data-action="inline-save" data-id="m1"`) || !strings.Contains(got, `data-action="inline-cancel"`) {
		t.Error("missing save/cancel controls")
	}
}

func TestTable_InlineAllottedEditor(t *testing.T) {
	m := machine("m1", "10.0.0.1", models.StatusReady)
	m.AllottedTo = ptr("qa")
	s := withMachines(m)
	s.EditingCellID, s.EditingField, s.EditBuffer = "m1", state.EditAllottedTo, `dev "team"`

	got := New().Table(s).HTML

	if !strings.Contains(got, `id="edit-m1-allotted_to"`) {
		t.Fatalf("missing inline input: %s", got)
	}
	if !strings.Contains(got, `value="dev &#34;team&#34;"`) {
		t.Errorf("buffer not rendered escaped in value: %s", got)
	}
	if strings.Contains(got, `data-field="status" data-action="inline-input"`) {
		t.Error("status cell should not be editing")
	}
}

func TestStats_FixedOrderAndTotal(t *testing.T) {
	s := withMachines(
		machine("1", "a", models.StatusDown),
		machine("2", "b", models.StatusActive),
		machine("3", "c", models.StatusActive),
	)
	s.Total = 42

	got := New().Stats(s).HTML

	active := strings.Index(got, "<span>Active</span>")
	down := strings.Index(got, "<span>Down</span>")
	if active < 0 || down < 0 || active > down {
		t.Errorf("want Active before Down: %s", got)
	}
	if strings.Contains(got, "<span>Ready</span>") {
		t.Error("zero-count status should have no pill")
	}
	if !strings.Contains(got, `<span class="stat-pill__count">2</span>`) {
		t.Error("Active count = want 2")
	}
	if !strings.Contains(got, `<span>Total</span>`) || !strings.Contains(got, `<span class="stat-pill__count">42</span>`) {
		t.Errorf("Total pill should carry the server total: %s", got)
	}
}

func TestStats_EmptyShowsOnlyTotal(t *testing.T) {
	got := New().Stats(withMachines()).HTML

	if n := strings.Count(got, `<div class="stat-pill`); n != 1 {
		t.Errorf("pills = %d, want 1", n)
	}
	if !strings.Contains(got, `<span class="stat-pill__count">0</span>`) {
		t.Errorf("want Total 0: %s", got)
	}
}

func TestPagination(t *testing.T) {
	r := New()
	s := state.Initial()
	s.Total, s.Pages, s.Page = 125, 3, 3

	got := r.Pagination(s).HTML

	if !strings.Contains(got, "Page 3 of 3 (125 total)") {
		t.Errorf("info missing: %s", got)
	}
	if !strings.Contains(got, `data-page="4" disabled>Next ›`) {
		t.Errorf("Next should be disabled on last page: %s", got)
	}
	if !strings.Contains(got, `data-page="2">‹ Prev`) {
		t.Errorf("Prev should be enabled: %s", got)
	}

	s.Page = 1
	got = r.Pagination(s).HTML
	if !strings.Contains(got, `data-page="0" disabled>‹ Prev`) {
		t.Errorf("Prev should be disabled on first page: %s", got)
	}

	s.Pages = 1
	if got := r.Pagination(s).HTML; got != "" {
		t.Errorf("single page html = %q, want empty", got)
	}
}

func TestFilters_ReflectState(t *testing.T) {
	r := New()
	got := r.Filters(state.Filters{Search: "10.0", Status: "Down"}).HTML
	if !strings.Contains(got, `value="10.0"`) || !strings.Contains(got, `<option value="Down" selected>`) {
		t.Errorf("filters not reflected: %s", got)
	}

	got = r.Filters(state.Filters{}).HTML
	if strings.Contains(got, "selected") {
		t.Errorf("cleared filters should select nothing: %s", got)
	}
	if !strings.Contains(got, `id="filter-search"`) || !strings.Contains(got, `value=""`) {
		t.Errorf("search input should be blank: %s", got)
	}
}

func TestModal(t *testing.T) {
	r := New()
	m := machine("m1", "10.0.0.7", models.StatusShipped)
	m.ShippingDate = ptr(time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC))

	t.Run("edit", func(t *testing.T) {
		ps := r.Modal(ModalView{Open: true, EditID: "m1", Values: FormFromMachine(m)})
		if len(ps) != 2 || ps[1].Op != OpShow || ps[1].Target != ModalOverlay {
			t.Fatalf("patches = %+v", ps)
		}
		got := ps[0].HTML
		if !strings.Contains(got, "Edit Machine") {
			t.Error("title should be Edit Machine")
		}
		if !strings.Contains(got, `value="10.0.0.7" autocomplete="off" readonly`) {
			t.Errorf("IP should be read-only in edit mode: %s", got)
		}
		if !strings.Contains(got, `value="2026-03-05T14:07"`) {
			t.Error("shipping date not converted to datetime-local")
		}
		if !strings.Contains(got, `<option value="Shipped" selected>`) {
			t.Error("status not selected")
		}
	})

	t.Run("create", func(t *testing.T) {
		got := r.Modal(ModalView{Open: true, Values: BlankForm()})[0].HTML
		if !strings.Contains(got, "Add Machine") || strings.Contains(got, "readonly") {
			t.Errorf("create mode: %s", got)
		}
	})

	t.Run("submitting with errors", func(t *testing.T) {
		got := r.Modal(ModalView{
			Open:       true,
			Values:     BlankForm(),
			Errors:     map[string]string{FieldMachineIP: "A machine with IP '1.1.1.1' already exists."},
			Submitting: true,
		})[0].HTML
		if !strings.Contains(got, "disabled>Saving…</button>") {
			t.Error("submit should be disabled with Saving…")
		}
		if !strings.Contains(got, `id="err-machine-ip">A machine with IP &#39;1.1.1.1&#39; already exists.`) {
			t.Errorf("IP error missing: %s", got)
		}
	})

	t.Run("closed", func(t *testing.T) {
		ps := r.Modal(ModalView{})
		if len(ps) != 1 || ps[0].Op != OpHide {
			t.Errorf("patches = %+v, want single hide", ps)
		}
	})
}

func TestConfirm_CarriesToken(t *testing.T) {
	ps := New().Confirm(ConfirmView{Open: true, Message: "Decommission machine <x>?", Token: "tok-1"})
	got := ps[0].HTML

	if n := strings.Count(got, `data-token="tok-1"`); n != 3 {
		t.Errorf("token controls = %d, want 3", n)
	}
	if !strings.Contains(got, "Decommission machine &lt;x&gt;?") {
		t.Errorf("message not escaped: %s", got)
	}
}

func TestDateTime(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC)
	if got := DateTime(&ts, time.UTC); got != "05/03/26, 2:07 pm" {
		t.Errorf("DateTime = %q", got)
	}
	if got := DateTime(nil, time.UTC); got != Dash {
		t.Errorf("DateTime(nil) = %q, want %q", got, Dash)
	}
}

func TestLocalInput(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 7, 0, 0, time.FixedZone("IST", 5*3600+1800))
	in := LocalInput(&ts)
	if in != "2026-03-05T08:37" {
		t.Fatalf("LocalInput = %q, want UTC value", in)
	}
	back, err := ParseLocalInput(in)
	if err != nil {
		t.Fatalf("ParseLocalInput: %v", err)
	}
	if !back.Equal(ts) {
		t.Errorf("ParseLocalInput = %v, want %v", back, ts)
	}

	if got, err := ParseLocalInput("  "); got != nil || err != nil {
		t.Errorf("blank = %v, %v; want nil, nil", got, err)
	}
	if _, err := ParseLocalInput("next tuesday"); err == nil {
		t.Error("want error for garbage input")
	}
}

func TestFormFromMap(t *testing.T) {
	f := FormFromMap(map[string]string{
		FieldMachineIP:      " 10.0.0.1 ",
		FieldCanRunParallel: "on",
	})
	if f.MachineIP != " 10.0.0.1 " {
		t.Errorf("MachineIP = %q, want raw value", f.MachineIP)
	}
	if !f.CanRunParallel {
		t.Error("checkbox \"on\" should be checked")
	}
	if FormFromMap(map[string]string{}).CanRunParallel {
		t.Error("missing checkbox should be unchecked")
	}
}

func TestDocument(t *testing.T) {
	r := New()
	d := NewDocument()
	a := Toast{ID: "a", Message: "one", Kind: ToastInfo}
	b := Toast{ID: "b", Message: "two", Kind: ToastError}

	d.Apply(r.Toast(a), r.Toast(b))
	if got := d.Children(RegionToasts); len(got) != 2 {
		t.Fatalf("children = %v, want 2", got)
	}
	d.Apply(DismissToast(a))
	got := d.Children(RegionToasts)
	if len(got) != 1 || got[0] != "toast-b" {
		t.Errorf("children = %v, want [toast-b]", got)
	}
	if !strings.Contains(d.HTML(RegionToasts), "toast--error") {
		t.Error("remaining toast html missing")
	}

	d.Apply(r.Confirm(ConfirmView{Open: true, Message: "x", Token: "t"})...)
	if !d.Visible(ConfirmOverlay) {
		t.Error("confirm overlay should be visible")
	}
	d.Apply(Focus(ModalFocusID))
	if d.Focused() != ModalFocusID {
		t.Errorf("Focused = %q", d.Focused())
	}

	replay := NewDocument()
	replay.Apply(d.Snapshot()...)
	if replay.HTML(RegionToasts) != d.HTML(RegionToasts) || !replay.Visible(ConfirmOverlay) {
		t.Error("snapshot should rebuild the document")
	}
}

func TestSnapshotClearsDismissedToasts(t *testing.T) {
	r := New()
	a := Toast{ID: "a", Message: "saved", Kind: ToastSuccess}

	server := NewDocument()
	browser := NewDocument()
	server.Apply(r.Toast(a))
	browser.Apply(r.Toast(a))
	// The browser never sees the dismissal.
	server.Apply(DismissToast(a))

	browser.Apply(server.Snapshot()...)
	if got := browser.Children(RegionToasts); len(got) != 0 {
		t.Errorf("children after resync = %v, want none", got)
	}
	if got := browser.HTML(RegionToasts); got != "" {
		t.Errorf("toast region after resync = %q, want empty", got)
	}
}
