package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/labtrack/pkg/models"
)

// Request is a call recorded by Backend.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Failure forces a response for matching requests.
type Failure struct {
	Status int
	// Body is written verbatim; empty writes {"detail": Detail}.
	Body   string
	Detail string
}

// Backend is an in-memory implementation of the machine inventory REST API
// served over httptest. It keeps machines in insertion order.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	machines []models.Machine
	requests []Request
	failures map[string]Failure
	health   map[string]models.HealthCheckResult
	// gate, when set, blocks list requests until it is closed.
	gate chan struct{}
}

// NewBackend starts a Backend seeded with machines. It is closed when the
// test completes.
func NewBackend(t *testing.T, machines ...models.Machine) *Backend {
	t.Helper()
	b := &Backend{
		machines: append([]models.Machine(nil), machines...),
		failures: make(map[string]Failure),
		health:   make(map[string]models.HealthCheckResult),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/machines", b.handleList)
	mux.HandleFunc("POST /api/v1/machines", b.handleCreate)
	mux.HandleFunc("GET /api/v1/machines/{id}", b.handleGet)
	mux.HandleFunc("PATCH /api/v1/machines/{id}", b.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/machines/{id}", b.handleDelete)
	mux.HandleFunc("POST /api/v1/machines/{id}/health-check", b.handleHealthCheck)
	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL (without /api/v1).
func (b *Backend) URL() string { return b.Server.URL }

// Fail forces every request matching "METHOD /api/v1/path" to fail.
func (b *Backend) Fail(route string, f Failure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = f
}

// ClearFailures removes all forced failures.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]Failure)
}

// SetHealth sets the result the health-check endpoint returns for id.
func (b *Backend) SetHealth(id string, r models.HealthCheckResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.health[id] = r
}

// HoldLists blocks list requests until the returned release func is called.
func (b *Backend) HoldLists() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns a copy of all recorded requests.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns recorded requests with the given method and path.
func (b *Backend) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Machines returns a copy of the stored machines.
func (b *Backend) Machines() []models.Machine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Machine(nil), b.machines...)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		f, failing := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.Status)
			if f.Body != "" {
				_, _ = io.WriteString(w, f.Body)
			} else {
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": f.Detail})
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(q.Get("page_size"))
	if size < 1 {
		size = 50
	}

	b.mu.Lock()
	var matched []models.Machine
	for _, m := range b.machines {
		if matches(m, q) {
			matched = append(matched, m)
		}
	}
	b.mu.Unlock()

	total := len(matched)
	pages := 1
	if total > 0 {
		pages = (total + size - 1) / size
	}
	start := min((page-1)*size, total)
	end := min(start+size, total)
	items := matched[start:end]
	if items == nil {
		items = []models.Machine{}
	}
	writeJSON(w, http.StatusOK, models.MachineList{
		Items: items, Total: total, Page: page, PageSize: size, Pages: pages,
	})
}

func matches(m models.Machine, q url.Values) bool {
	if v := q.Get("status"); v != "" && string(m.Status) != v {
		return false
	}
	if v := q.Get("used_for"); v != "" && string(m.UsedFor) != v {
		return false
	}
	if v := q.Get("machine_type"); v != "" && string(m.MachineType) != v {
		return false
	}
	if v := strings.ToLower(q.Get("search")); v != "" {
		hay := strings.ToLower(m.MachineIP + " " + models.Deref(m.Notes) + " " + models.Deref(m.CurrentBuild))
		if !strings.Contains(hay, v) {
			return false
		}
	}
	return true
}

func (b *Backend) find(id string) int {
	for i, m := range b.machines {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(r.PathValue("id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Machine '%s' not found.", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, b.machines[i])
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.MachineCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.MachineIP == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "machine_ip is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.machines {
		if m.MachineIP == in.MachineIP {
			writeDetail(w, http.StatusConflict, fmt.Sprintf("A machine with IP '%s' already exists.", in.MachineIP))
			return
		}
	}
	now := time.Now().UTC()
	m := models.Machine{
		ID:             uuid.New().String(),
		MachineIP:      in.MachineIP,
		MachineType:    in.MachineType,
		Status:         in.Status,
		HealthStatus:   models.HealthUnknown,
		UsedFor:        in.UsedFor,
		AllottedTo:     in.AllottedTo,
		CurrentBuild:   in.CurrentBuild,
		CustomerName:   in.CustomerName,
		ActiveIssues:   in.ActiveIssues,
		Notes:          in.Notes,
		CanRunParallel: in.CanRunParallel,
		ShippingDate:   in.ShippingDate,
		CreatedAt:      &now,
		UpdatedAt:      &now,
	}
	b.machines = append([]models.Machine{m}, b.machines...)
	writeJSON(w, http.StatusCreated, m)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.MachineUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(r.PathValue("id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Machine '%s' not found.", r.PathValue("id")))
		return
	}
	m := b.machines[i]
	if v, ok := patch.Status.Get(); ok {
		m.Status = v
	}
	if v, ok := patch.MachineType.Get(); ok {
		m.MachineType = v
	}
	if v, ok := patch.UsedFor.Get(); ok {
		m.UsedFor = v
	}
	applyText(&m.AllottedTo, patch.AllottedTo)
	applyText(&m.CurrentBuild, patch.CurrentBuild)
	applyText(&m.CustomerName, patch.CustomerName)
	applyText(&m.ActiveIssues, patch.ActiveIssues)
	applyText(&m.Notes, patch.Notes)
	if v, ok := patch.CanRunParallel.Get(); ok {
		m.CanRunParallel = v
	}
	if !patch.ShippingDate.IsZero() {
		if v, ok := patch.ShippingDate.Get(); ok {
			m.ShippingDate = &v
		} else {
			m.ShippingDate = nil
		}
	}
	now := time.Now().UTC()
	m.UpdatedAt = &now
	b.machines[i] = m
	writeJSON(w, http.StatusOK, m)
}

func applyText(dst **string, o models.Opt[string]) {
	if o.IsZero() {
		return
	}
	if v, ok := o.Get(); ok {
		*dst = &v
		return
	}
	*dst = nil
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.find(r.PathValue("id"))
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Machine '%s' not found.", r.PathValue("id")))
		return
	}
	b.machines = append(b.machines[:i], b.machines[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	i := b.find(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Machine '%s' not found.", id))
		return
	}
	res, ok := b.health[id]
	if !ok {
		res = models.HealthCheckResult{IsReachable: true, HealthStatus: models.HealthHealthy}
	}
	now := time.Now().UTC()
	res.MachineID = id
	res.MachineIP = b.machines[i].MachineIP
	res.CheckedAt = &now
	b.machines[i].HealthStatus = res.HealthStatus
	b.machines[i].IsReachable = res.IsReachable
	b.machines[i].CurrentBuild = res.CurrentBuild
	b.machines[i].LastCheckedAt = &now
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
