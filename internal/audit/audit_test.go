package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/labtrack/internal/apiclient"
	"github.com/HerbHall/labtrack/internal/console"
	"github.com/HerbHall/labtrack/internal/event"
	"github.com/HerbHall/labtrack/internal/render"
	"github.com/HerbHall/labtrack/internal/server"
	labtest "github.com/HerbHall/labtrack/internal/testutil"
	"github.com/HerbHall/labtrack/pkg/plugin"
)

type fixture struct {
	m     *Module
	bus   *event.Bus
	clock *labtest.Clock
}

func newFixture(t *testing.T, cfg *viper.Viper) *fixture {
	t.Helper()
	f := &fixture{bus: event.NewBus(zap.NewNop()), clock: labtest.NewClock()}
	var seq atomic.Int64
	f.m = New(WithClock(f.clock.Now), WithIDs(func() string {
		return fmt.Sprintf("entry-%d", seq.Add(1))
	}))
	if cfg == nil {
		cfg = viper.New()
	}
	err := f.m.Init(context.Background(), plugin.Dependencies{
		Config: cfg,
		Logger: labtest.Logger(),
		Bus:    f.bus,
		Store:  labtest.NewStore(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.m.Stop(context.Background()) })
	return f
}

func (f *fixture) publish(t *testing.T, topic string, payload any) {
	t.Helper()
	require.NoError(t, f.bus.Publish(context.Background(), plugin.Event{Topic: topic, Source: "console", Payload: payload}))
}

func (f *fixture) serve(method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	for _, r := range f.m.Routes() {
		mux.HandleFunc(r.Method+" /api/v1/audit"+r.Path, r.Handler)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRecordsConsoleEvents(t *testing.T) {
	f := newFixture(t, nil)

	f.publish(t, console.TopicMachineDeleted, console.ActionEvent{
		SessionID: "s1", Action: "delete", MachineID: "m1", MachineIP: "10.0.0.1", Outcome: console.OutcomeOK,
	})

	e, err := f.m.Repository().Get(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, console.TopicMachineDeleted, e.Topic)
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, "10.0.0.1", e.MachineIP)
	assert.Equal(t, console.OutcomeOK, e.Outcome)
	assert.True(t, e.CreatedAt.Equal(f.clock.Now()), "created_at = %v", e.CreatedAt)
}

func TestRecordsPointerPayloadAndIgnoresOthers(t *testing.T) {
	f := newFixture(t, nil)

	f.publish(t, console.TopicMachineUpdated, &console.ActionEvent{Action: "update", MachineID: "m2", Outcome: console.OutcomeError, Detail: "boom"})
	f.publish(t, console.TopicMachineUpdated, "not an action")
	f.publish(t, "console.other", console.ActionEvent{Action: "ignored"})

	entries, err := f.m.Repository().List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Detail)
	assert.Equal(t, console.OutcomeError, entries[0].Outcome)
}

func TestStopUnsubscribes(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.m.Stop(context.Background()))

	f.publish(t, console.TopicMachineCreated, console.ActionEvent{Action: "create"})

	entries, err := f.m.Repository().List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListNewestFirstWithFilterAndLimit(t *testing.T) {
	f := newFixture(t, nil)
	for i, id := range []string{"m1", "m2", "m1", "m1"} {
		f.publish(t, console.TopicMachineHealthChecked, console.ActionEvent{Action: fmt.Sprintf("a%d", i), MachineID: id})
		f.clock.Advance(time.Minute)
	}
	ctx := context.Background()

	all, err := f.m.Repository().List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a3", all[0].Action)
	assert.Equal(t, "a0", all[3].Action)

	m1, err := f.m.Repository().List(ctx, Filter{MachineID: "m1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, m1, 2)
	assert.Equal(t, "a3", m1[0].Action)
	assert.Equal(t, "a2", m1[1].Action)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.m.Repository().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleList(t *testing.T) {
	cfg := viper.New()
	cfg.Set("default_limit", 2)
	f := newFixture(t, cfg)
	for i := 0; i < 3; i++ {
		f.publish(t, console.TopicMachineCreated, console.ActionEvent{Action: "create", MachineID: fmt.Sprintf("m%d", i)})
	}

	w := f.serve(http.MethodGet, "/api/v1/audit")
	require.Equal(t, http.StatusOK, w.Code)
	var body listResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.Limit)
	assert.Len(t, body.Items, 2)

	w = f.serve(http.MethodGet, "/api/v1/audit?machine_id=m1&limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "m1", body.Items[0].MachineID)
}

func TestHandleListBadLimit(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"limit=0", "limit=abc", "limit=100000"} {
		w := f.serve(http.MethodGet, "/api/v1/audit?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"), q)
	}
}

func TestHandleGet(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, console.TopicMachineDeleted, console.ActionEvent{Action: "delete", MachineID: "m9"})

	w := f.serve(http.MethodGet, "/api/v1/audit/entry-1")
	require.Equal(t, http.StatusOK, w.Code)
	var e Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Equal(t, "m9", e.MachineID)

	w = f.serve(http.MethodGet, "/api/v1/audit/entry-404")
	require.Equal(t, http.StatusNotFound, w.Code)
	var p server.Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, server.ProblemTypeNotFound, p.Type)
}

func TestInitRequiresStore(t *testing.T) {
	err := New().Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()})
	assert.Error(t, err)
}

// A console session wired to the real bus leaves a trail for successful
// and failed backend actions alike.
func TestSessionActionsAreAudited(t *testing.T) {
	f := newFixture(t, nil)
	b := labtest.NewBackend(t, labtest.NewMachine(labtest.WithID("m1"), labtest.WithIP("10.0.0.1")))

	client := apiclient.New(apiclient.Options{BaseURL: b.URL(), Timeout: 2 * time.Second})
	s := console.NewSession(client, render.NewDocument(), console.Options{
		Executor: console.Inline{},
		Bus:      f.bus,
		ToastTTL: time.Hour,
	})
	s.Start(context.Background())
	t.Cleanup(s.Close)

	s.Dispatch(console.Intent{Action: console.ActionHealthCheck, ID: "m1"})
	s.Dispatch(console.Intent{Action: console.ActionHealthCheck, ID: "missing"})

	require.Eventually(t, func() bool {
		entries, err := f.m.Repository().List(context.Background(), Filter{})
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := f.m.Repository().List(context.Background(), Filter{MachineID: "m1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, console.OutcomeOK, entries[0].Outcome)
	assert.Equal(t, "10.0.0.1", entries[0].MachineIP)
	assert.Equal(t, s.ID(), entries[0].SessionID)

	failed, err := f.m.Repository().List(context.Background(), Filter{MachineID: "missing"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, console.OutcomeError, failed[0].Outcome)
}
