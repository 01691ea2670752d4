package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	labtest "github.com/HerbHall/labtrack/internal/testutil"
	"github.com/HerbHall/labtrack/pkg/models"
)

// execute runs the CLI in an empty working directory so no stray config or
// .env file is picked up.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seededBackend(t *testing.T) *labtest.Backend {
	t.Helper()
	return labtest.NewBackend(t,
		labtest.NewMachine(labtest.WithID("m1"), labtest.WithIP("10.0.0.1"), labtest.WithAllottedTo("asha")),
		labtest.NewMachine(labtest.WithID("m2"), labtest.WithIP("10.0.0.2"), labtest.WithStatus(models.StatusDown)),
	)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LabTrack")

	out, err = execute(t, "", "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
}

func TestMachinesListTable(t *testing.T) {
	b := seededBackend(t)
	out, err := execute(t, "", "--api-url", b.URL(), "machines", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "ALLOTTED TO")
	assert.Contains(t, out, "10.0.0.1")
	assert.Contains(t, out, "asha")
	assert.Contains(t, out, "10.0.0.2")
	assert.Contains(t, out, "page 1 of 1, 2 machines")
}

func TestMachinesListFiltersAndYAML(t *testing.T) {
	b := seededBackend(t)
	out, err := execute(t, "", "--api-url", b.URL(), "machines", "list", "--status", "Down", "-o", "yaml")
	require.NoError(t, err)

	var list models.MachineList
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "10.0.0.2", list.Items[0].MachineIP)
	assert.Contains(t, out, "machine_ip: 10.0.0.2")

	reqs := b.RequestsTo(http.MethodGet, "/api/v1/machines")
	require.NotEmpty(t, reqs)
	assert.Equal(t, "Down", reqs[len(reqs)-1].Query.Get("status"))
}

func TestMachinesListJSON(t *testing.T) {
	b := seededBackend(t)
	out, err := execute(t, "", "--api-url", b.URL(), "machines", "list", "-o", "json")
	require.NoError(t, err)

	var list models.MachineList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 2, list.Total)
}

func TestMachinesListBadFormat(t *testing.T) {
	b := seededBackend(t)
	_, err := execute(t, "", "--api-url", b.URL(), "machines", "list", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
	assert.Empty(t, b.Requests())
}

func TestMachinesGet(t *testing.T) {
	b := seededBackend(t)
	out, err := execute(t, "", "--api-url", b.URL(), "machines", "get", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "IP:")
	assert.Contains(t, out, "10.0.0.1")

	_, err = execute(t, "", "--api-url", b.URL(), "machines", "get", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Machine 'nope' not found.")
}

func TestMachinesHealthCheck(t *testing.T) {
	b := seededBackend(t)
	b.SetHealth("m2", models.HealthCheckResult{HealthStatus: models.HealthUnreachable})

	out, err := execute(t, "", "--api-url", b.URL(), "machines", "health-check", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "10.0.0.1: Healthy (reachable)")

	out, err = execute(t, "", "--api-url", b.URL(), "machines", "check", "m2")
	require.NoError(t, err)
	assert.Contains(t, out, "10.0.0.2: Unreachable (unreachable)")
}

func TestMachinesDeleteAsksFirst(t *testing.T) {
	b := seededBackend(t)

	out, err := execute(t, "n\n", "--api-url", b.URL(), "machines", "delete", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete machine 10.0.0.1?")
	assert.Contains(t, out, "Aborted.")
	assert.Len(t, b.Machines(), 2)

	out, err = execute(t, "y\n", "--api-url", b.URL(), "machines", "delete", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 10.0.0.1 (m1)")
	assert.Len(t, b.Machines(), 1)
}

func TestMachinesDeleteYes(t *testing.T) {
	b := seededBackend(t)
	out, err := execute(t, "", "--api-url", b.URL(), "machines", "delete", "m2", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.Len(t, b.Machines(), 1)
}

func TestMachinesBackendError(t *testing.T) {
	b := seededBackend(t)
	b.Fail("GET /api/v1/machines", labtest.Failure{Status: http.StatusInternalServerError, Detail: "database offline"})

	_, err := execute(t, "", "--api-url", b.URL(), "machines", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database offline")
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, l)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}
