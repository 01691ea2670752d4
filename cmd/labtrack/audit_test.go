package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/labtrack/internal/audit"
	labtest "github.com/HerbHall/labtrack/internal/testutil"
)

// auditDB creates an audit database with two entries and points the CLI at
// it through the environment.
func auditDB(t *testing.T) string {
	t.Helper()
	s := labtest.NewFileStore(t)
	repo, err := audit.NewSQLiteRepository(context.Background(), s)
	require.NoError(t, err)

	at := time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC)
	for i, e := range []audit.Entry{
		{ID: "a1", SessionID: "s1", Topic: "console.machine.deleted", Action: "delete", MachineID: "m1", MachineIP: "10.0.0.1", Outcome: "ok"},
		{ID: "a2", SessionID: "s1", Topic: "console.machine.updated", Action: "update", MachineID: "m2", Outcome: "error", Detail: "conflict"},
	} {
		e.CreatedAt = at.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Insert(context.Background(), e))
	}

	t.Setenv("LABTRACK_AUDIT_DB_PATH", s.Path())
	return s.Path()
}

func TestAuditList(t *testing.T) {
	auditDB(t)

	out, err := execute(t, "", "audit", "list", "-o", "json")
	require.NoError(t, err)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "a2", entries[0].ID)

	out, err = execute(t, "", "audit", "list", "--machine", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "10.0.0.1")
	assert.NotContains(t, out, "conflict")
}

func TestAuditListRejectsBadLimit(t *testing.T) {
	auditDB(t)
	_, err := execute(t, "", "audit", "list", "--limit", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}

func TestAuditBackupAndRestore(t *testing.T) {
	db := filepath.Base(auditDB(t))
	archive := filepath.Join(t.TempDir(), "labtrack.tar.gz")

	out, err := execute(t, "", "audit", "backup", "--output", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup created: "+archive)

	dst := t.TempDir()
	out, err = execute(t, "", "audit", "restore", archive, "--data-dir", dst)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dst, db))
	_, err = os.Stat(filepath.Join(dst, db))
	assert.NoError(t, err)

	_, err = execute(t, "", "audit", "restore", archive, "--data-dir", dst)
	assert.Error(t, err)
}
