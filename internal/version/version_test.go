package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaults(t *testing.T) {
	b := Get()
	assert.Equal(t, "dev", b.Version)
	assert.Equal(t, runtime.Version(), b.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, b.OS+"/"+b.Arch)
	assert.NotEmpty(t, b.GitCommit)
}

func TestInjectedValuesWin(t *testing.T) {
	oldV, oldC, oldD := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldV, oldC, oldD })
	Version, GitCommit, BuildDate = "1.4.0", "abc123", "2026-03-05"

	b := Get()
	assert.Equal(t, "abc123", b.GitCommit)
	assert.Contains(t, Info(), "LabTrack 1.4.0 (commit: abc123, built: 2026-03-05")
	assert.Equal(t, "1.4.0", Short())
	assert.Equal(t, "labtrack/1.4.0", UserAgent())
}

func TestMapMatchesGet(t *testing.T) {
	b, m := Get(), Map()
	assert.Len(t, m, 6)
	assert.Equal(t, b.Version, m["version"])
	assert.Equal(t, b.GitCommit, m["git_commit"])
	assert.Equal(t, b.GoVersion, m["go_version"])
}
