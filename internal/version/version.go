// Package version holds build information injected via ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/HerbHall/labtrack/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
}

// Get returns the build description. When the commit was not injected,
// it falls back to the VCS stamp the go tool records in the binary.
func Get() Build {
	b := Build{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if b.GitCommit == "unknown" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					b.GitCommit = s.Value
				}
			}
		}
	}
	return b
}

func (b Build) String() string {
	return fmt.Sprintf("LabTrack %s (commit: %s, built: %s, go: %s, %s/%s)",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.OS, b.Arch)
}

// Info is the one-line version banner.
func Info() string {
	return Get().String()
}

// Short returns just the version, e.g. "0.1.0" or "dev".
func Short() string {
	return Version
}

// UserAgent identifies LabTrack to the inventory backend.
func UserAgent() string {
	return "labtrack/" + Version
}

// Map flattens Get for JSON payloads such as /healthz.
func Map() map[string]string {
	b := Get()
	return map[string]string{
		"version":    b.Version,
		"git_commit": b.GitCommit,
		"build_date": b.BuildDate,
		"go_version": b.GoVersion,
		"os":         b.OS,
		"arch":       b.Arch,
	}
}
