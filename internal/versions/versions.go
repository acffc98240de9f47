// Package versions provides build version information.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information, set via ldflags at build time.
var (
	// Version is the release version
	Version = "dev"

	// Commit is the git commit SHA
	Commit = "unknown"

	// BuildDate is when the binary was built
	BuildDate = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the binary's version information, falling back to
// module build info when ldflags were not set.
func GetVersionInfo() VersionInfo {
	commit := Commit
	date := BuildDate

	if info, ok := debug.ReadBuildInfo(); ok && commit == "unknown" {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				date = setting.Value
			}
		}
	}

	return VersionInfo{
		Version:   Version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
