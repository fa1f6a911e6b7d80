// Package version reports what build of dash is running.
package version

import (
	"runtime"
	"time"
)

// Set during build with -ldflags "-X github.com/ghabxph/dash-on-slack/internal/version.Version=..."
var (
	Version   = "0.1.0"
	BuildTime = "development"
	GitHash   = ""
)

var startedAt = time.Now()

func GetVersionInfo() map[string]string {
	info := map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"started_at": startedAt.UTC().Format(time.RFC3339),
	}
	if GitHash != "" {
		info["git_hash"] = GitHash
	}
	return info
}

func GetVersion() string {
	return Version
}

// GetBuildInfo is the one-line form used by --version and the startup log.
func GetBuildInfo() string {
	info := Version
	if GitHash != "" {
		info += "+" + shortHash(GitHash)
	}
	if BuildTime == "development" {
		return info + "-dev"
	}
	return info + " (built " + BuildTime + ")"
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
