// Package version reports the ptzlink build identity.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Version and Commit are stamped at link time:
//
//	go build -ldflags="-X github.com/muurk/ptzlink/internal/version.Version=v0.4.0 \
//	                   -X github.com/muurk/ptzlink/internal/version.Commit=1a2b3c4"
//
// Unstamped builds fall back to the VCS data embedded by the toolchain.
var (
	Version = ""
	Commit  = ""
)

const shortHashLen = 7

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fillFromSettings(info.Settings)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fillFromSettings derives Commit and a dated dev Version from the vcs.*
// build settings, leaving values already stamped untouched
func fillFromSettings(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > shortHashLen {
			rev = rev[:shortHashLen]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	if Version == "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit, as printed by `ptzlink version`
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with every camera and firmware request
func UserAgent() string {
	return "ptzlink/" + Version
}
