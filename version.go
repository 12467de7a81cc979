package main

import (
	"os/exec"
	"runtime/debug"
	"strings"
	"time"
)

// commit may be set at link time with -ldflags "-X main.commit=...".
var commit = "dev"

// versionString describes the running build as "<commit> (<date>)". VCS
// stamps from the build info win; a git checkout is the fallback for go run.
func versionString() string {
	rev, date, dirty := commit, "", false
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if rev == "dev" && s.Value != "" {
					rev = s.Value
				}
			case "vcs.time":
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					date = t.Format("2006-01-02")
				}
			case "vcs.modified":
				dirty = s.Value == "true"
			}
		}
	}
	if rev == "dev" {
		if out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
			rev = strings.TrimSpace(string(out))
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "-dirty"
	}
	if date == "" {
		return rev
	}
	return rev + " (" + date + ")"
}
