// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags -X. Empty values fall back to the VCS stamp the go
// command embeds in module builds.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildTime = ""
)

// stamp is the VCS state recorded in the binary.
type stamp struct {
	revision string
	time     string
	modified bool
}

func readStamp() stamp {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp{}
	}
	var s stamp
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			s.revision = setting.Value
		case "vcs.time":
			s.time = setting.Value
		case "vcs.modified":
			s.modified = setting.Value == "true"
		}
	}
	if len(s.revision) > 12 {
		s.revision = s.revision[:12]
	}
	return s
}

// Commit returns the commit the binary was built from, or "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	s := readStamp()
	switch {
	case s.revision == "":
		return "unknown"
	case s.modified:
		return s.revision + "-dirty"
	}
	return s.revision
}

func buildTime() string {
	if BuildTime != "" {
		return BuildTime
	}
	if s := readStamp(); s.time != "" {
		return s.time
	}
	return "unknown"
}

// Info is the one-line form: "0.1.0-dev (abc1234, 2026-02-10T00:00:00Z)".
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit(), buildTime())
}

// Full adds the Go toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func Short() string { return Version }

// UserAgent identifies the client in requests to the controller.
func UserAgent() string {
	return "homewire/" + Version
}
