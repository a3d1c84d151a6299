// Package version reports build information. Release builds inject values
// with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/vincheck-api/internal/version.Version=1.0.0 ..."
//
// Local builds fall back to the VCS stamp embedded by the Go toolchain.
package version

import (
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

// Set via ldflags.
var (
	Version = "0.0.0-dev"
	Commit  = unknown
	Date    = unknown
	Dirty   = "false"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var current = sync.OnceValue(func() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit == unknown {
		if bi, ok := debug.ReadBuildInfo(); ok {
			applyBuildSettings(&info, bi.Settings)
		}
	}
	return info
})

// Get returns the build information, computed once per process.
func Get() Info {
	return current()
}

func applyBuildSettings(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		if s.Value == "" {
			continue
		}
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value[:min(len(s.Value), 12)]
		case "vcs.time":
			if info.Date == unknown {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = info.Dirty || s.Value == "true"
		}
	}
}

// String formats the info as "1.2.0 (abc123-dirty) built 2026-01-01".
func (i Info) String() string {
	commit := i.Commit
	if i.Dirty {
		commit += "-dirty"
	}
	return i.Version + " (" + commit + ") built " + i.Date
}

// Short returns the version, suffixed when the tree was dirty.
func (i Info) Short() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}

// LogAttrs returns the info as slog attributes for startup logging.
func (i Info) LogAttrs() []any {
	return []any{
		slog.String("version", i.Short()),
		slog.String("commit", i.Commit),
		slog.String("built", i.Date),
		slog.String("go_version", i.GoVersion),
		slog.String("platform", i.Platform),
	}
}
