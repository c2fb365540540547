package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/MrSnakeDoc/notionbot/internal/version.Version=v0.1.0 ..."
var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = ""                // ex: abcd123, falls back to the vcs stamp
	BuildDate = ""                // ex: 2025-08-11T18:42:00Z, falls back to the vcs commit time
	GoVersion = runtime.Version() // go version
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
	if Commit == "" {
		Commit = "none"
	}
	if BuildDate == "" {
		BuildDate = "unknown"
	}
}

// String renders one line of build information.
func String() string {
	return fmt.Sprintf("notionbot %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
