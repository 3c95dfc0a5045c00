// Package version exposes build identification.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These are set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// String returns a human-readable version line.
func String() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("pageforge %s (%s, %s/%s)", v, GitCommit, runtime.GOOS, runtime.GOARCH)
}
