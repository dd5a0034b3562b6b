// Package version holds build-time version metadata, set with -ldflags -X.
package version

import "runtime"

var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = ""
)

// Go returns GoVersion, or the running toolchain version when unset.
func Go() string {
	if GoVersion != "" {
		return GoVersion
	}
	return runtime.Version()
}
