// Package version holds build metadata for lmsready.
package version

import "fmt"

// Set via ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("lmsready %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
