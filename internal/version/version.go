package version

import "fmt"

// Version contains the application version information.
// Set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/skelbuilder/internal/version.Version=v1.2.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Renderer identifies the skeleton templates. Bump it whenever rendered
// output changes so identical specifications can be compared across builds.
const Renderer = "gradle-skeleton/3"

// String renders the full version line printed by the CLI.
func String() string {
	return fmt.Sprintf("skelbuilder %s (commit %s, built %s, renderer %s)", Version, GitCommit, BuildTime, Renderer)
}
