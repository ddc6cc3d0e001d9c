// Package version holds build metadata injected via ldflags:
//
//	-X .../internal/version.Version=v1.2.0 -X .../internal/version.Commit=$(git rev-parse --short HEAD)
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build as "version (commit, date)", omitting unknown parts.
func String() string {
	s := Version
	switch {
	case Commit != "unknown" && Date != "unknown":
		s += " (" + Commit + ", " + Date + ")"
	case Commit != "unknown":
		s += " (" + Commit + ")"
	}
	return s
}
