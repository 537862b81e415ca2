package app

import "runtime/debug"

// Build information populated via -ldflags at build time.
// Defaults are meaningful for local development and tests.
var (
	// BuildVersion is the semantic version of the built binary.
	BuildVersion = "0.0.0-dev"
	// BuildCommit is the VCS commit SHA associated with the build.
	BuildCommit  = "unknown"
	// BuildDate is the ISO-8601 timestamp of the build.
	BuildDate    = "unknown"
)

// BuildInfo returns version, commit and date, filling ldflags gaps from the
// module build info when the binary was built with VCS stamping.
func BuildInfo() (version, commit, date string) {
	version, commit, date = BuildVersion, BuildCommit, BuildDate
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "0.0.0-dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
				if len(commit) > 7 {
					commit = commit[:7]
				}
			}
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return
}
