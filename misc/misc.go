// Package misc holds small build/runtime identity helpers shared by
// logging and reporting, kept separate from config so that neither pulls
// in the other.
package misc

import "runtime/debug"

// appName is the program's short name, used as the zap logger's root name
// and as a prefix for generated log/report file names.
const appName = "pgrd"

// version is overridden at link time via -ldflags "-X pagereader/misc.version=...".
var version = "dev"

// gitHash is overridden at link time the same way as version.
var gitHash = "unknown"

// GetAppName returns the short program name.
func GetAppName() string {
	return appName
}

// GetVersion returns the linked-in version string, falling back to the Go
// module's own build info when not overridden at link time (e.g. a `go
// install` from source without -ldflags).
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return version
}

// GetGitHash returns the linked-in commit hash, falling back to the VCS
// stamp Go embeds in build info when not overridden at link time.
func GetGitHash() string {
	if gitHash != "unknown" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return gitHash
}
