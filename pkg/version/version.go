// Package version derives the build identity reported in startup logs.
package version

import "runtime/debug"

// AppName prefixes every version string.
const AppName = "socialsim"

// gitCommitOverride can be set with -ldflags for builds without VCS metadata,
// such as container builds from an exported source tree.
var gitCommitOverride string

// GitCommit is the short commit hash of this build, or "dev" when no VCS
// metadata is available.
var GitCommit = resolveCommit()

func resolveCommit() string {
	if gitCommitOverride != "" {
		return shortRev(gitCommitOverride)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return shortRev(s.Value)
			}
		}
	}
	return "dev"
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}

// Full returns "socialsim/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
