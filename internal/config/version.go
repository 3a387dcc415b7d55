package config

import (
	"fmt"
	"runtime/debug"
)

// Release builds stamp these with -ldflags "-X".
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

const unknown = "unknown"

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version  string `json:"version"`
	Build    string `json:"build"`
	Commit   string `json:"git_commit"`
	Modified bool   `json:"modified,omitempty"`
}

// CurrentBuild returns the stamped build info. Fields left unstamped fall
// back to the module version and VCS settings embedded by the toolchain.
func CurrentBuild() BuildInfo {
	return buildInfo(debug.ReadBuildInfo)
}

func buildInfo(read func() (*debug.BuildInfo, bool)) BuildInfo {
	b := BuildInfo{Version: Version, Build: Build, Commit: GitCommit}
	bi, ok := read()
	if !ok || bi == nil {
		return b
	}
	if b.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		b.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == unknown && s.Value != "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Build == unknown && s.Value != "" {
				b.Build = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// ShortCommit is the commit hash cut to seven characters.
func (b BuildInfo) ShortCommit() string {
	if len(b.Commit) > 7 && b.Commit != unknown {
		return b.Commit[:7]
	}
	return b.Commit
}

// String renders the one-line form printed by --version.
func (b BuildInfo) String() string {
	commit := b.ShortCommit()
	if b.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit %s, built %s)", b.Version, commit, b.Build)
}
