// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X ledviz/pkg/build.buildVersion=0.3.0 \
//	    -X ledviz/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X ledviz/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// An unstamped binary is a development build and reports "dev".
package build

import "fmt"

const (
	appName        = "ledviz"
	appDescription = "Audio reactive LED strip visualizer"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags.
var (
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        appName,
		Description: appDescription,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the link-time values into the build info. Either all of
// version, commit and time are stamped or none are; a partial stamp means the
// release tooling is broken and is reported as an error.
func Initialize() error {
	stamped := 0
	for _, v := range []string{buildTime, buildCommit, buildVersion} {
		if v != "" {
			stamped++
		}
	}
	if stamped == 0 {
		return nil
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}

	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders the version line printed by --version.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
