// Package version reports the docrag build.
package version

import (
	"fmt"
	"runtime"
)

// Version is overridden at link time:
//
//	-ldflags "-X github.com/Aman-CERP/docrag/pkg/version.Version=v0.3.0"
var Version = "dev"

var (
	// Commit is the short git revision.
	Commit = "unknown"
	// Date is the build time, RFC 3339.
	Date = "unknown"
	// GoVersion is the toolchain that built the binary.
	GoVersion = runtime.Version()
)

// BuildInfo is the JSON form of `docrag version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String is the one-line banner.
func String() string {
	return fmt.Sprintf("docrag %s (%s, built %s, %s %s)",
		Version, Commit, Date, GoVersion, Platform())
}

// Platform returns GOOS/GOARCH.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// GetInfo collects the build variables.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  Platform(),
	}
}
