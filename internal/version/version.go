// Package version reports the scopecraft build version.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String returns the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("scopecraft version %s (%s %s/%s)", Get(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
