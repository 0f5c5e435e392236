package core

import "fmt"

// Build metadata, injected with:
//
//	go build -ldflags "-X roomify/core.Version=$(git describe --tags --always) \
//	  -X roomify/core.GitCommit=$(git rev-parse --short HEAD) \
//	  -X roomify/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// VersionString is printed by `roomify version` and logged at startup.
func VersionString() string {
	return fmt.Sprintf("roomify %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
