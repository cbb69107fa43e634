package buildconfig

import "fmt"

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/expertd/internal/buildconfig.version=v1.2.0
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info is the build metadata reported by /health and `consult version`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func Current() Info {
	return Info{Version: version, Commit: commit}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
}
