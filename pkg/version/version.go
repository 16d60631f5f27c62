// Package version reports the build of the discovery service.
package version

import "runtime/debug"

// Set via -ldflags "-X github.com/carverauto/netdiscovery/pkg/version.version=..."
//
//nolint:gochecknoglobals // ldflags injection target
var (
	version = "dev"
	buildID = ""
)

// Info is the build identity reported by the binary and the control API.
type Info struct {
	Version string `json:"version"`
	BuildID string `json:"build_id,omitempty"`
}

// Get returns the build identity. Without an injected build ID the VCS
// revision recorded by the Go toolchain is used, shortened to 12 characters.
func Get() Info {
	info := Info{Version: version, BuildID: buildID}
	if info.BuildID != "" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			info.BuildID = s.Value
			if len(info.BuildID) > 12 {
				info.BuildID = info.BuildID[:12]
			}

			break
		}
	}

	return info
}

// String renders "version (build: id)", or just the version when no build
// ID is known.
func (i Info) String() string {
	if i.BuildID == "" {
		return i.Version
	}

	return i.Version + " (build: " + i.BuildID + ")"
}
