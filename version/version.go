package version

import (
	"runtime/debug"
	"strings"
)

const modulePath = "github.com/kbukum/httpdispatch"

var (
	// These variables are set at build time using -ldflags
	Version   = "dev"
	GitCommit = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	GoVersion string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
	IsDirty   bool   `json:"is_dirty" yaml:"is_dirty"`
}

var readBuildInfo = debug.ReadBuildInfo

// Get returns the build information. When Version is unset the version of
// this module as recorded by the go tool is used.
func Get() *Info {
	info := &Info{Version: Version, GitCommit: GitCommit}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion

	if info.Version == "dev" {
		if v := moduleVersion(bi); v != "" {
			info.Version = v
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		}
	}
	return info
}

func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == modulePath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path == modulePath {
			return strings.TrimPrefix(dep.Version, "v")
		}
	}
	return ""
}

// Short returns the version, suffixed with the commit when known.
func Short() string {
	info := Get()
	if info.GitCommit == "" {
		return info.Version
	}
	s := info.Version + "-" + info.GitCommit
	if info.IsDirty {
		s += "-dirty"
	}
	return s
}

// UserAgent is the default User-Agent sent by the HTTP transport.
func UserAgent() string {
	return "httpdispatch/" + Short()
}
