package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo, ok bool) {
	t.Helper()
	origRead, origVersion, origCommit := readBuildInfo, Version, GitCommit
	t.Cleanup(func() {
		readBuildInfo, Version, GitCommit = origRead, origVersion, origCommit
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, ok }
}

func TestGet_NoBuildInfo(t *testing.T) {
	withBuildInfo(t, nil, false)
	Version, GitCommit = "dev", ""

	info := Get()
	if info.Version != "dev" || info.GitCommit != "" {
		t.Errorf("unexpected info %+v", info)
	}
	if Short() != "dev" {
		t.Errorf("expected dev, got %q", Short())
	}
	if UserAgent() != "httpdispatch/dev" {
		t.Errorf("unexpected user agent %q", UserAgent())
	}
}

func TestGet_FromBuildInfo(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Main:      debug.Module{Path: "example.com/app", Version: "(devel)"},
		Deps:      []*debug.Module{{Path: modulePath, Version: "v1.4.2"}},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}, true)
	Version, GitCommit = "dev", ""

	info := Get()
	if info.Version != "1.4.2" {
		t.Errorf("expected dependency version, got %q", info.Version)
	}
	if info.GitCommit != "0123456" || !info.IsDirty || info.GoVersion != "go1.25.0" {
		t.Errorf("unexpected info %+v", info)
	}
	if Short() != "1.4.2-0123456-dirty" {
		t.Errorf("unexpected short version %q", Short())
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Path: modulePath, Version: "v0.9.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}},
	}, true)
	Version, GitCommit = "2.0.0", "abc1234"

	if got := Short(); got != "2.0.0-abc1234" {
		t.Errorf("expected ldflags values, got %q", got)
	}
}
