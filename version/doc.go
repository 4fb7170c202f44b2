// Package version reports the library build version. Version and GitCommit
// can be set with -ldflags; otherwise they come from the embedded build info.
package version
