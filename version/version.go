// Package version holds the build version.
package version

// VERSION is set at build time, e.g.:
//
//   go build -ldflags "-X github.com/JiscSD/earthquake-datastore-updater/version.VERSION=v1.0.0"
//
var VERSION = "(untracked)"
