package sqlitedb

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 3,
		Patch: 0,
		Build: semver.Commit(),
	}
)

// Version returns the library version, with the VCS commit as build metadata.
func Version() semver.Version {
	return version
}
