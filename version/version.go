package version

import "golang.org/x/mod/semver"

// Version is the release of the running binary.
var Version = "0.1.0"

func GetCurrentVersion() string {
	return Version
}

// IsVersionGreaterThan reports whether a is a newer release than b.
// Versions are plain "x.y.z" strings without the "v" prefix.
func IsVersionGreaterThan(a, b string) bool {
	return semver.Compare("v"+a, "v"+b) > 0
}
