// Package version reports the version lumen was built from.
package version

import "runtime/debug"

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/lumenaudio/lumen/version.Version=$(git describe --dirty)"

var Version string

var Hash = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		modified := false
		for _, setting := range info.Settings {
			if setting.Key == "vcs.modified" && setting.Value == "true" {
				modified = true
				break
			}
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				shortHash := setting.Value
				if len(shortHash) > 7 {
					shortHash = shortHash[:7]
				}
				if modified {
					return shortHash + "-dirty"
				}
				return shortHash
			}
		}
	}
	return ""
}()

// VersionOrHash is Version when set at build time, otherwise the VCS hash.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "dev"
}()
