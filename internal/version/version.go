package version

import "fmt"

// Version is the semver of the current build.
var Version = "0.4.1"

// DevVersion is the developing version.
var DevVersion = "0.5.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return fmt.Sprintf("%s-%s", DevVersion, mode)
	}
	return Version
}
