package version

import "fmt"

// Name of the tool as shown in the banner and JSON output
const Name = "netsweep"

// Version is the semantic version of the build, overridable via ldflags
var Version = "v0.1.0"

// GetVersion returns the version string
func GetVersion() string {
	return Version
}

// UserAgent returns "<name>/<version>"
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, Version)
}
