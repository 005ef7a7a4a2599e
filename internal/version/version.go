// Package version holds the single version attribute for the module.
// Release builds override it with -ldflags "-X relatics.dev/relatics/internal/version.Version=...".
package version

// Version is the module version. The default marks development builds.
var Version = "0.3.0"

// UserAgent returns the user agent string sent with every request to
// Relatics. The value shows up in the webservice logs on the Relatics side,
// so it carries the module name and version.
func UserAgent() string {
	return "go-relatics/" + Version
}
