// Package version provides version information for the currencyinfo application.
package version

// Version is the current version of the currencyinfo application.
const Version = "1.0.0"

// UserAgent returns the full agent string with versioning.
func UserAgent() string {
	return "currencyinfo/v" + Version
}
