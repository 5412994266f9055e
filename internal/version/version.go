// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// UserAgent is sent with every outbound HTTP request.
const UserAgent = "ls-rise/" + Version

// Milestones:
// 0.3.0 - Moon phase silhouettes, star field rotation, mountain shading, HTTP scene API
// 0.2.0 - Geolocated sunrise/sunset via astronomy API, local ephemeris fallback, cache
// 0.1.0 - Initial release: TUI clock, greeting, fixed sky gradients
