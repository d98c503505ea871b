package version

// Version is the release version, overridden at build time via
// -ldflags "-X varanus/version.Version=...".
var Version = "0.3.0"
