// Package version haelt die Versionskennung des Binaries.
package version

// Version wird beim Release-Build via -ldflags ueberschrieben:
// -X github.com/peftlab/peftllama/version.Version=...
var Version = "0.0.0"
