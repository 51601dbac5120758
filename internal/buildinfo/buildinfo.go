// Package buildinfo exposes version metadata for the CLI. Values are set at
// build time via -ldflags; cli.Version and cli.Date are honored as fallbacks.
package buildinfo

import (
	"strings"

	"github.com/GjhanAi/albion-recipes/cli"
)

var (
	// Version is the semantic version or custom string. Defaults to cli.Version or "dev".
	Version = "dev"
	// Commit is the VCS commit hash (optional).
	Commit = ""
	// Date is the build time (optional). Falls back to cli.Date.
	Date = ""
	// BuiltBy is an optional builder identifier.
	BuiltBy = ""
)

// userAgent is the client identifier sent on every outbound request.
const userAgent = "AlbionRecipesSync/1.0"

// UserAgent returns the outbound HTTP client identifier.
func UserAgent() string { return userAgent }

// Summary returns a concise single-line version string.
func Summary() string {
	v := Version
	if v == "" {
		v = cli.Version
	}
	if v == "" {
		v = "dev"
	}

	d := Date
	if d == "" {
		d = cli.Date
	}

	parts := make([]string, 0, 2)
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		parts = append(parts, "commit="+c)
	}
	if d != "" {
		parts = append(parts, "date="+d)
	}
	if len(parts) > 0 {
		v += " (" + strings.Join(parts, ", ") + ")"
	}
	return v
}
