// Package buildinfo holds build-time metadata injected by main, kept apart
// from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not provide.
const UnknownValue = "unknown"

// Context contains the version and build date set with -ldflags at build time.
type Context struct {
	version   string
	buildDate string
}

// NewContext creates a Context. Empty values are reported as UnknownValue.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version string.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// String formats the metadata for --version output.
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.Version(), c.BuildDate())
}
