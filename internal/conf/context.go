package conf

import "github.com/tphakala/plantclef-go/internal/buildinfo"

// Context carries the command line state shared by all subcommands. Settings
// is filled in by the root command before any subcommand runs.
type Context struct {
	ConfigPath string
	Debug      bool
	Settings   *Settings
	Build      *buildinfo.Context
}
