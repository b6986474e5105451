package main

import (
	"fmt"
	"os"

	"github.com/tphakala/plantclef-go/cmd"
	"github.com/tphakala/plantclef-go/internal/buildinfo"
	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   string
	buildDate string
)

func main() {
	ctx := &conf.Context{Build: buildinfo.NewContext(version, buildDate)}

	rootCmd := cmd.RootCommand(ctx)
	err := rootCmd.Execute()

	_ = logger.Global().Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
