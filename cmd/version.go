package cmd

import (
	"fmt"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s %s (commit: %s, built: %s)\n", progName, version, commit, date))
}
