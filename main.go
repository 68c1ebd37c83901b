// Package main provides the blgate CLI.
package main

import (
	"github.com/dotcommander/blgate/internal/cmd"
	"github.com/dotcommander/blgate/internal/config"
)

// Build vars.
var (
	//nolint: gochecknoglobals
	Version = ""
	//nolint: gochecknoglobals
	CommitSHA = ""
)

func main() {
	cfg, cfgErr := config.Load(config.SettingsFile)
	cmd.Execute(cmd.BuildInfo{Version: Version, CommitSHA: CommitSHA}, cfg, cfgErr)
}
