// Package cmd wires the sessiond commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/worklab/sessiond/pkg/config"
	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/schema"
)

// configSearchPaths are probed, in order, for an optional sessiond.yaml.
var configSearchPaths = []string{"/etc/sessiond", "$HOME/.sessiond", "."}

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "sessiond",
	Short: "Work-session tracker with a calendar mirror",
	Long: `sessiond authenticates with a mounted service-account credential, then
tracks work sessions announced over Discord, persisting them to Firestore and
mirroring each one to a Google Calendar event that is kept extended while the
session is active.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors are returned to main, which owns
// exit-code classification.
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig populates the configuration once and applies the log level.
func loadConfig() (schema.Configuration, error) {
	cfg, err := config.Load(configSearchPaths...)
	if err != nil {
		return cfg, err
	}
	level, err := log.ParseLevel(cfg.Logs.Level)
	if err != nil {
		return cfg, err
	}
	log.Default().SetLevel(level)
	return cfg, nil
}
