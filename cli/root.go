// Package cli provides the command-line entry point for the testbench:
// submitting an expanded job (locally or onto the cluster), draining the
// two telemetry queues into the store, initialising the store schema,
// and running a worker loop process.
//
// Configuration is loaded the same way across every subcommand: the
// key:value configuration file named by --config (or config.DefaultPath)
// is read, then any EAS_-prefixed environment variable overrides the
// matching setting. --config is the only flag that feeds configuration.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plato-wp36.eu/testbench/config"
)

var cfgFile string

// RootCmd is the testbench entry point; each operation is a subcommand
// rather than the root's own Run, since there is no single default
// action analogous to the teacher's one HTTP server.
var RootCmd = &cobra.Command{
	Use:   "testbench",
	Short: "PLATO WP36 transit-detection testbench",
	Long: `testbench orchestrates a grid of synthetic light-curve
configurations through a pool of worker processes, recording per-task
timing and detection results into a relational store.

Subcommands:
  run     expand and dispatch a job descriptor (--local or --cluster)
  worker  run the worker loop, fetching and executing TaskLists
  drain   persist one of the two telemetry streams into the store
  initdb  create or refresh the store schema`,
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath+")")
	viper.BindPFlag("config", RootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
}

// loadSettings resolves the --config flag (falling back to config.DefaultPath)
// and loads+validates the merged configuration, exiting non-zero on
// failure per spec's Fatal error kind ("missing configuration file").
func loadSettings() config.Settings {
	settings, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "testbench: %v\n", err)
		os.Exit(1)
	}
	return settings
}

// newLogger builds the shared logrus logger every subcommand uses,
// honoring the configuration's debug flag.
func newLogger(settings config.Settings) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if settings.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// Execute runs the root command, the sole entry point main.go calls.
func Execute() error {
	return RootCmd.Execute()
}
