package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/config"
	"plato-wp36.eu/testbench/drain"
	"plato-wp36.eu/testbench/store"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "persist one telemetry stream (run times or results) into the store",
}

var drainRunTimesCmd = &cobra.Command{
	Use:   "runtimes",
	Short: "consume the run_times queue and persist into eas_run_times",
	Run:   runDrainRunTimes,
}

var drainResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "consume the results queue and persist into eas_results",
	Run:   runDrainResults,
}

func init() {
	drainCmd.AddCommand(drainRunTimesCmd)
	drainCmd.AddCommand(drainResultsCmd)
	RootCmd.AddCommand(drainCmd)
}

func openStore(settings config.Settings) *store.Store {
	s, err := store.Open(settings.PostgresDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "testbench: connecting to store: %v\n", err)
		os.Exit(1)
	}
	return s
}

func drainContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runDrainRunTimes(cmd *cobra.Command, args []string) {
	settings := loadSettings()
	logger := newLogger(settings)
	s := openStore(settings)

	d := &drain.RunTimesDrain{
		Broker: broker.New(settings.BrokerURL),
		Store:  s,
		Logger: logger,
	}

	ctx, stop := drainContext()
	defer stop()
	logger.Info("drain: consuming run_times")
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("drain: run_times consumer exited")
	}
}

func runDrainResults(cmd *cobra.Command, args []string) {
	settings := loadSettings()
	logger := newLogger(settings)
	s := openStore(settings)

	d := &drain.ResultsDrain{
		Broker:    broker.New(settings.BrokerURL),
		Store:     s,
		Logger:    logger,
		OutputDir: settings.OutputPath,
	}

	ctx, stop := drainContext()
	defer stop()
	logger.Info("drain: consuming results")
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("drain: results consumer exited")
	}
}
