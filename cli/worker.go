package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/config"
	"plato-wp36.eu/testbench/workerloop"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run the worker loop, fetching and executing TaskLists from the tasks queue",
	Run:   runWorker,
}

func init() {
	RootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	settings := loadSettings()
	logger := newLogger(settings)

	if err := config.EnsureDirs(settings); err != nil {
		logger.WithError(err).Fatal("worker: preparing arena directories")
	}

	b := broker.New(settings.BrokerURL)
	r, err := buildRunner(settings, b, logger)
	if err != nil {
		logger.WithError(err).Fatal("worker: building task runner")
	}

	loop := workerloop.New(b, r, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: entering fetch/execute loop")
	loop.Run(ctx)
	logger.Info("worker: shut down")
}
