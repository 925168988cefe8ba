package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plato-wp36.eu/testbench/arena"
	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/config"
	"plato-wp36.eu/testbench/db/repository"
	"plato-wp36.eu/testbench/dispatch"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/runner"
	"plato-wp36.eu/testbench/tda"
	"plato-wp36.eu/testbench/telemetry"
)

var (
	tasksDescriptor string
	runLocal        bool
	runCluster      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "expand a job descriptor and dispatch its TaskLists",
	Run:   runRun,
}

func init() {
	runCmd.Flags().StringVar(&tasksDescriptor, "tasks", "", "path to the job descriptor JSON file (required)")
	runCmd.Flags().BoolVar(&runLocal, "local", false, "run every TaskList synchronously in this process")
	runCmd.Flags().BoolVar(&runCluster, "cluster", false, "publish every TaskList to the tasks queue for workers to pick up")
	runCmd.MarkFlagRequired("tasks")
	viper.BindPFlag("run.local", runCmd.Flags().Lookup("local"))
	viper.BindPFlag("run.cluster", runCmd.Flags().Lookup("cluster"))
	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	settings := loadSettings()
	logger := newLogger(settings)

	if runLocal == runCluster {
		fmt.Fprintln(os.Stderr, "testbench: exactly one of --local or --cluster must be given")
		os.Exit(1)
	}

	if err := config.EnsureDirs(settings); err != nil {
		logger.WithError(err).Fatal("run: preparing arena directories")
	}

	descriptor, err := loadDescriptor(tasksDescriptor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "testbench: %v\n", err)
		os.Exit(1)
	}

	lists, err := iterate.ExpandTaskList(descriptor, nestedResolver(filepath.Dir(tasksDescriptor)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "testbench: expanding job descriptor: %v\n", err)
		os.Exit(1)
	}
	logger.WithField("count", len(lists)).Info("run: expanded task lists")

	b := broker.New(settings.BrokerURL)
	d, err := buildDispatcher(settings, b, logger)
	if err != nil {
		logger.WithError(err).Fatal("run: building dispatcher")
	}

	ctx := context.Background()
	for _, list := range lists {
		if err := d.Dispatch(ctx, list); err != nil {
			logger.WithError(err).WithField("job_name", list.JobName).Error("run: dispatching task list")
		}
	}
}

// buildDispatcher constructs the local or cluster Dispatcher named by the
// --local/--cluster flags. Local mode runs every TaskList synchronously
// against an in-process Task Runner whose run-time and result records go
// to the log back-ends, so no broker, drain or store is needed to see them.
func buildDispatcher(settings config.Settings, b *broker.Broker, logger *logrus.Logger) (dispatch.Dispatcher, error) {
	if runLocal {
		r, err := buildRunner(settings, b, logger)
		if err != nil {
			return nil, err
		}
		r.RunTimeSink = &telemetry.LogRunTimeSink{Logger: logger}
		r.ResultSink = &telemetry.LogResultSink{Logger: logger}
		return &dispatch.Local{Runner: r}, nil
	}

	cluster := &dispatch.Cluster{Broker: b}
	if settings.RedisURL != "" {
		lock, err := repository.NewRedisRepository(settings.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("run: connecting to redis for dedup, proceeding without it")
		} else {
			cluster.Locker = lock
		}
	}
	return cluster, nil
}

// buildRunner wires a Task Runner with the archive-backed arena, the TDA
// registry, and broker-backed telemetry sinks, as the worker loop uses it;
// buildDispatcher swaps in the log sinks for `run --local`.
func buildRunner(settings config.Settings, b *broker.Broker, logger *logrus.Logger) (*runner.Runner, error) {
	archive, err := arena.NewArchiveBackend(settings.DataPath, filepath.Join(settings.ScratchPath, "arena-cache.db"), false, false)
	if err != nil {
		return nil, fmt.Errorf("opening archive backend: %w", err)
	}
	a := arena.New(archive)
	return runner.New(a, tda.NewRegistry(), &telemetry.BrokerRunTimeSink{Broker: b}, &telemetry.BrokerResultSink{Broker: b}, logger), nil
}

func loadDescriptor(path string) (iterate.JobDescriptor, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return iterate.JobDescriptor{}, fmt.Errorf("reading %q: %w", path, err)
	}
	var descriptor iterate.JobDescriptor
	if err := json.Unmarshal(body, &descriptor); err != nil {
		return iterate.JobDescriptor{}, fmt.Errorf("parsing %q: %w", path, err)
	}
	return descriptor, nil
}

// nestedResolver resolves a nested_tasks reference as a path relative to
// the referencing descriptor's own directory, per spec's "inclusion, not
// recursion at runtime" semantics.
func nestedResolver(baseDir string) func(ref string) (iterate.JobDescriptor, error) {
	return func(ref string) (iterate.JobDescriptor, error) {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, ref)
		}
		return loadDescriptor(path)
	}
}
