// Package runner implements the Task Runner: executes one TaskList's
// verbs in order, sharing job_name/job_parameters/clean_up across them,
// inside a per-TaskList scoped working-directory guard. A verb error
// aborts the remainder of that TaskList and is captured as a single
// error_message ResultRecord rather than propagated to the caller, since
// other TaskLists are unaffected by one TaskList's failure.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"plato-wp36.eu/testbench/arena"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/synth"
	"plato-wp36.eu/testbench/tda"
	"plato-wp36.eu/testbench/telemetry"
	"plato-wp36.eu/testbench/timer"
)

// Runner holds everything a TaskList's verbs need: the product arena, the
// TDA registry, the two synthesis back-ends, and the telemetry sinks
// every verb times or reports through.
type Runner struct {
	Arena        *arena.Arena
	TDARegistry  *tda.Registry
	Synthesisers map[string]synth.Synthesiser
	RunTimeSink  telemetry.RunTimeSink
	ResultSink   telemetry.ResultSink
	Logger       *logrus.Logger
}

// New wires the standard PSLS/Batman synthesisers under their verb names.
func New(a *arena.Arena, tdas *tda.Registry, runTimeSink telemetry.RunTimeSink, resultSink telemetry.ResultSink, logger *logrus.Logger) *Runner {
	return &Runner{
		Arena:       a,
		TDARegistry: tdas,
		Synthesisers: map[string]synth.Synthesiser{
			"psls_synthesise":   synth.PSLS{},
			"batman_synthesise": synth.Batman{},
		},
		RunTimeSink: runTimeSink,
		ResultSink:  resultSink,
		Logger:      logger,
	}
}

// execution carries the state shared across every task of a single
// TaskList run: which job it belongs to, and which archive artifacts it
// has written so clean_up can remove them afterward.
type execution struct {
	runner         *Runner
	jobName        string
	jobParameters  map[string]interface{}
	archiveHandles []arena.Handle
}

// Run executes every task of list in order. Errors from individual tasks
// never escape Run: they are recorded as an error_message ResultRecord
// and abort the remaining tasks of this list only.
func (r *Runner) Run(ctx context.Context, list iterate.TaskList) {
	guard, err := newCWDGuard()
	if err != nil {
		r.Logger.WithError(err).Error("runner: capturing working directory")
		return
	}
	defer func() {
		if err := guard.release(); err != nil {
			r.Logger.WithError(err).Error("runner: restoring working directory")
		}
	}()

	e := &execution{runner: r, jobName: list.JobName, jobParameters: list.JobParameters}

	// clean_up applies whether the list finished or aborted on error: an
	// artifact synthesized just before a later task fails is still a
	// leftover that clean_up=true promises to remove.
	defer func() {
		if list.CleanUp {
			e.cleanUp()
		}
	}()

	defer func() {
		if rec := recover(); rec != nil {
			e.submitError(fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
		}
	}()

	for _, task := range list.Tasks {
		if err := e.runTask(ctx, task); err != nil {
			e.submitError(err)
			return
		}
	}
}

// runTask dispatches one ConcreteTask to its verb handler. Every task
// runs inside a Task Timer regardless of outcome, per the per-task-list
// timing contract.
func (e *execution) runTask(ctx context.Context, task iterate.ConcreteTask) error {
	verb, ok := task["task"].(string)
	if !ok {
		return fmt.Errorf("runner: task missing string \"task\" field")
	}

	handler, ok := verbTable[verb]
	if !ok {
		return fmt.Errorf("runner: unknown verb %q", verb)
	}

	targetName, tdaCode := taskIdentity(task, verb)
	tm := timer.Start(e.runner.RunTimeSink, e.jobName, tdaCode, targetName, verb, 0)
	defer func() {
		if stopErr := tm.Stop(); stopErr != nil {
			e.runner.Logger.WithError(stopErr).Warn("runner: submitting run time record")
		}
	}()
	return handler(ctx, e, task)
}

// submitError records the formatted task error as an error_message
// ResultRecord, per the TaskList-scoped error contract. A failure to
// submit is only logged: there is no further escalation path from here.
func (e *execution) submitError(taskErr error) {
	record := telemetry.ResultRecord{
		JobName:       e.jobName,
		TaskName:      "error_message",
		Parameters:    e.jobParameters,
		Timestamp:     nowSeconds(),
		ResultSummary: map[string]interface{}{"error": taskErr.Error()},
	}
	if err := e.runner.ResultSink.Record(record); err != nil {
		e.runner.Logger.WithError(err).Error("runner: submitting error_message result")
	}
}

func (e *execution) trackArchiveHandle(h arena.Handle) {
	e.archiveHandles = append(e.archiveHandles, h)
}

// cleanUp removes every archive artifact this TaskList wrote, per
// clean_up=true's contract. Memory-backed artifacts need no cleanup:
// they die with the worker process.
func (e *execution) cleanUp() {
	for _, h := range e.archiveHandles {
		if err := e.runner.Arena.Remove(h); err != nil {
			e.runner.Logger.WithError(err).Warn("runner: clean_up failed to remove archive artifact")
		}
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
