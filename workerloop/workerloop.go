// Package workerloop implements the Worker Loop: the
// Idle -> Fetching -> Working -> Acknowledging -> Idle state machine
// driving a cluster worker process, with *->Backoff->Fetching on broker
// error. Each iteration opens a fresh broker connection, pulls exactly
// one message via basic_get (acknowledging it immediately on receipt),
// closes the connection, and only then executes the TaskList — by
// design, so a multi-hour task never holds a connection open.
package workerloop

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/runner"
	"plato-wp36.eu/testbench/telemetry"
)

// tasksQueue is the ingress queue the worker loop fetches from.
const tasksQueue = "tasks"

const (
	defaultBrokerBackoff = 30 * time.Second
	defaultEmptyBackoff  = 10 * time.Second
)

// State names the loop's current position in its state machine.
type State string

const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateWorking       State = "working"
	StateAcknowledging State = "acknowledging"
	StateBackoff       State = "backoff"
)

// Loop drives one worker process's fetch/execute cycle against a shared
// tasks queue until its context is cancelled (SIGINT).
type Loop struct {
	Broker        *broker.Broker
	Runner        *runner.Runner
	Logger        *logrus.Logger
	BrokerBackoff time.Duration
	EmptyBackoff  time.Duration

	state State
}

// New constructs a Loop in its initial Idle state.
func New(b *broker.Broker, r *runner.Runner, logger *logrus.Logger) *Loop {
	return &Loop{Broker: b, Runner: r, Logger: logger, state: StateIdle}
}

// State reports the loop's current state, mainly for tests and logging.
func (l *Loop) State() State { return l.state }

func (l *Loop) brokerBackoff() time.Duration {
	if l.BrokerBackoff > 0 {
		return l.BrokerBackoff
	}
	return defaultBrokerBackoff
}

func (l *Loop) emptyBackoff() time.Duration {
	if l.EmptyBackoff > 0 {
		return l.EmptyBackoff
	}
	return defaultEmptyBackoff
}

// Run drives Step in a loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		l.Step(ctx)
	}
	l.state = StateIdle
}

// Step runs exactly one iteration of the state machine: fetch, and if a
// message was available, execute it and return to Idle. A broker error
// backs off 30s; an empty queue backs off 10s; either way the loop is
// left ready to Step again.
func (l *Loop) Step(ctx context.Context) {
	l.state = StateFetching
	body, ok, err := l.Broker.Get(tasksQueue)
	if err != nil {
		l.Logger.WithError(err).Warn("worker loop: broker unavailable, backing off")
		l.state = StateBackoff
		sleep(ctx, l.brokerBackoff())
		l.state = StateIdle
		return
	}
	if !ok {
		l.state = StateBackoff
		sleep(ctx, l.emptyBackoff())
		l.state = StateIdle
		return
	}

	var list iterate.TaskList
	if err := json.Unmarshal(body, &list); err != nil || len(list.Tasks) == 0 {
		l.Logger.WithError(err).Error("worker loop: malformed task list envelope, discarding")
		l.submitMalformedEnvelope()
		l.state = StateIdle
		return
	}

	l.state = StateWorking
	l.Runner.Run(ctx, list)
	// basic_get already acknowledged the message on receipt (see
	// broker.Broker.Get), so this state completes without a broker call: a
	// task failure above was captured as an error_message ResultRecord
	// rather than causing a redelivery.
	l.state = StateAcknowledging
	l.state = StateIdle
}

// submitMalformedEnvelope records the bad-message error taxonomy entry:
// an envelope that isn't a JSON object or lacks task_list is recorded as
// an error_message ResultRecord under job_name "untitled" and discarded.
func (l *Loop) submitMalformedEnvelope() {
	record := telemetry.ResultRecord{
		JobName:       "untitled",
		TaskName:      "error_message",
		Timestamp:     float64(time.Now().UnixNano()) / 1e9,
		ResultSummary: map[string]interface{}{"error": "malformed task list envelope"},
	}
	if err := l.Runner.ResultSink.Record(record); err != nil {
		l.Logger.WithError(err).Error("worker loop: submitting error_message for malformed envelope")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
