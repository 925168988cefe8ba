// Package dispatch implements the two modes a JobDescriptor's expanded
// TaskLists can be handed off in: local (run in-process, synchronously,
// against a Task Runner) and cluster (publish each TaskList onto the
// tasks queue for worker processes to pick up independently).
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/runner"
)

// tasksQueue is the queue cluster mode publishes TaskLists onto and the
// worker loop fetches them from.
const tasksQueue = "tasks"

// Dispatcher hands a single expanded TaskList off to wherever it will
// run.
type Dispatcher interface {
	Dispatch(ctx context.Context, list iterate.TaskList) error
}

// Local runs every dispatched TaskList synchronously against an
// in-process Task Runner, used by `run --local`.
type Local struct {
	Runner *runner.Runner
}

func (d *Local) Dispatch(ctx context.Context, list iterate.TaskList) error {
	d.Runner.Run(ctx, list)
	return nil
}

// Locker is the minimal dedup primitive cluster mode needs: an atomic
// acquire-if-absent lock with a TTL, the shape of Redis SETNX.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// defaultLockTTL bounds how long a dedup lock survives, long enough to
// cover one worker's processing of the TaskList it guards without
// blocking a legitimate later resubmission indefinitely.
const defaultLockTTL = 10 * time.Minute

// Cluster publishes each dispatched TaskList onto the tasks queue, used
// by `run --cluster`. When Locker is set, a TaskList whose dedup key is
// already locked is assumed already queued and is silently skipped
// rather than published again — this guards against a caller retrying
// `run --cluster` after a partial submission without double-enqueuing
// work a previous invocation already queued.
type Cluster struct {
	Broker  *broker.Broker
	Locker  Locker
	LockTTL time.Duration
}

func (d *Cluster) lockTTL() time.Duration {
	if d.LockTTL > 0 {
		return d.LockTTL
	}
	return defaultLockTTL
}

func (d *Cluster) Dispatch(ctx context.Context, list iterate.TaskList) error {
	if d.Locker != nil {
		acquired, err := d.Locker.AcquireLock(ctx, dedupKey(list), d.lockTTL())
		if err != nil {
			return fmt.Errorf("dispatch: acquiring dedup lock: %w", err)
		}
		if !acquired {
			return nil
		}
	}

	if err := d.Broker.Publish(tasksQueue, list); err != nil {
		return fmt.Errorf("dispatch: publishing task list: %w", err)
	}
	return nil
}

// dedupKey derives a stable key for one expanded TaskList from its
// job_name and job_parameters (which together identify one point of the
// iteration grid, including the zero-padded "index" substitution).
func dedupKey(list iterate.TaskList) string {
	params, _ := json.Marshal(list.JobParameters)
	return fmt.Sprintf("dispatch:%s:%s", list.JobName, params)
}
