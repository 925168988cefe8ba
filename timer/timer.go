// Package timer implements the Task Timer: a scoped resource wrapped
// around any unit of work that measures wall-clock time, self CPU time,
// and self+children CPU time, submitting a telemetry.RunTimeRecord to a
// configured sink on exit — including exceptional exit, via defer.
package timer

import (
	"syscall"
	"time"

	"plato-wp36.eu/testbench/telemetry"
)

// snapshot captures the three clocks measured at Start and again at Stop;
// the difference between two snapshots is the elapsed run time recorded.
type snapshot struct {
	wall        time.Time
	cpuSelf     time.Duration
	cpuChildren time.Duration
}

func measure() snapshot {
	var self, children syscall.Rusage
	// Errors from Getrusage are ignored deliberately: on the platforms this
	// runs on it fails only for an invalid `who` argument, which RUSAGE_SELF
	// and RUSAGE_CHILDREN never are, so a failure here would indicate the
	// timer itself is broken rather than anything about the task it wraps.
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &self)
	_ = syscall.Getrusage(syscall.RUSAGE_CHILDREN, &children)

	return snapshot{
		wall:        time.Now(),
		cpuSelf:     rusageCPU(self),
		cpuChildren: rusageCPU(self) + rusageCPU(children),
	}
}

func rusageCPU(r syscall.Rusage) time.Duration {
	user := time.Duration(r.Utime.Sec)*time.Second + time.Duration(r.Utime.Usec)*time.Microsecond
	sys := time.Duration(r.Stime.Sec)*time.Second + time.Duration(r.Stime.Usec)*time.Microsecond
	return user + sys
}

// Timer is a single scoped measurement in progress.
type Timer struct {
	sink       telemetry.RunTimeSink
	jobName    string
	tdaCode    string
	targetName string
	taskName   string
	lcLength   float64

	start snapshot
}

// Start begins timing a task. The caller must defer Stop to ensure the
// record is submitted on every exit path, including a panic unwinding
// through the deferred call.
func Start(sink telemetry.RunTimeSink, jobName, tdaCode, targetName, taskName string, lcLength float64) *Timer {
	return &Timer{
		sink:       sink,
		jobName:    jobName,
		tdaCode:    tdaCode,
		targetName: targetName,
		taskName:   taskName,
		lcLength:   lcLength,
		start:      measure(),
	}
}

// Stop ends the measurement and submits the resulting RunTimeRecord
// through the sink configured at Start. It is safe to call exactly once
// per Timer; intended usage is `defer timer.Stop()` immediately after
// Start returns.
func (t *Timer) Stop() error {
	end := measure()

	record := telemetry.RunTimeRecord{
		JobName:     t.jobName,
		TDACode:     t.tdaCode,
		TargetName:  t.targetName,
		TaskName:    t.taskName,
		Parameters:  map[string]interface{}{"lc_length": t.lcLength},
		Timestamp:   float64(t.start.wall.UnixNano()) / 1e9,
		Wall:        end.wall.Sub(t.start.wall).Seconds(),
		CPUSelf:     (end.cpuSelf - t.start.cpuSelf).Seconds(),
		CPUChildren: (end.cpuChildren - t.start.cpuChildren).Seconds(),
	}

	return t.sink.Record(record)
}
