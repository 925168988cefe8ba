package telemetry

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"plato-wp36.eu/testbench/broker"
)

const (
	runTimesQueue = "run_times"
	resultsQueue  = "results"
)

// RunTimeSink records a RunTimeRecord. Both concrete back-ends below never
// block on the consumer side: the broker back-end dials, publishes, and
// disconnects per call.
type RunTimeSink interface {
	Record(record RunTimeRecord) error
}

// ResultSink records a ResultRecord.
type ResultSink interface {
	Record(record ResultRecord) error
}

// BrokerRunTimeSink publishes to the run_times queue.
type BrokerRunTimeSink struct {
	Broker *broker.Broker
}

func (s *BrokerRunTimeSink) Record(record RunTimeRecord) error {
	return s.Broker.Publish(runTimesQueue, record)
}

// BrokerResultSink publishes to the results queue.
type BrokerResultSink struct {
	Broker *broker.Broker
}

func (s *BrokerResultSink) Record(record ResultRecord) error {
	return s.Broker.Publish(resultsQueue, record)
}

// LogRunTimeSink emits one structured log line per record, used by local
// dispatch mode where no drain/store is running.
type LogRunTimeSink struct {
	Logger *logrus.Logger
}

func (s *LogRunTimeSink) Record(record RunTimeRecord) error {
	s.Logger.WithFields(logrus.Fields{
		"job_name":          record.JobName,
		"tda_code":          record.TDACode,
		"target_name":       record.TargetName,
		"task_name":         record.TaskName,
		"wall":              record.Wall,
		"cpu_self":          record.CPUSelf,
		"cpu_with_children": record.CPUChildren,
		"wall_human":        humanizeDuration(secondsToDuration(record.Wall)),
	}).Info("run time recorded")
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// humanizeDuration mirrors common.LogDuration's formatting choice: sub-second
// elapsed times are rendered as comma-grouped microseconds, anything at or
// above a second uses Duration's own millisecond-rounded String form.
func humanizeDuration(d time.Duration) string {
	if d >= time.Second {
		return d.Round(time.Millisecond).String()
	}
	return humanize.Comma(d.Microseconds()) + "us"
}

// LogResultSink emits one structured log line per record.
type LogResultSink struct {
	Logger *logrus.Logger
}

func (s *LogResultSink) Record(record ResultRecord) error {
	s.Logger.WithFields(logrus.Fields{
		"job_name":    record.JobName,
		"tda_code":    record.TDACode,
		"target_name": record.TargetName,
		"task_name":   record.TaskName,
	}).Info("result recorded")
	return nil
}
