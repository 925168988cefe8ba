// Package common provides centralized logging infrastructure for the testbench.
// This package implements intelligent log output routing that automatically directs
// error messages to stderr while sending other log levels to stdout, enabling
// proper stream separation for containerized and scripted environments.
//
// The logging system is built on logrus for structured logging capabilities with
// custom output handling shared by every long-running service in this repository:
// the worker loop, the two telemetry drains, and the CLI's synchronous commands.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log records to stderr or stdout based on
// their level, so operators can tail stdout for progress and stderr for
// actionable failures without a log aggregator in front of the process.
type OutputSplitter struct{}

// Write implements io.Writer. Error-level records (in either text or JSON
// formatter output) go to stderr; everything else goes to stdout.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance used by every package in this module
// that does not otherwise have a request-scoped or task-scoped logger
// available. Task-scoped structured context should prefer ContextLogger.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
