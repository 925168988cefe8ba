package telemetry

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plato-wp36.eu/testbench/broker"
)

func TestBrokerRunTimeSink_PublishesToRunTimesQueue(t *testing.T) {
	dialer, channel := broker.NewMockDialer()
	sink := &BrokerRunTimeSink{Broker: &broker.Broker{URL: "amqp://test", Dialer: dialer}}

	err := sink.Record(RunTimeRecord{JobName: "job-a", TaskName: "verify", Wall: 1.5})
	require.NoError(t, err)
	require.Len(t, channel.PublishedMessages, 1)
	assert.Equal(t, runTimesQueue, channel.PublishedKeys[0])
	assert.Contains(t, string(channel.PublishedMessages[0].Body), "job-a")
}

func TestBrokerResultSink_PublishesToResultsQueue(t *testing.T) {
	dialer, channel := broker.NewMockDialer()
	sink := &BrokerResultSink{Broker: &broker.Broker{URL: "amqp://test", Dialer: dialer}}

	err := sink.Record(ResultRecord{JobName: "job-a", TaskName: "error_message"})
	require.NoError(t, err)
	require.Len(t, channel.PublishedMessages, 1)
	assert.Equal(t, resultsQueue, channel.PublishedKeys[0])
}

func TestLogRunTimeSink_Record(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	sink := &LogRunTimeSink{Logger: logger}

	require.NoError(t, sink.Record(RunTimeRecord{JobName: "job-a", TaskName: "verify"}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "job-a", hook.Entries[0].Data["job_name"])
}

func TestLogResultSink_Record(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	sink := &LogResultSink{Logger: logger}

	require.NoError(t, sink.Record(ResultRecord{JobName: "job-a", TaskName: "error_message"}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "error_message", hook.Entries[0].Data["task_name"])
}
