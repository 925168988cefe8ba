//go:build integration

package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokertesting "plato-wp36.eu/testbench/containers/testing"
)

func setupBroker(t *testing.T) *Broker {
	ctx := context.Background()

	amqpURL, _, cleanup, err := brokertesting.SetupRabbitMQ(ctx, t, nil)
	require.NoError(t, err, "failed to start RabbitMQ container")
	t.Cleanup(cleanup)

	return New(amqpURL)
}

func TestBroker_Integration_PublishThenGet(t *testing.T) {
	b := setupBroker(t)

	require.NoError(t, b.Publish("tasks", map[string]interface{}{"job_name": "job-a"}))

	body, ok, err := b.Get("tasks")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(body), "job-a")
}

func TestBroker_Integration_GetOnEmptyQueueReturnsNotOK(t *testing.T) {
	b := setupBroker(t)

	_, ok, err := b.Get("tasks-empty")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBroker_Integration_ConsumeDeliversPublishedMessages(t *testing.T) {
	b := setupBroker(t)

	require.NoError(t, b.Publish("run_times", map[string]interface{}{"job_name": "job-b"}))

	sub, err := b.Consume("run_times")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case delivery := <-sub.Deliveries:
		assert.Contains(t, string(delivery.Body), "job-b")
		require.NoError(t, delivery.Ack(false))
	}
}
