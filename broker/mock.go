package broker

import (
	"github.com/streadway/amqp"
)

// MockConnection is a mock Connection for testing.
type MockConnection struct {
	MockChannel Channel
	ChannelErr  error
	CloseErr    error
}

func (m *MockConnection) Channel() (Channel, error) {
	if m.ChannelErr != nil {
		return nil, m.ChannelErr
	}
	return m.MockChannel, nil
}

func (m *MockConnection) Close() error { return m.CloseErr }

// MockChannel is a mock Channel for testing, recording published messages
// and serving queued deliveries back out of an in-memory FIFO per queue
// name so Get/Consume can be exercised without a broker.
type MockChannel struct {
	PublishedMessages []amqp.Publishing
	PublishedKeys     []string

	Queues map[string][]amqp.Delivery

	QueueDeclareErr error
	PublishErr      error
	GetErr          error
	CloseErr        error

	Acknowledger *MockAcknowledger
}

// MockAcknowledger records Ack/Nack/Reject calls made against deliveries
// produced by a MockChannel, letting tests assert on drain/worker-loop
// acknowledgement behavior without a live broker.
type MockAcknowledger struct {
	Acked   []uint64
	Nacked  []uint64
	Requeue []bool
}

func (a *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.Acked = append(a.Acked, tag)
	return nil
}

func (a *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.Nacked = append(a.Nacked, tag)
	a.Requeue = append(a.Requeue, requeue)
	return nil
}

func (a *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	a.Nacked = append(a.Nacked, tag)
	a.Requeue = append(a.Requeue, requeue)
	return nil
}

func NewMockChannel() *MockChannel {
	return &MockChannel{Queues: map[string][]amqp.Delivery{}}
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if m.QueueDeclareErr != nil {
		return amqp.Queue{}, m.QueueDeclareErr
	}
	if m.Queues == nil {
		m.Queues = map[string][]amqp.Delivery{}
	}
	if _, ok := m.Queues[name]; !ok {
		m.Queues[name] = nil
	}
	return amqp.Queue{Name: name, Messages: len(m.Queues[name])}, nil
}

func (m *MockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.PublishedMessages = append(m.PublishedMessages, msg)
	m.PublishedKeys = append(m.PublishedKeys, key)
	if m.Queues == nil {
		m.Queues = map[string][]amqp.Delivery{}
	}
	m.Queues[key] = append(m.Queues[key], amqp.Delivery{Body: msg.Body})
	return nil
}

func (m *MockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	out := make(chan amqp.Delivery, len(m.Queues[queue]))
	for _, d := range m.Queues[queue] {
		out <- m.withAcknowledger(d)
	}
	m.Queues[queue] = nil
	close(out)
	return out, nil
}

func (m *MockChannel) Get(queue string, autoAck bool) (amqp.Delivery, bool, error) {
	if m.GetErr != nil {
		return amqp.Delivery{}, false, m.GetErr
	}
	pending := m.Queues[queue]
	if len(pending) == 0 {
		return amqp.Delivery{}, false, nil
	}
	m.Queues[queue] = pending[1:]
	return m.withAcknowledger(pending[0]), true, nil
}

// withAcknowledger attaches the channel's MockAcknowledger to a delivery so
// tests can call Ack/Nack on values produced by Get/Consume without a real
// broker connection backing them.
func (m *MockChannel) withAcknowledger(d amqp.Delivery) amqp.Delivery {
	if m.Acknowledger == nil {
		m.Acknowledger = &MockAcknowledger{}
	}
	d.Acknowledger = m.Acknowledger
	return d
}

func (m *MockChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (m *MockChannel) Close() error { return m.CloseErr }

// MockDialer is a mock Dialer for testing.
type MockDialer struct {
	MockConnection Connection
	DialErr        error
	LastURL        string
}

func (m *MockDialer) Dial(url string) (Connection, error) {
	m.LastURL = url
	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return m.MockConnection, nil
}

// NewMockDialer wires a fresh MockDialer/MockConnection/MockChannel trio
// sharing one in-memory queue map, the common case for tests that publish
// on one handle and fetch on another.
func NewMockDialer() (*MockDialer, *MockChannel) {
	channel := NewMockChannel()
	conn := &MockConnection{MockChannel: channel}
	return &MockDialer{MockConnection: conn}, channel
}

// NewMockDialerWithError returns a dialer whose Dial always fails, used to
// exercise the transient-broker-error path.
func NewMockDialerWithError(err error) *MockDialer {
	return &MockDialer{DialErr: err}
}
