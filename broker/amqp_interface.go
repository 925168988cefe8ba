// Package broker wraps RabbitMQ connection/channel access behind small
// interfaces so every other package that talks to the broker (telemetry
// sinks, the drains, the dispatcher, the worker loop) can be exercised
// against an in-memory mock without a running RabbitMQ.
package broker

import (
	"github.com/streadway/amqp"
)

// Connection abstracts an amqp.Connection.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Channel abstracts an amqp.Channel. Get is the basic_get primitive the
// worker loop's single-message-pull-per-connection discipline depends on;
// the teacher's own AMQPChannel interface has no equivalent since it only
// ever used long-lived Consume.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Dialer abstracts amqp.Dial for dependency injection in tests.
type Dialer interface {
	Dial(url string) (Connection, error)
}

// RealConnection wraps a real *amqp.Connection.
type RealConnection struct {
	conn *amqp.Connection
}

func (r *RealConnection) Channel() (Channel, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &RealChannel{ch: ch}, nil
}

func (r *RealConnection) Close() error { return r.conn.Close() }

// RealChannel wraps a real *amqp.Channel.
type RealChannel struct {
	ch *amqp.Channel
}

func (r *RealChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return r.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (r *RealChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return r.ch.Publish(exchange, key, mandatory, immediate, msg)
}

func (r *RealChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return r.ch.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (r *RealChannel) Get(queue string, autoAck bool) (amqp.Delivery, bool, error) {
	return r.ch.Get(queue, autoAck)
}

func (r *RealChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return r.ch.Qos(prefetchCount, prefetchSize, global)
}

func (r *RealChannel) Close() error { return r.ch.Close() }

// RealDialer dials a real RabbitMQ broker.
type RealDialer struct{}

func (RealDialer) Dial(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &RealConnection{conn: conn}, nil
}
