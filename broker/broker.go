package broker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/streadway/amqp"
)

// ErrTransient classifies a broker failure that should be retried after a
// fixed back-off rather than surfaced as a hard failure: connection
// refused, channel dropped, or any other error reaching the broker itself.
// Publish/Get/Consume wrap every dial/channel-level error with this
// sentinel so callers can classify failures with errors.Is without
// depending on streadway/amqp's own error types.
var ErrTransient = errors.New("broker: transient error")

func wrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// Broker is a thin façade over a Dialer and a broker URL. It never holds a
// connection open across calls: every operation here dials fresh and
// closes on return, per spec's short-lived-connection-per-batch publish
// rule and the worker loop's fresh-connection-per-fetch rule. Long-running
// consumers (the telemetry drains) use Consume, which does hold its
// connection open for the lifetime of the returned Subscription.
type Broker struct {
	URL    string
	Dialer Dialer
}

// New constructs a Broker using the real AMQP dialer.
func New(url string) *Broker {
	return &Broker{URL: url, Dialer: RealDialer{}}
}

// Publish opens a fresh connection, declares queue as durable, publishes
// payload JSON-encoded to the default exchange with queue as routing key,
// and closes the connection. This is the back-end behind both Telemetry
// Sinks' broker back-end and the Dispatcher's cluster mode.
func (b *Broker) Publish(queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshaling payload for queue %q: %w", queue, err)
	}

	conn, err := b.Dialer.Dial(b.URL)
	if err != nil {
		return wrapTransient(err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return wrapTransient(err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return wrapTransient(err)
	}

	err = ch.Publish("", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return wrapTransient(err)
	}
	return nil
}

// Get opens a fresh connection, declares queue, pulls exactly one message
// via basic_get acknowledging it immediately, and closes the connection —
// the worker loop's entire fetch discipline in one call. ok is false when
// the queue was empty (not an error).
func (b *Broker) Get(queue string) (body []byte, ok bool, err error) {
	conn, err := b.Dialer.Dial(b.URL)
	if err != nil {
		return nil, false, wrapTransient(err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return nil, false, wrapTransient(err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, false, wrapTransient(err)
	}

	delivery, ok, err := ch.Get(queue, true)
	if err != nil {
		return nil, false, wrapTransient(err)
	}
	if !ok {
		return nil, false, nil
	}
	return delivery.Body, true, nil
}

// Subscription is a held-open connection serving a long-running consumer,
// used by the telemetry drains which must ack only after a successful
// store write.
type Subscription struct {
	conn       Connection
	ch         Channel
	Queue      string
	Deliveries <-chan amqp.Delivery
}

// Close tears down the subscription's channel and connection.
func (s *Subscription) Close() error {
	var errs []error
	if s.ch != nil {
		if err := s.ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("broker: closing subscription: %v", errs)
	}
	return nil
}

// Consume opens a connection, declares queue, sets a prefetch of 1, and
// starts a manual-ack consumer, returning a Subscription whose Deliveries
// channel the caller drains. The caller is responsible for Ack/Nack on
// each delivery and for calling Close when done.
func (b *Broker) Consume(queue string) (*Subscription, error) {
	conn, err := b.Dialer.Dial(b.URL)
	if err != nil {
		return nil, wrapTransient(err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, wrapTransient(err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, wrapTransient(err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, wrapTransient(err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, wrapTransient(err)
	}

	return &Subscription{conn: conn, ch: ch, Queue: queue, Deliveries: deliveries}, nil
}
