// Package drain implements the two long-running Telemetry Drain consumers:
// one for the run_times queue, one for the results queue. Each drain holds
// a single broker connection open for its lifetime, acknowledging every
// delivery only after the corresponding store write commits, and backs off
// a fixed interval whenever the broker or store is unreachable.
package drain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"plato-wp36.eu/testbench/broker"
	"plato-wp36.eu/testbench/store"
	"plato-wp36.eu/testbench/telemetry"
)

// defaultBackoff is the fixed pause between reconnect attempts after a
// broker or store outage.
const defaultBackoff = 30 * time.Second

const (
	runTimesQueue = "run_times"
	resultsQueue  = "results"
)

// RunTimesDrain consumes run_times envelopes and persists them via Store.
type RunTimesDrain struct {
	Broker  *broker.Broker
	Store   *store.Store
	Logger  *logrus.Logger
	Backoff time.Duration
}

func (d *RunTimesDrain) backoff() time.Duration {
	if d.Backoff > 0 {
		return d.Backoff
	}
	return defaultBackoff
}

// Run subscribes to run_times and processes deliveries until ctx is
// cancelled. A broker outage (subscribe failure) and a transient store
// outage both trigger the fixed backoff before the subscription is
// re-established; a non-transient store error (a record that will never
// insert) is logged and the message dropped without requeue so a single
// poison message cannot stall the queue forever.
func (d *RunTimesDrain) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sub, err := d.Broker.Consume(runTimesQueue)
		if err != nil {
			d.Logger.WithError(err).Warn("run_times drain: subscribe failed, backing off")
			if !sleepOrDone(ctx, d.backoff()) {
				return ctx.Err()
			}
			continue
		}

		if !d.drain(ctx, sub) {
			return ctx.Err()
		}
	}
}

// drain processes deliveries on one subscription until it closes or ctx is
// cancelled. It returns false when the caller should stop entirely (ctx
// cancelled), true when the subscription ended and a fresh one should be
// established.
func (d *RunTimesDrain) drain(ctx context.Context, sub *broker.Subscription) bool {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return false
		case delivery, open := <-sub.Deliveries:
			if !open {
				return true
			}

			var record telemetry.RunTimeRecord
			if err := json.Unmarshal(delivery.Body, &record); err != nil {
				d.Logger.WithError(err).Error("run_times drain: malformed envelope, dropping")
				_ = delivery.Nack(false, false)
				continue
			}

			if err := d.Store.InsertRunTime(ctx, record); err != nil {
				if isTransient(err) {
					d.Logger.WithError(err).Warn("run_times drain: store outage, backing off")
					_ = delivery.Nack(false, true)
					sleepOrDone(ctx, d.backoff())
					return true
				}
				d.Logger.WithError(err).Error("run_times drain: store rejected record, dropping")
				_ = delivery.Nack(false, false)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// ResultsDrain consumes results envelopes and persists them via Store.
type ResultsDrain struct {
	Broker  *broker.Broker
	Store   *store.Store
	Logger  *logrus.Logger
	Backoff time.Duration
	// OutputDir is passed to InsertResult as the output directory. The
	// drain passes no payload source path, so InsertResult moves no file
	// for drain-sourced results and OutputDir has no effect on this path.
	OutputDir string
}

func (d *ResultsDrain) backoff() time.Duration {
	if d.Backoff > 0 {
		return d.Backoff
	}
	return defaultBackoff
}

// Run mirrors RunTimesDrain.Run for the results queue.
func (d *ResultsDrain) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sub, err := d.Broker.Consume(resultsQueue)
		if err != nil {
			d.Logger.WithError(err).Warn("results drain: subscribe failed, backing off")
			if !sleepOrDone(ctx, d.backoff()) {
				return ctx.Err()
			}
			continue
		}

		if !d.drain(ctx, sub) {
			return ctx.Err()
		}
	}
}

func (d *ResultsDrain) drain(ctx context.Context, sub *broker.Subscription) bool {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return false
		case delivery, open := <-sub.Deliveries:
			if !open {
				return true
			}

			var record telemetry.ResultRecord
			if err := json.Unmarshal(delivery.Body, &record); err != nil {
				d.Logger.WithError(err).Error("results drain: malformed envelope, dropping")
				_ = delivery.Nack(false, false)
				continue
			}

			// Envelopes carry no payload file, so no source path is passed
			// and InsertResult only writes the row.
			if err := d.Store.InsertResult(ctx, record, "", d.OutputDir); err != nil {
				if isTransient(err) {
					d.Logger.WithError(err).Warn("results drain: store outage, backing off")
					_ = delivery.Nack(false, true)
					sleepOrDone(ctx, d.backoff())
					return true
				}
				d.Logger.WithError(err).Error("results drain: store rejected record, dropping")
				_ = delivery.Nack(false, false)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// sleepOrDone waits for d or until ctx is cancelled, returning false in the
// latter case so callers can unwind instead of looping once more.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func isTransient(err error) bool {
	return errors.Is(err, store.ErrTransient)
}
