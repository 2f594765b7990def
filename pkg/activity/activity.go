// Package activity provides a reference-counted busy/idle signal for
// in-flight network requests.
//
// Every request increments the indicator when it is dispatched and
// decrements it exactly once when it settles, whatever the outcome. The
// indicator is shared by all requests of a process, so implementations must
// be safe for concurrent use.
package activity

import (
	"context"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

// Indicator is a reference-counted activity signal.
type Indicator interface {
	Increment()
	Decrement()
}

var (
	_ Indicator = (*Counter)(nil)
	_ Indicator = (*Metered)(nil)
	_ Indicator = Nop{}
)

// Counter is an in-memory Indicator. The zero value is ready to use.
//
// Decrement never takes the counter below zero: an unbalanced Decrement is
// ignored rather than corrupting the count seen by later requests.
type Counter struct {
	n atomic.Int64

	// onChange, when set, is called with the new value after every change.
	// It runs on the goroutine that caused the change.
	onChange func(active int64)
}

// NewCounter creates a Counter that reports every change to onChange.
// A nil onChange is allowed.
func NewCounter(onChange func(active int64)) *Counter {
	return &Counter{onChange: onChange}
}

// Increment records the start of a request.
func (c *Counter) Increment() {
	v := c.n.Add(1)
	c.notify(v)
}

// Decrement records the end of a request.
func (c *Counter) Decrement() {
	c.TryDecrement()
}

// TryDecrement is Decrement that reports whether the count changed. It
// returns false for an unbalanced call made while the count is zero.
func (c *Counter) TryDecrement() bool {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return false
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			c.notify(cur - 1)
			return true
		}
	}
}

// Active returns the number of requests currently in flight.
func (c *Counter) Active() int64 {
	return c.n.Load()
}

// Visible reports whether any request is in flight, i.e. whether a busy
// indicator should be shown.
func (c *Counter) Visible() bool {
	return c.Active() > 0
}

func (c *Counter) notify(v int64) {
	if c.onChange != nil {
		c.onChange(v)
	}
}

// Metered mirrors another Indicator into an OpenTelemetry up-down counter.
// The metric follows the same floor as Counter, so unbalanced decrements
// never take it below zero.
type Metered struct {
	next    Indicator
	active  Counter
	counter metric.Int64UpDownCounter
}

// NewMetered wraps next, recording every change on an
// "doh.client.active_requests" up-down counter created from meter.
func NewMetered(next Indicator, meter metric.Meter) (*Metered, error) {
	counter, err := meter.Int64UpDownCounter("doh.client.active_requests",
		metric.WithDescription("Number of in-flight API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create active requests counter")
	}
	return &Metered{next: next, counter: counter}, nil
}

// Increment implements Indicator.
func (m *Metered) Increment() {
	m.next.Increment()
	m.active.Increment()
	m.counter.Add(context.Background(), 1)
}

// Decrement implements Indicator.
func (m *Metered) Decrement() {
	m.next.Decrement()
	if m.active.TryDecrement() {
		m.counter.Add(context.Background(), -1)
	}
}

// Nop is an Indicator that does nothing.
type Nop struct{}

// Increment implements Indicator.
func (Nop) Increment() {}

// Decrement implements Indicator.
func (Nop) Decrement() {}
