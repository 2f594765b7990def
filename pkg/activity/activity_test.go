package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCounter_IncrementDecrement(t *testing.T) {
	var c Counter
	assert.False(t, c.Visible())

	c.Increment()
	c.Increment()
	assert.Equal(t, int64(2), c.Active())
	assert.True(t, c.Visible())

	c.Decrement()
	assert.Equal(t, int64(1), c.Active())

	c.Decrement()
	assert.Equal(t, int64(0), c.Active())
	assert.False(t, c.Visible())
}

func TestCounter_NeverNegative(t *testing.T) {
	var c Counter
	c.Decrement()
	c.Decrement()
	assert.Equal(t, int64(0), c.Active())

	c.Increment()
	assert.Equal(t, int64(1), c.Active(), "unbalanced decrements must not be banked")
}

func TestCounter_Concurrent(t *testing.T) {
	var c Counter

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Increment()
				c.Decrement()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), c.Active())
}

func TestCounter_OnChange(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int64
	)
	c := NewCounter(func(active int64) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, active)
	})

	c.Increment()
	c.Increment()
	c.Decrement()
	c.Decrement()
	c.Decrement() // ignored

	assert.Equal(t, []int64{1, 2, 1, 0}, seen)
}

type recordingIndicator struct {
	inc, dec atomic.Int32
}

func (r *recordingIndicator) Increment() { r.inc.Add(1) }
func (r *recordingIndicator) Decrement() { r.dec.Add(1) }

func TestMetered_Delegates(t *testing.T) {
	next := &recordingIndicator{}
	m, err := NewMetered(next, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	m.Increment()
	m.Increment()
	m.Decrement()

	assert.Equal(t, int32(2), next.inc.Load())
	assert.Equal(t, int32(1), next.dec.Load())
}

func TestCounter_TryDecrement(t *testing.T) {
	var c Counter
	assert.False(t, c.TryDecrement())

	c.Increment()
	assert.True(t, c.TryDecrement())
	assert.False(t, c.TryDecrement())
}

// activeRequests collects the current value of the active requests metric.
func activeRequests(t *testing.T, reader sdkmetric.Reader) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "doh.client.active_requests" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			require.Len(t, sum.DataPoints, 1)
			return sum.DataPoints[0].Value
		}
	}
	t.Fatal("active requests metric not recorded")
	return 0
}

func TestMetered_NeverNegative(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var c Counter
	m, err := NewMetered(&c, provider.Meter("test"))
	require.NoError(t, err)

	m.Increment()
	m.Increment()
	assert.Equal(t, int64(2), activeRequests(t, reader))

	m.Decrement()
	m.Decrement()
	m.Decrement() // unbalanced
	assert.Equal(t, int64(0), c.Active())
	assert.Equal(t, int64(0), activeRequests(t, reader))

	m.Increment()
	assert.Equal(t, int64(1), c.Active())
	assert.Equal(t, int64(1), activeRequests(t, reader))
}

func TestNop(t *testing.T) {
	var n Nop
	n.Increment()
	n.Decrement()
}
