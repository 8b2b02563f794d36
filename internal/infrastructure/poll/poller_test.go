package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRefresher struct {
	metrics atomic.Int32
	flow    atomic.Int32
}

func (c *countingRefresher) RefreshMetrics(context.Context) { c.metrics.Add(1) }
func (c *countingRefresher) RefreshFlow(context.Context)    { c.flow.Add(1) }

func TestPollerRefreshesOnInterval(t *testing.T) {
	ref := &countingRefresher{}
	p := New(Config{Enabled: true, Interval: 5 * time.Millisecond}, ref, nil, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return ref.metrics.Load() >= 3 && ref.flow.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestPollerDisabledDoesNothing(t *testing.T) {
	ref := &countingRefresher{}
	p := New(Config{Enabled: false, Interval: time.Millisecond}, ref, nil, zap.NewNop().Sugar())

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled poller should return immediately")
	}
	assert.Equal(t, int32(0), ref.metrics.Load())
}
