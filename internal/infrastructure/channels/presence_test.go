package channels

import (
	"context"
	"testing"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/pkg/backoff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPresence(t *testing.T, bus *memBus) (*PresenceManager, *Registry) {
	t.Helper()
	var pm *PresenceManager
	reg := NewRegistry(bus, func() domain.Status {
		if pm == nil {
			return domain.StatusDisconnected
		}
		return pm.State().Status
	}, nil, zap.NewNop().Sugar(), true)

	cfg := DefaultPresenceConfig("test-client")
	cfg.HeartbeatInterval = time.Hour
	cfg.SettleDelay = time.Millisecond
	cfg.Backoff = backoff.Exponential{
		Base:        time.Millisecond,
		Max:         5 * time.Millisecond,
		MaxAttempts: 5,
	}
	pm = NewPresenceManager(cfg, reg, zap.NewNop().Sugar())
	return pm, reg
}

func TestPresenceConnectsOnSync(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	require.NoError(t, pm.Connect(context.Background()))
	assert.Equal(t, domain.StatusConnecting, pm.State().Status)
	assert.Equal(t, 1, pm.State().ReconnectAttempts)

	bus.deliver(t, presenceChannel, Frame{Kind: FramePresenceSync})

	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, 5*time.Millisecond)

	state := pm.State()
	assert.Equal(t, 0, state.ReconnectAttempts)
	assert.NotNil(t, state.LastHeartbeat)
}

func TestPresenceTracksOnSubscribedAck(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	require.NoError(t, pm.Connect(context.Background()))
	bus.deliver(t, presenceChannel, Frame{Kind: FrameSubscribed})

	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, 5*time.Millisecond)

	// The subscription ack publishes the client's presence metadata.
	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return bus.publishes == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceConnectIsIdempotent(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	ctx := context.Background()
	require.NoError(t, pm.Connect(ctx))
	require.NoError(t, pm.Connect(ctx))
	require.NoError(t, pm.Connect(ctx))

	assert.Equal(t, 1, pm.State().ReconnectAttempts)
	assert.Equal(t, 1, bus.subscribes)
}

func TestPresenceDisabled(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	pm.cfg.Enabled = false

	err := pm.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrRealtimeDisabled)
	assert.Equal(t, domain.StatusDisconnected, pm.State().Status)
}

func TestPresenceRetriesOnChannelError(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	require.NoError(t, pm.Connect(context.Background()))
	bus.deliver(t, presenceChannel, Frame{Kind: FrameError})

	// The retry fires after the backoff delay and reconnects; a sync frame
	// on the fresh subscription completes the recovery.
	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnecting &&
			pm.State().ReconnectAttempts == 2
	}, time.Second, time.Millisecond)

	bus.deliver(t, presenceChannel, Frame{Kind: FramePresenceSync})
	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, pm.State().ReconnectAttempts)
}

func TestPresenceStopsRetryingAfterBudget(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	require.NoError(t, pm.Connect(context.Background()))

	// Fail every attempt; the error frame has to chase each fresh
	// subscription until the budget runs out.
	for i := 0; i < 5; i++ {
		attempt := i + 1
		require.Eventually(t, func() bool {
			return pm.State().Status == domain.StatusConnecting &&
				pm.State().ReconnectAttempts == attempt
		}, time.Second, time.Millisecond)
		bus.deliver(t, presenceChannel, Frame{Kind: FrameError})
		require.Eventually(t, func() bool {
			s := pm.State().Status
			return s == domain.StatusError || s == domain.StatusConnecting
		}, time.Second, time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusError
	}, time.Second, time.Millisecond)

	// No sixth attempt is ever scheduled.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.StatusError, pm.State().Status)
	assert.Equal(t, 5, pm.State().ReconnectAttempts)
}

func TestPresenceCleanCloseDoesNotRetry(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	require.NoError(t, pm.Connect(context.Background()))
	bus.deliver(t, presenceChannel, Frame{Kind: FramePresenceSync})
	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, 5*time.Millisecond)

	bus.deliver(t, presenceChannel, Frame{Kind: FrameClose})

	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusDisconnected
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.StatusDisconnected, pm.State().Status)
}

func TestPresenceReconnectResetsAttempts(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()
	defer pm.Disconnect()

	ctx := context.Background()
	require.NoError(t, pm.Connect(ctx))
	bus.deliver(t, presenceChannel, Frame{Kind: FrameError})
	require.Eventually(t, func() bool {
		return pm.State().ReconnectAttempts >= 2
	}, time.Second, time.Millisecond)

	require.NoError(t, pm.Reconnect(ctx))
	assert.Equal(t, 1, pm.State().ReconnectAttempts)

	bus.deliver(t, presenceChannel, Frame{Kind: FramePresenceSync})
	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, time.Millisecond)
}

func TestPresenceDisconnectResetsState(t *testing.T) {
	bus := newMemBus()
	pm, reg := newTestPresence(t, bus)
	defer reg.Close()

	require.NoError(t, pm.Connect(context.Background()))
	bus.deliver(t, presenceChannel, Frame{Kind: FramePresenceSync})
	require.Eventually(t, func() bool {
		return pm.State().Status == domain.StatusConnected
	}, time.Second, 5*time.Millisecond)

	pm.Disconnect()
	pm.Disconnect() // idempotent

	state := pm.State()
	assert.Equal(t, domain.StatusDisconnected, state.Status)
	assert.Equal(t, 0, state.ReconnectAttempts)
	assert.Nil(t, state.LastHeartbeat)
	assert.Equal(t, 0, reg.Len())
}
