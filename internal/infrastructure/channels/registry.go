package channels

import (
	"context"
	"encoding/json"
	"sync"

	"shopflow/internal/core/domain"
	"shopflow/internal/core/ports"
	"shopflow/internal/infrastructure/monitoring"

	"go.uber.org/zap"
)

const topicPrefix = "channel:"

// StatusFunc reports the current transport status; the registry gates
// outbound broadcasts on it.
type StatusFunc func() domain.Status

// Registry multiplexes logical named channels over one bus. Repeat
// subscribes for the same name return the existing handle; exactly one live
// bus subscription exists per name.
type Registry struct {
	bus       ports.Bus
	status    StatusFunc
	collector *monitoring.Collector
	log       *zap.SugaredLogger
	enabled   bool

	mu       sync.Mutex
	channels map[string]*Channel
}

func NewRegistry(bus ports.Bus, status StatusFunc, collector *monitoring.Collector, log *zap.SugaredLogger, enabled bool) *Registry {
	return &Registry{
		bus:       bus,
		status:    status,
		collector: collector,
		log:       log,
		enabled:   enabled,
		channels:  make(map[string]*Channel),
	}
}

// Subscribe returns the channel registered under name, creating it on first
// call. Returns nil when the registry is disabled.
func (r *Registry) Subscribe(ctx context.Context, name string, cfg ChannelConfig) (*Channel, error) {
	if !r.enabled {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[name]; ok {
		return ch, nil
	}

	in, err := r.bus.Subscribe(ctx, topicPrefix+name)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	ch := &Channel{
		Name:   name,
		cfg:    cfg,
		log:    r.log,
		cancel: cancel,
	}
	r.channels[name] = ch

	go ch.run(runCtx, in)
	r.log.Infow("channel subscribed", "channel", name)
	return ch, nil
}

// Unsubscribe tears the named channel down. No-op for unknown names.
func (r *Registry) Unsubscribe(name string) error {
	r.mu.Lock()
	ch, ok := r.channels[name]
	if ok {
		delete(r.channels, name)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	ch.cancel()
	r.log.Infow("channel unsubscribed", "channel", name)
	return r.bus.Unsubscribe(topicPrefix + name)
}

// Broadcast publishes an application-level event on the named channel.
// Broadcasts while the transport is not connected are dropped without
// retry or queueing.
func (r *Registry) Broadcast(ctx context.Context, name, event string, payload any) error {
	if !r.enabled {
		return nil
	}
	if r.status != nil && r.status() != domain.StatusConnected {
		if r.collector != nil {
			r.collector.BroadcastDropped()
		}
		r.log.Debugw("dropping broadcast while not connected", "channel", name, "event", event)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Kind: FrameBroadcast, Event: event, Payload: body})
	if err != nil {
		return err
	}
	return r.bus.Publish(ctx, topicPrefix+name, frame)
}

// Subscribed reports whether the backend has acknowledged the named
// channel. False for unknown names.
func (r *Registry) Subscribed(name string) bool {
	r.mu.Lock()
	ch, ok := r.channels[name]
	r.mu.Unlock()
	return ok && ch.Subscribed()
}

// Len reports the number of live channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// Close tears down every channel and the underlying bus.
func (r *Registry) Close() error {
	r.mu.Lock()
	chans := r.channels
	r.channels = make(map[string]*Channel)
	r.mu.Unlock()

	for name, ch := range chans {
		ch.cancel()
		_ = r.bus.Unsubscribe(topicPrefix + name)
	}
	return r.bus.Close()
}
