package channels

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/pkg/backoff"

	"go.uber.org/zap"
)

const presenceChannel = "presence:dashboard"

// PresenceConfig holds the presence connection settings.
type PresenceConfig struct {
	Enabled           bool
	HeartbeatInterval time.Duration
	Backoff           backoff.Exponential
	// SettleDelay is the pause between tearing a failed channel down and
	// redialing it.
	SettleDelay time.Duration
	ClientID    string
	Page        string
}

func DefaultPresenceConfig(clientID string) PresenceConfig {
	return PresenceConfig{
		Enabled:           true,
		HeartbeatInterval: 30 * time.Second,
		Backoff:           backoff.DefaultExponential(),
		SettleDelay:       time.Second,
		ClientID:          clientID,
		Page:              "/dashboard",
	}
}

// presenceMeta is the opaque client metadata tracked on the channel.
type presenceMeta struct {
	ClientID string `json:"client_id"`
	Page     string `json:"page"`
	OnlineAt int64  `json:"online_at"`
}

// PresenceManager owns the single logical presence connection to the
// backend push mechanism. Channel errors enter the exponential-backoff
// retry path; an explicit close from the backend does not.
type PresenceManager struct {
	cfg      PresenceConfig
	registry *Registry
	log      *zap.SugaredLogger

	mu         sync.Mutex
	state      domain.ConnectionState
	retryTimer *time.Timer
	stopHB     context.CancelFunc

	onState func(domain.ConnectionState)
	now     func() time.Time
}

func NewPresenceManager(cfg PresenceConfig, registry *Registry, log *zap.SugaredLogger) *PresenceManager {
	return &PresenceManager{
		cfg:      cfg,
		registry: registry,
		log:      log,
		state:    domain.InitialConnectionState(),
		now:      time.Now,
	}
}

// OnStateChange registers a listener for connection state snapshots. Must
// be called before Connect.
func (p *PresenceManager) OnStateChange(fn func(domain.ConnectionState)) {
	p.onState = fn
}

// Connect opens the presence channel. No-op while already connecting or
// connected, or when presence is disabled.
func (p *PresenceManager) Connect(ctx context.Context) error {
	if !p.cfg.Enabled {
		return domain.ErrRealtimeDisabled
	}

	p.mu.Lock()
	if p.state.Status == domain.StatusConnecting || p.state.Status == domain.StatusConnected {
		p.mu.Unlock()
		return nil
	}
	p.state.Status = domain.StatusConnecting
	p.state.ReconnectAttempts++
	p.mu.Unlock()
	p.emitState()

	_, err := p.registry.Subscribe(ctx, presenceChannel, ChannelConfig{
		OnPresenceSync: func(json.RawMessage) { p.markConnected() },
		OnSubscribed:   func() { p.trackPresence(ctx) },
		OnError:        func(err error) { p.handleChannelError(ctx, err) },
		OnClose:        func() { p.handleClose() },
	})
	if err != nil {
		p.handleChannelError(ctx, err)
		return err
	}
	return nil
}

// Disconnect cancels pending retry and heartbeat timers, unsubscribes the
// presence channel and resets the state. Idempotent.
func (p *PresenceManager) Disconnect() {
	p.mu.Lock()
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
	if p.stopHB != nil {
		p.stopHB()
		p.stopHB = nil
	}
	wasDown := p.state.Status == domain.StatusDisconnected
	p.state = domain.InitialConnectionState()
	p.mu.Unlock()

	_ = p.registry.Unsubscribe(presenceChannel)
	if !wasDown {
		p.emitState()
	}
}

// Reconnect tears the channel down, waits the settle delay with a fresh
// attempt counter, and dials again.
func (p *PresenceManager) Reconnect(ctx context.Context) error {
	p.Disconnect()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.SettleDelay):
	}

	return p.Connect(ctx)
}

// State returns a copy of the connection state.
func (p *PresenceManager) State() domain.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PresenceManager) markConnected() {
	now := p.now()

	p.mu.Lock()
	already := p.state.Status == domain.StatusConnected
	p.state.Status = domain.StatusConnected
	p.state.LastHeartbeat = &now
	p.state.ReconnectAttempts = 0
	if !already {
		hbCtx, cancel := context.WithCancel(context.Background())
		p.stopHB = cancel
		go p.heartbeatLoop(hbCtx)
	}
	p.mu.Unlock()

	if !already {
		p.log.Infow("presence connected")
		p.emitState()
	}
}

// trackPresence publishes the client metadata after the backend confirms
// the subscription.
func (p *PresenceManager) trackPresence(ctx context.Context) {
	p.markConnected()

	meta := presenceMeta{
		ClientID: p.cfg.ClientID,
		Page:     p.cfg.Page,
		OnlineAt: p.now().UnixMilli(),
	}
	if err := p.registry.Broadcast(ctx, presenceChannel, "track", meta); err != nil {
		p.log.Warnw("presence track failed", "error", err)
	}
}

func (p *PresenceManager) handleChannelError(ctx context.Context, err error) {
	p.log.Warnw("presence channel error", "error", err)

	p.mu.Lock()
	p.state.Status = domain.StatusError
	if p.stopHB != nil {
		p.stopHB()
		p.stopHB = nil
	}

	attempts := p.state.ReconnectAttempts
	if !p.cfg.Backoff.ShouldRetry(attempts + 1) {
		p.mu.Unlock()
		p.emitState()
		p.log.Errorw("presence reconnect attempts exhausted", "attempts", attempts)
		return
	}

	delay := p.cfg.Backoff.Delay(attempts)
	p.retryTimer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		_ = p.registry.Unsubscribe(presenceChannel)
		p.mu.Lock()
		p.state.Status = domain.StatusDisconnected
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.SettleDelay):
		}
		_ = p.Connect(ctx)
	})
	p.mu.Unlock()
	p.emitState()

	p.log.Infow("presence reconnect scheduled", "attempt", attempts, "delay", delay)
}

// handleClose reacts to an explicit close from the backend: clean shutdown,
// no retry.
func (p *PresenceManager) handleClose() {
	p.mu.Lock()
	if p.stopHB != nil {
		p.stopHB()
		p.stopHB = nil
	}
	p.state.Status = domain.StatusDisconnected
	p.mu.Unlock()
	p.emitState()
	p.log.Infow("presence channel closed by backend")
}

func (p *PresenceManager) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Only an acknowledged channel counts as a live heartbeat.
			if !p.registry.Subscribed(presenceChannel) {
				continue
			}
			now := p.now()
			p.mu.Lock()
			p.state.LastHeartbeat = &now
			p.mu.Unlock()
		}
	}
}

func (p *PresenceManager) emitState() {
	if p.onState == nil {
		return
	}
	p.onState(p.State())
}
