package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/internal/infrastructure/monitoring"
	"shopflow/pkg/backoff"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers receives the effects of decoded server frames. Every field is
// optional; nil handlers are skipped.
type Handlers struct {
	OnMetrics func(domain.LiveMetrics)
	OnAlert   func(domain.Notification)
	OnEvent   func(domain.CameraEvent)
	OnState   func(domain.ConnectionState)
}

// Config holds the WebSocket client settings.
type Config struct {
	URL              string
	Page             string
	UserAgent        string
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
	Backoff          backoff.Linear
}

// DefaultConfig returns the production settings: 30s ping cadence and the
// linear 3s-per-attempt reconnect policy bounded at 10 attempts.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		Page:             "/dashboard",
		UserAgent:        "shopflow-dashboard/1.0",
		PingInterval:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		Backoff:          backoff.DefaultLinear(),
	}
}

// WSClient maintains the application-level connection to the backend's
// metrics WebSocket. A close with code 1000 is a clean shutdown and is not
// retried; any other close enters the linear-backoff reconnect path until
// the attempt budget is spent, after which the client stays down until a
// manual Reconnect.
type WSClient struct {
	cfg       Config
	handlers  Handlers
	log       *zap.SugaredLogger
	collector *monitoring.Collector
	dialer    *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	state       domain.ConnectionState
	intentional bool
	terminal    bool
	retryTimer  *time.Timer
	cancelLoops context.CancelFunc

	now func() time.Time
}

func NewWSClient(cfg Config, handlers Handlers, collector *monitoring.Collector, log *zap.SugaredLogger) *WSClient {
	return &WSClient{
		cfg:       cfg,
		handlers:  handlers,
		log:       log,
		collector: collector,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		state: domain.InitialConnectionState(),
		now:   time.Now,
	}
}

// Connect dials the metrics socket. No-op while already connecting or
// connected.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status == domain.StatusConnecting || c.state.Status == domain.StatusConnected {
		c.mu.Unlock()
		return nil
	}
	if c.terminal {
		// Only a manual Reconnect leaves the terminal state.
		c.mu.Unlock()
		return domain.ErrReconnectExhausted
	}
	c.intentional = false
	c.state.Status = domain.StatusConnecting
	c.mu.Unlock()
	c.emitState()

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.log.Warnw("websocket dial failed", "url", c.cfg.URL, "error", err)
		c.mu.Lock()
		c.state.Status = domain.StatusError
		c.mu.Unlock()
		c.emitState()
		c.scheduleReconnect(ctx)
		return err
	}

	hello, err := EncodeClientInfo(c.cfg.UserAgent, c.cfg.Page, c.now())
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, hello)
	}
	if err != nil {
		conn.Close()
		c.mu.Lock()
		c.state.Status = domain.StatusError
		c.mu.Unlock()
		c.emitState()
		c.scheduleReconnect(ctx)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.conn = conn
	c.cancelLoops = cancel
	now := c.now()
	c.state.Status = domain.StatusConnected
	c.state.LastHeartbeat = &now
	c.state.ReconnectAttempts = 0
	c.terminal = false
	c.mu.Unlock()
	c.emitState()

	if c.collector != nil {
		c.collector.ConnectionUp()
	}
	c.log.Infow("websocket connected", "url", c.cfg.URL)

	go c.readLoop(ctx, conn)
	go c.pingLoop(loopCtx, conn)

	return nil
}

// Disconnect cancels pending reconnects, closes the socket and resets the
// state to its initial value. Idempotent.
func (c *WSClient) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.cancelLoops != nil {
		c.cancelLoops()
		c.cancelLoops = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = domain.InitialConnectionState()
	c.terminal = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
			c.now().Add(time.Second))
		conn.Close()
		if c.collector != nil {
			c.collector.ConnectionDown()
		}
	}
	c.emitState()
}

// Reconnect tears the connection down, waits a short settle delay, resets
// the attempt counter and dials again.
func (c *WSClient) Reconnect(ctx context.Context) error {
	c.Disconnect()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}

	c.mu.Lock()
	c.state.ReconnectAttempts = 0
	c.mu.Unlock()

	return c.Connect(ctx)
}

// State returns a copy of the connection state.
func (c *WSClient) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminal reports whether the reconnect budget is exhausted; only a manual
// Reconnect leaves this state.
func (c *WSClient) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(ctx, conn, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *WSClient) handleReadError(ctx context.Context, conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	intentional := c.intentional
	c.conn = nil
	if c.cancelLoops != nil {
		c.cancelLoops()
		c.cancelLoops = nil
	}
	c.mu.Unlock()

	conn.Close()
	if c.collector != nil {
		c.collector.ConnectionDown()
	}

	if intentional {
		return
	}

	if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Code == websocket.CloseNormalClosure {
		// Clean close from the backend: no reconnect, no error state.
		c.log.Infow("websocket closed cleanly")
		c.mu.Lock()
		c.state.Status = domain.StatusDisconnected
		c.mu.Unlock()
		c.emitState()
		return
	}

	c.log.Warnw("websocket connection lost", "error", err)
	c.mu.Lock()
	c.state.Status = domain.StatusError
	c.mu.Unlock()
	c.emitState()

	c.scheduleReconnect(ctx)
}

// scheduleReconnect arms the next linear-backoff attempt, or parks the
// client in the terminal state once the budget is spent.
func (c *WSClient) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		return
	}

	attempt := c.state.ReconnectAttempts + 1
	if !c.cfg.Backoff.ShouldRetry(attempt) {
		c.terminal = true
		c.state.Status = domain.StatusError
		c.mu.Unlock()
		c.emitState()
		c.log.Errorw("reconnect attempts exhausted", "attempts", attempt-1)
		if c.handlers.OnAlert != nil {
			c.handlers.OnAlert(domain.Notification{
				Severity:  domain.SeverityError,
				Title:     "realtime connection lost",
				Message:   "could not reconnect, please reload",
				Timestamp: c.now(),
			})
		}
		return
	}

	c.state.ReconnectAttempts = attempt
	delay := c.cfg.Backoff.Delay(attempt)
	c.retryTimer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		_ = c.Connect(ctx)
	})
	c.mu.Unlock()
	c.emitState()

	if c.collector != nil {
		c.collector.ReconnectScheduled()
	}
	c.log.Infow("reconnect scheduled", "attempt", attempt, "delay", delay)
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := EncodePing(c.now())
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, frame)
			}
			if err != nil {
				c.log.Warnw("ping write failed", "error", err)
				conn.Close() // read loop observes the closure
				return
			}
		}
	}
}

// dispatch routes one inbound frame. Parse failures drop the frame only;
// unknown types are logged and ignored.
func (c *WSClient) dispatch(data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		c.log.Warnw("dropping malformed frame", "error", err)
		return
	}

	if c.collector != nil {
		c.collector.MessageReceived(string(env.Type))
	}

	switch env.Type {
	case TypeMetricsUpdate:
		var p MetricsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warnw("dropping malformed metrics_update payload", "error", err)
			return
		}
		if c.handlers.OnMetrics != nil {
			c.handlers.OnMetrics(p.ToDomain())
		}

	case TypeAlert:
		var p AlertPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warnw("dropping malformed alert payload", "error", err)
			return
		}
		if c.handlers.OnAlert != nil {
			c.handlers.OnAlert(domain.Notification{
				Severity:  domain.NormalizeSeverity(p.Severity),
				Title:     p.Title,
				Message:   p.Message,
				Timestamp: c.now(),
			})
		}

	case TypeEventNotification:
		var p EventPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.log.Warnw("dropping malformed event payload", "error", err)
			return
		}
		if p.Action != domain.ActionEnter && p.Action != domain.ActionExit {
			return
		}
		if c.collector != nil {
			c.collector.CameraEvent(string(p.PersonType))
		}
		if c.handlers.OnEvent != nil {
			c.handlers.OnEvent(domain.CameraEvent{
				PersonType: p.PersonType,
				Action:     p.Action,
				CameraID:   p.CameraID,
				Timestamp:  c.now(),
			})
		}

	case TypeConnectionEstablished:
		c.log.Debugw("connection established acknowledged")

	case TypePong:
		now := c.now()
		c.mu.Lock()
		c.state.LastHeartbeat = &now
		c.mu.Unlock()

	default:
		c.log.Debugw("ignoring unknown message type", "type", env.Type)
	}
}

func (c *WSClient) emitState() {
	if c.handlers.OnState == nil {
		return
	}
	c.handlers.OnState(c.State())
}
