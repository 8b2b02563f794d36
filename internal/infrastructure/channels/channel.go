package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"shopflow/internal/core/ports"
	apperrors "shopflow/pkg/errors"

	"go.uber.org/zap"
)

// FrameKind tags the message shape carried on a logical channel.
type FrameKind string

const (
	FrameBroadcast    FrameKind = "broadcast"
	FramePresenceSync FrameKind = "presence_sync"
	FrameRowChange    FrameKind = "row_change"
	FrameSubscribed   FrameKind = "subscribed"
	FrameClose        FrameKind = "close"
	FrameError        FrameKind = "error"
)

// Frame is the wire format multiplexed over one bus topic.
type Frame struct {
	Kind    FrameKind       `json:"kind"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RowChange describes one insert/update/delete against a named resource.
type RowChange struct {
	Event  string          `json:"event"` // INSERT, UPDATE or DELETE
	Schema string          `json:"schema"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
}

// RowChangeConfig binds a handler to a subset of row changes. Event "*"
// matches all three kinds.
type RowChangeConfig struct {
	Event   string
	Schema  string
	Table   string
	Filter  string
	Handler func(RowChange)
}

// ChannelConfig supplies the optional handlers for one logical channel.
// Only the shapes with a non-nil handler are delivered.
type ChannelConfig struct {
	OnBroadcast    func(event string, payload json.RawMessage)
	OnPresenceSync func(payload json.RawMessage)
	RowChanges     []RowChangeConfig
	OnSubscribed   func()
	OnClose        func()
	OnError        func(error)
}

// Channel is one logical named subscription over the shared bus. Created
// and owned by the Registry.
type Channel struct {
	Name string

	cfg    ChannelConfig
	log    *zap.SugaredLogger
	cancel context.CancelFunc

	subscribed atomic.Bool
}

// Subscribed reports whether the backend acknowledged the subscription.
func (c *Channel) Subscribed() bool { return c.subscribed.Load() }

func (c *Channel) run(ctx context.Context, in <-chan ports.BusMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				// A closed inbound channel after an intentional cancel is
				// teardown, not a backend-initiated close.
				if ctx.Err() == nil {
					c.deliverClose()
				}
				return
			}
			c.dispatch(msg.Payload)
		}
	}
}

func (c *Channel) dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Warnw("dropping malformed channel frame", "channel", c.Name, "error", err)
		return
	}

	switch frame.Kind {
	case FrameBroadcast:
		if c.cfg.OnBroadcast != nil {
			c.guard(func() { c.cfg.OnBroadcast(frame.Event, frame.Payload) })
		}

	case FramePresenceSync:
		if c.cfg.OnPresenceSync != nil {
			c.guard(func() { c.cfg.OnPresenceSync(frame.Payload) })
		}

	case FrameRowChange:
		var change RowChange
		if err := json.Unmarshal(frame.Payload, &change); err != nil {
			c.log.Warnw("dropping malformed row change", "channel", c.Name, "error", err)
			return
		}
		for _, rc := range c.cfg.RowChanges {
			if rc.Handler == nil || !rc.matches(change) {
				continue
			}
			handler := rc.Handler
			c.guard(func() { handler(change) })
		}

	case FrameSubscribed:
		c.subscribed.Store(true)
		if c.cfg.OnSubscribed != nil {
			c.guard(c.cfg.OnSubscribed)
		}

	case FrameClose:
		c.deliverClose()

	case FrameError:
		c.deliverError(apperrors.NewTransportError(
			fmt.Sprintf("channel %s reported an error", c.Name), nil))

	default:
		c.log.Debugw("ignoring unknown frame kind", "channel", c.Name, "kind", frame.Kind)
	}
}

func (rc RowChangeConfig) matches(change RowChange) bool {
	if rc.Event != "*" && rc.Event != change.Event {
		return false
	}
	if rc.Schema != "" && rc.Schema != change.Schema {
		return false
	}
	if rc.Table != "" && rc.Table != change.Table {
		return false
	}
	return true
}

// guard runs a caller-supplied handler inside an error boundary: a panic is
// converted to a callback error and routed to OnError, never allowed to
// unwind into the dispatch loop.
func (c *Channel) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.deliverError(apperrors.NewCallbackError(
				fmt.Sprintf("handler on channel %s panicked", c.Name),
				fmt.Errorf("%v", r)))
		}
	}()
	fn()
}

func (c *Channel) deliverError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
		return
	}
	c.log.Errorw("channel error", "channel", c.Name, "error", err)
}

func (c *Channel) deliverClose() {
	c.subscribed.Store(false)
	if c.cfg.OnClose != nil {
		c.cfg.OnClose()
	}
}
