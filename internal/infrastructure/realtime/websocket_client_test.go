package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/pkg/backoff"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsServer accepts a single connection at a time and hands it to script.
func wsServer(t *testing.T, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		script(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.PingInterval = time.Hour // keep ping traffic out of scripted exchanges
	cfg.Backoff = backoff.Linear{Step: 5 * time.Millisecond, MaxAttempts: 10}
	return cfg
}

func TestWSClientDeliversMetricsUpdate(t *testing.T) {
	gotHello := make(chan Envelope, 1)
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := DecodeEnvelope(data)
		if err != nil {
			return
		}
		gotHello <- env

		frame, _ := json.Marshal(Envelope{
			Type:      TypeMetricsUpdate,
			Data:      json.RawMessage(`{"current_people": 12, "conversion_rate": 41.5}`),
			Timestamp: time.Now().UnixMilli(),
		})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	metrics := make(chan domain.LiveMetrics, 1)
	client := NewWSClient(testConfig(wsURL(srv)), Handlers{
		OnMetrics: func(m domain.LiveMetrics) { metrics <- m },
	}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	select {
	case env := <-gotHello:
		assert.Equal(t, TypeClientInfo, env.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("client never sent client_info")
	}

	select {
	case m := <-metrics:
		assert.Equal(t, 12, m.PeopleInStore)
		assert.InDelta(t, 41.5, m.ConversionRate, 0.001)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics_update never delivered")
	}

	state := client.State()
	assert.Equal(t, domain.StatusConnected, state.Status)
	assert.Equal(t, 0, state.ReconnectAttempts)
}

func TestWSClientReconnectsOnAbnormalClose(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil { // client_info
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "restarting"),
			time.Now().Add(time.Second))
	})
	defer srv.Close()

	cfg := testConfig(wsURL(srv))
	cfg.Backoff = backoff.Linear{Step: time.Hour, MaxAttempts: 10} // park the retry timer

	client := NewWSClient(cfg, Handlers{}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return client.State().ReconnectAttempts == 1
	}, 2*time.Second, 10*time.Millisecond, "abnormal close should schedule the first reconnect")

	assert.False(t, client.Terminal())
	assert.Equal(t, domain.StatusError, client.State().Status)
}

func TestWSClientStopsOnCleanClose(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
	})
	defer srv.Close()

	client := NewWSClient(testConfig(wsURL(srv)), Handlers{}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return client.State().Status == domain.StatusDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	// A code-1000 close must not enter the retry path.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, client.State().ReconnectAttempts)
	assert.False(t, client.Terminal())
}

func TestWSClientExhaustsReconnectBudget(t *testing.T) {
	// The server goes away after the first abnormal close, so every retry
	// fails at dial time and the attempt counter never resets.
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseAbnormalClosure, "dying"),
			time.Now().Add(time.Second))
	})

	alerts := make(chan domain.Notification, 1)
	client := NewWSClient(testConfig(wsURL(srv)), Handlers{
		OnAlert: func(n domain.Notification) { alerts <- n },
	}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return client.State().ReconnectAttempts >= 1
	}, 2*time.Second, 5*time.Millisecond)
	srv.Close()

	require.Eventually(t, func() bool {
		return client.Terminal()
	}, 5*time.Second, 10*time.Millisecond, "client should park after the attempt budget")

	select {
	case n := <-alerts:
		assert.Equal(t, domain.SeverityError, n.Severity)
		assert.Contains(t, n.Message, "could not reconnect")
	case <-time.After(time.Second):
		t.Fatal("terminal state should raise an alert")
	}

	// No attempt beyond the budget is ever scheduled.
	attempts := client.State().ReconnectAttempts
	assert.Equal(t, 10, attempts)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, attempts, client.State().ReconnectAttempts)

	// Only a manual Reconnect leaves the parked state.
	assert.ErrorIs(t, client.Connect(context.Background()), domain.ErrReconnectExhausted)
}

func TestWSClientDropsMalformedFrames(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"data": {}}`)) // missing type

		frame, _ := json.Marshal(Envelope{
			Type:      TypeMetricsUpdate,
			Data:      json.RawMessage(`{"current_people": 7}`),
			Timestamp: time.Now().UnixMilli(),
		})
		_ = conn.WriteMessage(websocket.TextMessage, frame)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	metrics := make(chan domain.LiveMetrics, 1)
	client := NewWSClient(testConfig(wsURL(srv)), Handlers{
		OnMetrics: func(m domain.LiveMetrics) { metrics <- m },
	}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))

	select {
	case m := <-metrics:
		assert.Equal(t, 7, m.PeopleInStore)
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame after malformed ones never delivered")
	}
	assert.Equal(t, domain.StatusConnected, client.State().Status)
}

func TestWSClientPongRefreshesHeartbeat(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		frame, _ := json.Marshal(Envelope{Type: TypePong, Timestamp: time.Now().UnixMilli()})
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	client := NewWSClient(testConfig(wsURL(srv)), Handlers{}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	first := client.State().LastHeartbeat
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		hb := client.State().LastHeartbeat
		return hb != nil && hb.After(*first)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSClientConnectIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	srv := wsServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		mu.Unlock()
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	client := NewWSClient(testConfig(wsURL(srv)), Handlers{}, nil, zap.NewNop().Sugar())
	defer client.Disconnect()

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Connect(ctx))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, conns)
}

func TestWSClientDisconnectIsIdempotent(t *testing.T) {
	client := NewWSClient(testConfig("ws://127.0.0.1:1"), Handlers{}, nil, zap.NewNop().Sugar())
	client.Disconnect()
	client.Disconnect()
	assert.Equal(t, domain.StatusDisconnected, client.State().Status)
}
