package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"shopflow/internal/core/domain"
	apperrors "shopflow/pkg/errors"
)

// MessageType tags every frame on the metrics WebSocket. Server and client
// frames share the envelope shape.
type MessageType string

const (
	// Server -> client.
	TypeMetricsUpdate         MessageType = "metrics_update"
	TypeAlert                 MessageType = "alert"
	TypeEventNotification     MessageType = "event_notification"
	TypeConnectionEstablished MessageType = "connection_established"
	TypePong                  MessageType = "pong"

	// Client -> server.
	TypeClientInfo MessageType = "client_info"
	TypePing       MessageType = "ping"
)

// Envelope is the wire format for all frames.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// MetricsPayload is the server's aggregate snapshot.
type MetricsPayload struct {
	CurrentPeople   int              `json:"current_people"`
	ConversionRate  float64          `json:"conversion_rate"`
	AverageTime     float64          `json:"average_time"`
	ActiveEmployees int              `json:"active_employees"`
	TotalToday      int              `json:"total_today"`
	PeakHour        *domain.PeakHour `json:"peak_hour,omitempty"`
}

// ToDomain converts the wire snapshot into the cached aggregate shape.
// Trends are derived by the cache owner, never carried on the wire.
func (p MetricsPayload) ToDomain() domain.LiveMetrics {
	return domain.LiveMetrics{
		PeopleInStore:   p.CurrentPeople,
		ConversionRate:  p.ConversionRate,
		AverageTime:     p.AverageTime,
		ActiveEmployees: p.ActiveEmployees,
		TotalToday:      p.TotalToday,
		PeakHour:        p.PeakHour,
		Trends:          domain.NeutralTrends(),
	}
}

// AlertPayload is a backend-raised operator alert.
type AlertPayload struct {
	Severity string `json:"severity,omitempty"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
}

// EventPayload is a camera movement notification.
type EventPayload struct {
	Action     domain.EventAction `json:"action"`
	PersonType domain.PersonType  `json:"person_type,omitempty"`
	CameraID   string             `json:"camera_id,omitempty"`
}

// ClientInfo is sent exactly once after the socket opens.
type ClientInfo struct {
	UserAgent string `json:"userAgent"`
	Timestamp int64  `json:"timestamp"`
	Page      string `json:"page"`
}

// DecodeEnvelope parses a raw frame. A malformed frame yields a ParseError;
// the caller drops the frame without touching the connection.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, apperrors.NewParseError("malformed frame", err)
	}
	if env.Type == "" {
		return Envelope{}, apperrors.NewParseError("frame missing type tag", nil)
	}
	return env, nil
}

// EncodeClientInfo builds the one-shot hello frame.
func EncodeClientInfo(userAgent, page string, now time.Time) ([]byte, error) {
	info := ClientInfo{
		UserAgent: userAgent,
		Timestamp: now.UnixMilli(),
		Page:      page,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal client info: %w", err)
	}
	return json.Marshal(Envelope{Type: TypeClientInfo, Data: data})
}

// EncodePing builds a heartbeat frame.
func EncodePing(now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypePing, Timestamp: now.UnixMilli()})
}
