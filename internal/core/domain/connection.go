package domain

import "time"

// Status is the connection lifecycle state of a realtime transport.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// ConnectionState describes one live connection to the backend push
// mechanism. Only the owning connection manager mutates it; consumers read
// snapshots.
type ConnectionState struct {
	Status            Status     `json:"status"`
	LastHeartbeat     *time.Time `json:"last_heartbeat"`
	ReconnectAttempts int        `json:"reconnect_attempts"`
}

// InitialConnectionState is the state on provider start and after an
// explicit disconnect.
func InitialConnectionState() ConnectionState {
	return ConnectionState{Status: StatusDisconnected}
}
