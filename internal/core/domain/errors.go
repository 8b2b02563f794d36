package domain

import "errors"

var (
	ErrRealtimeDisabled   = errors.New("realtime layer disabled by configuration")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrNotFound           = errors.New("entity not found")
)
