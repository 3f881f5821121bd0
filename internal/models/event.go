package models

import (
	"time"

	"github.com/google/uuid"
)

// RelayEvent is published once per relayed request for external diagnostics.
type RelayEvent struct {
	ID        uuid.UUID `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	Model     string    `json:"model"`
	Messages  int       `json:"messages"`
	Truncated bool      `json:"truncated"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}
