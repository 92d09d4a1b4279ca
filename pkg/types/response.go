package types

import (
	"encoding/json"
	"time"
)

// SuccessEnvelope wraps every successful REST payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// EventFrame is what observers receive per event, over SSE data lines and
// WebSocket text frames alike.
type EventFrame struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}
