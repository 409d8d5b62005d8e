package types

import (
	"time"
)

const TeleportEventVersion = 1

// TeleportEvent is published once per request that reached a terminal phase.
type TeleportEvent struct {
	Version       int         `json:"version"`
	RequestID     string      `json:"request_id"`
	ParticipantID string      `json:"participant_id"`
	Outcome       Phase       `json:"outcome"`
	ErrorCode     ErrorCode   `json:"error_code,omitempty"`
	Cause         CancelCause `json:"cause,omitempty"`
	Cost          string      `json:"cost"`
	Refunded      bool        `json:"refunded"`
	Destination   *Location   `json:"destination,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}
