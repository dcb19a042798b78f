package models

import "time"

// ActiveSession is the in-memory record of one live call, held only in the
// process-wide registry. It exists from admission until the session's
// cleanup runs; it never outlives the session except under process death.
type ActiveSession struct {
	SessionID   string    `json:"session_id"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name"`
	CallerPhone string    `json:"caller_phone,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	StartTime   time.Time `json:"start_time"`
}

// TransferRequest is an out-of-band control signal asking a running session
// to hand the caller to a human operator.
type TransferRequest struct {
	TargetPhone string    `json:"target_phone"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
