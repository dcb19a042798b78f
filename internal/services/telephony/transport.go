package telephony

import "context"

// CloseReason says why a transport-level connection was force-closed.
type CloseReason string

const (
	CloseReasonNormal            CloseReason = "normal"
	CloseReasonInsufficientFunds CloseReason = "insufficient_funds"
	CloseReasonTransfer          CloseReason = "transfer"
	CloseReasonError             CloseReason = "error"
)

// Transport is the telephony-side connection of one session. The session
// governor polls Connected and force-closes on balance exhaustion; it never
// reads or writes media itself.
type Transport interface {
	// Connected reports whether the caller is still on the line.
	Connected() bool
	// Close tears the connection down with the given reason. Closing an
	// already-closed transport is a no-op.
	Close(reason CloseReason) error
}

// MediaTransport extends Transport with the audio path the conversation
// engine uses.
type MediaTransport interface {
	Transport
	// ReadFrame blocks until the next inbound audio frame or connection end.
	ReadFrame(ctx context.Context) ([]byte, error)
	// WriteFrame sends one outbound audio frame to the caller.
	WriteFrame(payload []byte) error
}
