package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gorilla/websocket"
	"github.com/valyala/bytebufferpool"
)

const handshakeTimeout = 10 * time.Second

// StartEvent is the metadata Twilio sends when a media stream opens.
type StartEvent struct {
	StreamSID        string
	CallSID          string
	CallerPhone      string
	CustomParameters map[string]string
}

// twilioMessage covers the inbound media-stream event envelope.
type twilioMessage struct {
	Event string `json:"event"`
	Start *struct {
		StreamSID        string            `json:"streamSid"`
		CallSID          string            `json:"callSid"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// TwilioStream is the MediaTransport over one Twilio media-stream
// websocket.
type TwilioStream struct {
	conn      *websocket.Conn
	streamSID string

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	reason    CloseReason
}

func NewTwilioStream(conn *websocket.Conn) *TwilioStream {
	return &TwilioStream{conn: conn, reason: CloseReasonNormal}
}

// Handshake consumes events until Twilio's start event arrives and returns
// the call metadata.
func (t *TwilioStream) Handshake(ctx context.Context) (*StartEvent, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set handshake deadline: %w", err)
	}
	defer func() {
		if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
			fiberlog.Debugf("TwilioStream: clearing read deadline: %v", err)
		}
	}()

	for {
		var msg twilioMessage
		if err := t.conn.ReadJSON(&msg); err != nil {
			t.closed.Store(true)
			return nil, fmt.Errorf("stream ended before start event: %w", err)
		}

		switch msg.Event {
		case "connected":
			continue
		case "start":
			if msg.Start == nil {
				return nil, fmt.Errorf("start event missing payload")
			}
			t.streamSID = msg.Start.StreamSID
			params := msg.Start.CustomParameters
			return &StartEvent{
				StreamSID:        msg.Start.StreamSID,
				CallSID:          msg.Start.CallSID,
				CallerPhone:      params["caller"],
				CustomParameters: params,
			}, nil
		default:
			return nil, fmt.Errorf("unexpected event %q before start", msg.Event)
		}
	}
}

// Connected reports whether the caller is still on the line.
func (t *TwilioStream) Connected() bool {
	return !t.closed.Load()
}

// ReadFrame returns the next inbound audio frame (decoded mu-law bytes).
// It returns io.EOF when the stream stops or the peer disconnects.
func (t *TwilioStream) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var msg twilioMessage
		if err := t.conn.ReadJSON(&msg); err != nil {
			t.closed.Store(true)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("media stream read failed: %w", err)
		}

		switch msg.Event {
		case "media":
			if msg.Media == nil {
				continue
			}
			frame, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to decode media payload: %w", err)
			}
			return frame, nil
		case "stop":
			t.closed.Store(true)
			return nil, io.EOF
		default:
			// marks and other events are irrelevant to the audio path
			continue
		}
	}
}

// WriteFrame sends one outbound audio frame to the caller.
func (t *TwilioStream) WriteFrame(payload []byte) error {
	if t.closed.Load() {
		return fmt.Errorf("stream closed")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(`{"event":"media","streamSid":`)
	sid, err := json.Marshal(t.streamSID)
	if err != nil {
		return fmt.Errorf("failed to encode stream sid: %w", err)
	}
	buf.Write(sid)
	buf.WriteString(`,"media":{"payload":"`)
	buf.WriteString(base64.StdEncoding.EncodeToString(payload))
	buf.WriteString(`"}}`)

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		t.closed.Store(true)
		return fmt.Errorf("media stream write failed: %w", err)
	}
	return nil
}

// Close tears the stream down with a close frame mapping the reason to a
// websocket status code. Repeated closes are no-ops; the first reason wins.
func (t *TwilioStream) Close(reason CloseReason) error {
	var closeErr error
	t.closeOnce.Do(func() {
		t.reason = reason
		t.closed.Store(true)

		code := websocket.CloseNormalClosure
		if reason == CloseReasonInsufficientFunds {
			code = websocket.ClosePolicyViolation
		}

		t.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, string(reason))
		if err := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			fiberlog.Debugf("TwilioStream: close frame write failed: %v", err)
		}
		t.writeMu.Unlock()

		closeErr = t.conn.Close()
	})
	return closeErr
}

// CloseReasonUsed returns the reason the stream closed with.
func (t *TwilioStream) CloseReasonUsed() CloseReason {
	return t.reason
}
