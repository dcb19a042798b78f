package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gorilla/websocket"

	"github.com/frontdesk-ai/frontdesk/internal/api"
	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/clients"
	"github.com/frontdesk-ai/frontdesk/internal/services/engine"
	"github.com/frontdesk-ai/frontdesk/internal/services/governor"
	"github.com/frontdesk-ai/frontdesk/internal/services/telephony"
)

// MediaServer terminates Twilio media-stream websockets on its own
// net/http listener and drives one governed session per call. The Fiber
// app keeps the REST surface; gorilla/websocket upgrades plain net/http.
type MediaServer struct {
	clients   *clients.Service
	governor  *governor.Service
	engineCfg models.EngineConfig
	upgrader  websocket.Upgrader
	srv       *http.Server

	mu    sync.Mutex
	calls map[string]*activeCall
}

type activeCall struct {
	session *governor.Session
	engine  *engine.Engine
}

func NewMediaServer(addr string, clientsService *clients.Service, governorService *governor.Service, engineCfg models.EngineConfig) *MediaServer {
	m := &MediaServer{
		clients:   clientsService,
		governor:  governorService,
		engineCfg: engineCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Twilio connects server-to-server without an Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		calls: make(map[string]*activeCall),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice/stream", m.handleStream)

	m.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return m
}

// Start blocks serving media streams until Shutdown.
func (m *MediaServer) Start() error {
	fiberlog.Infof("MediaServer: listening on %s", m.srv.Addr)
	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("media server failed: %w", err)
	}
	return nil
}

func (m *MediaServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// Respond runs one conversation turn against the live session's engine.
// The speech pipeline posts recognized user text here.
func (m *MediaServer) Respond(ctx context.Context, sessionID, userText string) (string, error) {
	m.mu.Lock()
	call, ok := m.calls[sessionID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", api.ErrSessionNotFound, sessionID)
	}
	return call.engine.Respond(ctx, userText)
}

func (m *MediaServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fiberlog.Errorf("MediaServer: websocket upgrade failed: %v", err)
		return
	}

	stream := telephony.NewTwilioStream(conn)
	start, err := stream.Handshake(r.Context())
	if err != nil {
		fiberlog.Errorf("MediaServer: stream handshake failed: %v", err)
		_ = stream.Close(telephony.CloseReasonError)
		return
	}

	clientID := start.CustomParameters["client_id"]
	cfg, err := m.clients.GetConfig(r.Context(), clientID)
	if err != nil {
		fiberlog.Errorf("MediaServer: unknown client %q on stream %s: %v", clientID, start.StreamSID, err)
		_ = stream.Close(telephony.CloseReasonError)
		return
	}

	// The webhook already admitted the call, but balance may have drained
	// between answer and stream start; this snapshot is the one the cutoff
	// ceiling holds the session to.
	admitted, ok := m.governor.Admit(r.Context(), clientID)
	if !ok {
		fiberlog.Infof("MediaServer: client %s no longer admissible at stream start", clientID)
		_ = stream.Close(telephony.CloseReasonInsufficientFunds)
		return
	}

	eng := engine.New(m.engineCfg, cfg.ModelID)
	if cfg.Greeting != "" {
		eng.Greet(cfg.Greeting)
	}

	sess := m.governor.StartSession(governor.StartParams{
		SessionID:       start.CallSID,
		ClientID:        clientID,
		ClientName:      cfg.Name,
		ModelID:         cfg.ModelID,
		CallerPhone:     start.CallerPhone,
		OwnerID:         cfg.OwnerID,
		AdmittedSeconds: admitted,
		Transport:       stream,
	})

	m.mu.Lock()
	m.calls[sess.ID()] = &activeCall{session: sess, engine: eng}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.calls, sess.ID())
		m.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var transferred atomic.Bool
	go func() {
		select {
		case req := <-sess.Transfers():
			transferred.Store(true)
			fiberlog.Infof("MediaServer: session %s transferring to %s", sess.ID(), req.TargetPhone)
			_ = stream.Close(telephony.CloseReasonTransfer)
		case <-ctx.Done():
		}
	}()

	// Drain inbound frames so disconnects surface promptly. Audio itself is
	// consumed by the speech pipeline upstream of this service.
	go func() {
		defer cancel()
		for {
			if _, err := stream.ReadFrame(ctx); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
					fiberlog.Debugf("MediaServer: session %s read ended: %v", sess.ID(), err)
				}
				return
			}
		}
	}()

	runErr := sess.Run(ctx)

	endReason := models.EndReasonCompleted
	switch {
	case errors.Is(runErr, governor.ErrBalanceExhausted):
		endReason = models.EndReasonInsufficientFunds
	case transferred.Load():
		endReason = models.EndReasonTransferred
	}

	sess.Finalize(ctx, eng.Transcript(), endReason)
	_ = stream.Close(telephony.CloseReasonNormal)
}
