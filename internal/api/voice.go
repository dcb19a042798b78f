package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/frontdesk-ai/frontdesk/internal/services/clients"
	"github.com/frontdesk-ai/frontdesk/internal/services/governor"
	"github.com/frontdesk-ai/frontdesk/internal/services/telephony"
)

// ErrSessionNotFound is what a TurnResponder wraps when the session id maps
// to no live call, so HandleTurn can answer 404 instead of blaming the
// upstream.
var ErrSessionNotFound = errors.New("session not found")

// TurnResponder produces one assistant turn for a live session. The
// speech pipeline sits outside this service; it posts recognized user text
// here and synthesizes whatever comes back.
type TurnResponder interface {
	Respond(ctx context.Context, sessionID, userText string) (string, error)
}

type VoiceHandler struct {
	clients    *clients.Service
	governor   *governor.Service
	turns      TurnResponder
	publicHost string
}

func NewVoiceHandler(clientsService *clients.Service, governorService *governor.Service, turns TurnResponder, publicHost string) *VoiceHandler {
	return &VoiceHandler{
		clients:    clientsService,
		governor:   governorService,
		turns:      turns,
		publicHost: publicHost,
	}
}

// HandleIncomingCall answers Twilio's voice webhook. Calls to numbers with
// a positive balance get bridged onto the media stream; everyone else hears
// a short notice and is hung up on.
func (h *VoiceHandler) HandleIncomingCall(c *fiber.Ctx) error {
	called := c.FormValue("To")
	caller := c.FormValue("From")

	client, err := h.clients.GetByPhone(c.Context(), called)
	if err != nil {
		fiberlog.Warnf("VoiceHandler: no active client for number %s: %v", called, err)
		return sendTwiML(c, telephony.RejectTwiML("This number is not in service."))
	}

	if _, ok := h.governor.Admit(c.Context(), client.ID); !ok {
		fiberlog.Infof("VoiceHandler: rejecting call for client %s, balance exhausted", client.ID)
		return sendTwiML(c, telephony.RejectTwiML("This service is temporarily unavailable. Please try again later."))
	}

	return sendTwiML(c, telephony.ConnectStreamTwiML(h.publicHost, map[string]string{
		"client_id": client.ID,
		"caller":    caller,
	}))
}

// TurnRequest represents one recognized user utterance
type TurnRequest struct {
	Text string `json:"text"`
}

// HandleTurn runs one conversation turn for an active session
func (h *VoiceHandler) HandleTurn(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	var req TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	reply, err := h.turns.Respond(c.Context(), sessionID, req.Text)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		fiberlog.Errorf("VoiceHandler: turn for session %s failed: %v", sessionID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Assistant is temporarily unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"text": reply,
	})
}

func sendTwiML(c *fiber.Ctx, doc string) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.SendString(doc)
}
