package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/governor"
)

type SessionsHandler struct {
	registry *governor.Registry
}

func NewSessionsHandler(registry *governor.Registry) *SessionsHandler {
	return &SessionsHandler{registry: registry}
}

// ListSessions returns all currently active sessions
func (h *SessionsHandler) ListSessions(c *fiber.Ctx) error {
	if owner := c.Query("owner_id"); owner != "" {
		return c.JSON(fiber.Map{
			"sessions": h.registry.ListByOwner(owner),
		})
	}
	return c.JSON(fiber.Map{
		"sessions": h.registry.List(),
		"count":    h.registry.Count(),
	})
}

// GetSession returns one active session by id
func (h *SessionsHandler) GetSession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	info, ok := h.registry.Get(sessionID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(info)
}

// TransferRequest represents the request body for call transfers
type TransferRequest struct {
	TargetPhone string `json:"target_phone"`
	RequestedBy string `json:"requested_by"`
}

// TransferSession hands an active call off to a human operator
func (h *SessionsHandler) TransferSession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.TargetPhone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "target_phone is required",
		})
	}

	err := h.registry.Transfer(sessionID, models.TransferRequest{
		TargetPhone: req.TargetPhone,
		RequestedBy: req.RequestedBy,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": "transfer requested",
	})
}
