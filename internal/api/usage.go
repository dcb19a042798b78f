package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
)

type UsageHandler struct {
	ledger *billing.LedgerService
}

func NewUsageHandler(ledger *billing.LedgerService) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// ListUsage returns a page of ledger entries for a client
func (h *UsageHandler) ListUsage(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	entries, err := h.ledger.ListByClient(c.Context(), clientID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list usage",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetSummary returns the cost and usage roll-up for a client
func (h *UsageHandler) GetSummary(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "days must be a positive integer",
		})
	}
	since := time.Now().AddDate(0, 0, -days)

	summary, err := h.ledger.Summary(c.Context(), clientID, since)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute usage summary",
		})
	}

	return c.JSON(summary)
}
