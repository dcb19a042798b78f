package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
)

type RatesHandler struct {
	rates *billing.RateCatalog
}

func NewRatesHandler(rates *billing.RateCatalog) *RatesHandler {
	return &RatesHandler{rates: rates}
}

// GetRates returns the effective per-unit billing rates
func (h *RatesHandler) GetRates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rates": h.rates.All(c.Context()),
	})
}

// UpsertRateRequest represents the request body for rate updates
type UpsertRateRequest struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// UpsertRate creates or updates one billing rate
func (h *RatesHandler) UpsertRate(c *fiber.Ctx) error {
	var req UpsertRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key is required",
		})
	}
	if req.Value < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "value must be non-negative",
		})
	}

	if err := h.rates.Upsert(c.Context(), req.Key, req.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update rate",
		})
	}

	return c.JSON(fiber.Map{
		"rates": h.rates.All(c.Context()),
	})
}
