package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
)

type BalanceHandler struct {
	balances *billing.BalanceService
}

func NewBalanceHandler(balances *billing.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// GetBalanceResponse represents the response for balance queries
type GetBalanceResponse struct {
	ClientID       string  `json:"client_id"`
	BalanceSeconds int64   `json:"balance_seconds"`
	BalanceMinutes float64 `json:"balance_minutes"`
}

// GetBalance retrieves the current prepaid balance for a client
func (h *BalanceHandler) GetBalance(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	balance := h.balances.GetBalance(c.Context(), clientID)

	return c.JSON(GetBalanceResponse{
		ClientID:       clientID,
		BalanceSeconds: balance,
		BalanceMinutes: float64(balance) / 60.0,
	})
}

// AdjustBalanceRequest represents the request body for manual adjustments
type AdjustBalanceRequest struct {
	DeltaSeconds int64   `json:"delta_seconds"`
	Reason       string  `json:"reason"`
	RevenueUSD   float64 `json:"revenue_usd,omitempty"`
}

// AdjustBalance applies a manual credit or debit and records the audit row
func (h *BalanceHandler) AdjustBalance(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id is required",
		})
	}

	var req AdjustBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.DeltaSeconds == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "delta_seconds must be non-zero",
		})
	}
	if req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "reason is required",
		})
	}

	err := h.balances.Adjust(c.Context(), models.AdjustBalanceParams{
		ClientID:     clientID,
		DeltaSeconds: req.DeltaSeconds,
		Reason:       req.Reason,
		RevenueUSD:   req.RevenueUSD,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to adjust balance",
		})
	}

	balance := h.balances.GetBalance(c.Context(), clientID)
	return c.JSON(GetBalanceResponse{
		ClientID:       clientID,
		BalanceSeconds: balance,
		BalanceMinutes: float64(balance) / 60.0,
	})
}
