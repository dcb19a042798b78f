package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/frontdesk-ai/frontdesk/internal/services/payments"
)

type StripeHandler struct {
	stripe *payments.StripeService
}

func NewStripeHandler(stripeService *payments.StripeService) *StripeHandler {
	return &StripeHandler{stripe: stripeService}
}

// ListPackages returns the purchasable minute packages
func (h *StripeHandler) ListPackages(c *fiber.Ctx) error {
	packages, err := h.stripe.ListPackages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list packages",
		})
	}
	return c.JSON(fiber.Map{
		"packages": packages,
	})
}

// CreateCheckoutRequest represents the request body for checkout creation
type CreateCheckoutRequest struct {
	ClientID      string `json:"client_id"`
	PackageID     uint   `json:"package_id"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// CreateCheckoutSession starts a Stripe checkout for a minute package
func (h *StripeHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	var req CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ClientID == "" || req.PackageID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "client_id and package_id are required",
		})
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "success_url and cancel_url are required",
		})
	}

	sess, err := h.stripe.CreateCheckoutSession(c.Context(), payments.CreateCheckoutParams{
		ClientID:      req.ClientID,
		PackageID:     req.PackageID,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		fiberlog.Errorf("StripeHandler: checkout creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	})
}

// HandleWebhook receives Stripe events and credits completed purchases
func (h *StripeHandler) HandleWebhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing Stripe-Signature header",
		})
	}

	if err := h.stripe.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		fiberlog.Errorf("StripeHandler: webhook processing failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Webhook processing failed",
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
