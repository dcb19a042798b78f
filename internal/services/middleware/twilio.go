package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/telephony"
)

// TwilioMiddleware authenticates voice webhooks against the account auth
// token. Without a configured token every request passes, which is only
// acceptable in development.
type TwilioMiddleware struct {
	config     models.TwilioConfig
	publicHost string
}

func NewTwilioMiddleware(cfg models.TwilioConfig, publicHost string) *TwilioMiddleware {
	return &TwilioMiddleware{
		config:     cfg,
		publicHost: publicHost,
	}
}

// RequireSignature rejects webhook posts whose X-Twilio-Signature does not
// match the request. Twilio signs the public https URL it dialed, so the
// check reconstructs that URL from the configured public host rather than
// trusting proxy-rewritten request headers.
func (m *TwilioMiddleware) RequireSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.AuthToken == "" {
			return c.Next()
		}

		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Missing webhook signature",
			})
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		url := "https://" + m.publicHost + c.OriginalURL()
		if !telephony.VerifySignature(m.config.AuthToken, url, params, signature) {
			fiberlog.Warnf("TwilioMiddleware: rejected webhook with bad signature from %s", c.IP())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid webhook signature",
			})
		}

		if m.config.AccountSID != "" && params["AccountSid"] != "" && params["AccountSid"] != m.config.AccountSID {
			fiberlog.Warnf("TwilioMiddleware: rejected webhook for foreign account %s", params["AccountSid"])
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Unknown account",
			})
		}

		return c.Next()
	}
}
