package middleware

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 - Twilio's signing scheme
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

const testAuthToken = "twilio-test-token"

// signWebhook builds the signature Twilio would send: HMAC-SHA1 over the
// public URL with the POST parameters appended name-then-value in sorted
// order. Spelled out here rather than reusing the production helper so the
// two sides stay independent.
func signWebhook(publicURL string, sortedPairs ...string) string {
	mac := hmac.New(sha1.New, []byte(testAuthToken))
	mac.Write([]byte(publicURL))
	for _, p := range sortedPairs {
		mac.Write([]byte(p))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func twilioTestApp(cfg models.TwilioConfig) *fiber.App {
	m := NewTwilioMiddleware(cfg, "example.com")
	app := fiber.New()
	app.Post("/voice", m.RequireSignature(), func(c *fiber.Ctx) error {
		return c.SendString("answered")
	})
	return app
}

func TestRequireSignature_AcceptsValidSignature(t *testing.T) {
	app := twilioTestApp(models.TwilioConfig{AccountSID: "AC123", AuthToken: testAuthToken})

	form := url.Values{}
	form.Set("To", "+15550001111")
	form.Set("From", "+15552223333")

	sig := signWebhook("https://example.com/voice",
		"From", "+15552223333",
		"To", "+15550001111",
	)

	req := httptest.NewRequest("POST", "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireSignature_RejectsMissingHeader(t *testing.T) {
	app := twilioTestApp(models.TwilioConfig{AccountSID: "AC123", AuthToken: testAuthToken})

	req := httptest.NewRequest("POST", "/voice", strings.NewReader("To=%2B15550001111"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireSignature_RejectsTamperedParams(t *testing.T) {
	app := twilioTestApp(models.TwilioConfig{AccountSID: "AC123", AuthToken: testAuthToken})

	sig := signWebhook("https://example.com/voice",
		"From", "+15552223333",
		"To", "+15550001111",
	)

	form := url.Values{}
	form.Set("To", "+15550009999")
	form.Set("From", "+15552223333")

	req := httptest.NewRequest("POST", "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireSignature_RejectsForeignAccountSid(t *testing.T) {
	app := twilioTestApp(models.TwilioConfig{AccountSID: "AC123", AuthToken: testAuthToken})

	sig := signWebhook("https://example.com/voice",
		"AccountSid", "AC999",
		"To", "+15550001111",
	)

	form := url.Values{}
	form.Set("AccountSid", "AC999")
	form.Set("To", "+15550001111")

	req := httptest.NewRequest("POST", "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireSignature_NoTokenPassesThrough(t *testing.T) {
	app := twilioTestApp(models.TwilioConfig{})

	req := httptest.NewRequest("POST", "/voice", strings.NewReader("To=%2B15550001111"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
