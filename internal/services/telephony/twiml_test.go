package telephony

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectStreamTwiML(t *testing.T) {
	doc := ConnectStreamTwiML("voice.example.com", map[string]string{
		"client_id": "client-1",
		"caller":    "+15550100",
	})

	assert.Contains(t, doc, `<Stream url="wss://voice.example.com/voice/stream">`)
	assert.Contains(t, doc, `<Parameter name="caller" value="+15550100"/>`)
	assert.Contains(t, doc, `<Parameter name="client_id" value="client-1"/>`)
	assert.Contains(t, doc, "<Connect>")
}

func TestRejectTwiML_EscapesMessage(t *testing.T) {
	doc := RejectTwiML(`Service "unavailable" <try later>`)

	assert.Contains(t, doc, "<Say>")
	assert.Contains(t, doc, "<Hangup/>")
	assert.NotContains(t, doc, "<try later>")
}
