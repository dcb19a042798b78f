package telephony

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
)

// ConnectStreamTwiML renders the TwiML answer document that bridges an
// inbound call onto the media-stream websocket at wss://<host>/voice/stream.
// Custom parameters are echoed back by Twilio in the start event.
func ConnectStreamTwiML(publicHost string, params map[string]string) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<Response><Connect>")
	fmt.Fprintf(&buf, `<Stream url="wss://%s/voice/stream">`, escapeXML(publicHost))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, `<Parameter name="%s" value="%s"/>`, escapeXML(k), escapeXML(params[k]))
	}

	buf.WriteString("</Stream></Connect></Response>")
	return buf.String()
}

// RejectTwiML renders the answer document for calls that cannot be
// admitted, speaking a short notice before hanging up.
func RejectTwiML(message string) string {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, "<Response><Say>%s</Say><Hangup/></Response>", escapeXML(message))
	return buf.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return ""
	}
	return buf.String()
}
