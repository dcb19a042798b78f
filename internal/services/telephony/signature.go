package telephony

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 - algorithm fixed by Twilio's signing scheme
	"encoding/base64"
	"sort"
)

// VerifySignature checks a webhook's X-Twilio-Signature header. Twilio signs
// the full request URL followed by every POST parameter name and value in
// lexicographic order, HMAC-SHA1 keyed with the account auth token.
func VerifySignature(authToken, url string, params map[string]string, signature string) bool {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(url))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(params[k]))
	}
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
