package rest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// Sign computes the CB-ACCESS-SIGN value for a request. requestPath
// includes the query string when one is sent.
func Sign(secret string, timestamp int64, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, signingKey(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10) + method + requestPath + body))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Exchange secrets are handed out base64 encoded. Anything else is used as raw bytes.
func signingKey(secret string) []byte {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return []byte(secret)
	}

	return key
}
