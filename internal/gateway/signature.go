package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureHeader is the HTTP header carrying the webhook HMAC.
const SignatureHeader = "X-Paystack-Signature"

// Sign computes the hex-encoded HMAC-SHA512 of body under the shared secret.
// This is the gateway's documented signing scheme; exported so tests (and
// any future outbound signing) can produce valid signatures.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether signature matches the HMAC of body.
//
// The comparison is constant-time (hmac.Equal), and it runs against the RAW
// request body — re-serializing parsed JSON would change byte order and
// break verification. An empty signature never matches.
func ValidSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
