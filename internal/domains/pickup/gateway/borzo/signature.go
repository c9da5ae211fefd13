package borzo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// =====================================================
// BORZO SIGNATURE VERIFICATION
// =====================================================

// GenerateSignature computes HMAC-SHA256 over the raw callback body,
// hex encoded, the way Borzo signs its webhooks.
func GenerateSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares the received X-DV-Signature header
// against the expected HMAC of the raw body.
func VerifyWebhookSignature(body []byte, receivedSignature, secret string) bool {
	if receivedSignature == "" {
		return false
	}
	expected := GenerateSignature(body, secret)
	return hmac.Equal([]byte(strings.ToLower(receivedSignature)), []byte(expected))
}
