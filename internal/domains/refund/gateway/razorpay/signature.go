package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// =====================================================
// RAZORPAY SIGNATURE VERIFICATION
// =====================================================

// GenerateSignature computes HMAC-SHA256 over the raw webhook body, hex
// encoded, the scheme Razorpay uses for X-Razorpay-Signature.
func GenerateSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares the received header value against the
// expected HMAC of the raw body in constant time.
func VerifyWebhookSignature(body []byte, receivedSignature, secret string) bool {
	if receivedSignature == "" {
		return false
	}
	expected := GenerateSignature(body, secret)
	return hmac.Equal([]byte(receivedSignature), []byte(expected))
}
