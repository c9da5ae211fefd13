package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSignature(t *testing.T) {
	body := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_001"}}}}`)
	secret := "webhook-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t, expected, GenerateSignature(body, secret))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_001"}}}}`)
	secret := "webhook-secret"
	signature := GenerateSignature(body, secret)

	t.Run("accepts a valid signature", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(body, signature, secret))
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		tampered := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_002"}}}}`)
		assert.False(t, VerifyWebhookSignature(tampered, signature, secret))
	})

	t.Run("rejects the wrong secret", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, signature, "other-secret"))
	})

	t.Run("rejects an empty signature", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(body, "", secret))
	})
}
