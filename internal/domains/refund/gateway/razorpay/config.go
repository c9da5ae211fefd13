package razorpay

// =====================================================
// RAZORPAY CONFIGURATION
// =====================================================

type Config struct {
	BaseURL       string // https://api.razorpay.com
	KeyID         string // basic auth user
	KeySecret     string // basic auth password
	WebhookSecret string // HMAC key for webhook signatures
}

func NewConfig(baseURL, keyID, keySecret, webhookSecret string) *Config {
	return &Config{
		BaseURL:       baseURL,
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
	}
}

// GetRefundURL returns the refund endpoint for a payment.
func (c *Config) GetRefundURL(paymentID string) string {
	return c.BaseURL + "/v1/payments/" + paymentID + "/refund"
}

// GetFetchRefundURL returns the refund read endpoint.
func (c *Config) GetFetchRefundURL(refundID string) string {
	return c.BaseURL + "/v1/refunds/" + refundID
}
