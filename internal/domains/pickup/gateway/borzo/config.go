package borzo

// =====================================================
// BORZO CONFIGURATION
// =====================================================

type Config struct {
	BaseURL        string // e.g. https://robotapi.borzodelivery.com
	AuthToken      string // X-DV-Auth-Token value
	CallbackSecret string // HMAC key for webhook signatures
}

func NewConfig(baseURL, authToken, callbackSecret string) *Config {
	return &Config{
		BaseURL:        baseURL,
		AuthToken:      authToken,
		CallbackSecret: callbackSecret,
	}
}

// GetCreateOrderURL returns the delivery booking endpoint.
func (c *Config) GetCreateOrderURL() string {
	return c.BaseURL + "/api/business/1.6/create-order"
}

// GetCancelOrderURL returns the delivery cancellation endpoint.
func (c *Config) GetCancelOrderURL() string {
	return c.BaseURL + "/api/business/1.6/cancel-order"
}
