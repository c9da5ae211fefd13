package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"autoparts-returns-backend/internal/domains/refund/gateway"
)

// =====================================================
// RAZORPAY CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) (gateway.RefundProcessor, error) {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) GatewayName() string {
	return "razorpay"
}

// =====================================================
// CREATE REFUND
// =====================================================

func (c *Client) CreateRefund(ctx context.Context, req gateway.CreateRefundRequest) (*gateway.ProcessorRefund, error) {
	// Razorpay amounts are minor units (paise).
	requestBody := map[string]interface{}{
		"amount":  req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"speed":   "normal",
		"receipt": req.Receipt,
	}
	if len(req.Notes) > 0 {
		requestBody["notes"] = req.Notes
	}

	respData, err := c.call(ctx, "POST", c.config.GetRefundURL(req.PaymentID), requestBody)
	if err != nil {
		return nil, err
	}

	return parseRefund(respData)
}

// =====================================================
// FETCH REFUND
// =====================================================

func (c *Client) FetchRefund(ctx context.Context, processorRefundID string) (*gateway.ProcessorRefund, error) {
	respData, err := c.call(ctx, "GET", c.config.GetFetchRefundURL(processorRefundID), nil)
	if err != nil {
		return nil, err
	}

	return parseRefund(respData)
}

// =====================================================
// VERIFY SIGNATURE
// =====================================================

func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return VerifyWebhookSignature(body, signature, c.config.WebhookSecret)
}

// =====================================================
// HELPERS
// =====================================================

func (c *Client) call(ctx context.Context, method, url string, body map[string]interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyJSON)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &gateway.ProcessorError{
			Message:   fmt.Sprintf("razorpay API unreachable: %v", err),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.ProcessorError{
			Message:   fmt.Sprintf("failed to read razorpay response: %v", err),
			Transient: true,
		}
	}

	if resp.StatusCode >= 500 {
		return nil, &gateway.ProcessorError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("razorpay API returned %d", resp.StatusCode),
			Transient:  true,
		}
	}

	var respData map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &respData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal razorpay response: %w", err)
	}

	if resp.StatusCode >= 400 {
		pErr := &gateway.ProcessorError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("razorpay API returned %d", resp.StatusCode),
			Transient:  false,
		}
		if errObj, ok := respData["error"].(map[string]interface{}); ok {
			if code, ok := errObj["code"].(string); ok {
				pErr.Code = code
			}
			if desc, ok := errObj["description"].(string); ok {
				pErr.Message = desc
			}
		}
		return nil, pErr
	}

	return respData, nil
}

func parseRefund(respData map[string]interface{}) (*gateway.ProcessorRefund, error) {
	refundID, ok := respData["id"].(string)
	if !ok {
		return nil, fmt.Errorf("refund id missing from razorpay response")
	}

	refund := &gateway.ProcessorRefund{
		RefundID: refundID,
		Status:   gateway.ProcessorStatusPending,
	}

	if status, ok := respData["status"].(string); ok {
		switch status {
		case "processed":
			refund.Status = gateway.ProcessorStatusProcessed
		case "failed":
			refund.Status = gateway.ProcessorStatusFailed
		}
	}

	if amount, ok := respData["amount"].(float64); ok {
		refund.Amount = decimal.NewFromFloat(amount).Div(decimal.NewFromInt(100))
	}

	return refund, nil
}
