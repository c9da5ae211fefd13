package borzo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoparts-returns-backend/internal/domains/pickup/gateway"
	returnsmodel "autoparts-returns-backend/internal/domains/returns/model"
)

// =====================================================
// BORZO CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) (gateway.LogisticsGateway, error) {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) PartnerName() string {
	return "borzo"
}

// =====================================================
// CREATE DELIVERY
// =====================================================

func (c *Client) CreateDelivery(ctx context.Context, req gateway.CreateDeliveryRequest) (*gateway.Delivery, error) {
	requestBody := map[string]interface{}{
		"type":   "standard",
		"matter": req.Matter,
		"points": []map[string]interface{}{
			addressPoint(req.PickupAddress, req.ContactPhone, req.ScheduledDate),
			addressPoint(req.DeliveryAddress, "", req.ScheduledDate),
		},
		"client_order_id": req.Reference,
	}

	respData, err := c.post(ctx, c.config.GetCreateOrderURL(), requestBody)
	if err != nil {
		return nil, err
	}

	isSuccessful, _ := respData["is_successful"].(bool)
	if !isSuccessful {
		return nil, &gateway.GatewayError{
			Message:   fmt.Sprintf("borzo rejected delivery for matter %s: %v", req.Matter, respData["errors"]),
			Transient: false,
		}
	}

	order, ok := respData["order"].(map[string]interface{})
	if !ok {
		return nil, &gateway.GatewayError{
			Message:   "order missing from borzo response",
			Transient: false,
		}
	}

	delivery := &gateway.Delivery{
		DeliveryID: fmt.Sprintf("%v", order["order_id"]),
	}
	if status, ok := order["status"].(string); ok {
		delivery.Status = status
	}
	if points, ok := order["points"].([]interface{}); ok && len(points) > 0 {
		if first, ok := points[0].(map[string]interface{}); ok {
			if tn, ok := first["tracking_number"].(string); ok {
				delivery.TrackingNumber = tn
			}
			if tu, ok := first["tracking_url"].(string); ok {
				delivery.TrackingURL = tu
			}
		}
	}

	return delivery, nil
}

// =====================================================
// CANCEL DELIVERY
// =====================================================

func (c *Client) CancelDelivery(ctx context.Context, deliveryID string) error {
	respData, err := c.post(ctx, c.config.GetCancelOrderURL(), map[string]interface{}{
		"order_id": deliveryID,
	})
	if err != nil {
		return err
	}

	isSuccessful, _ := respData["is_successful"].(bool)
	if !isSuccessful {
		return &gateway.GatewayError{
			Message:   fmt.Sprintf("borzo rejected cancellation of order %s: %v", deliveryID, respData["errors"]),
			Transient: false,
		}
	}

	return nil
}

// =====================================================
// VERIFY SIGNATURE
// =====================================================

func (c *Client) VerifyCallbackSignature(body []byte, signature string) bool {
	return VerifyWebhookSignature(body, signature, c.config.CallbackSecret)
}

// =====================================================
// HELPERS
// =====================================================

func (c *Client) post(ctx context.Context, url string, body map[string]interface{}) (map[string]interface{}, error) {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-DV-Auth-Token", c.config.AuthToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are worth retrying.
		return nil, &gateway.GatewayError{
			Message:   fmt.Sprintf("borzo API unreachable: %v", err),
			Transient: true,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.GatewayError{
			Message:   fmt.Sprintf("failed to read borzo response: %v", err),
			Transient: true,
		}
	}

	if resp.StatusCode >= 500 {
		return nil, &gateway.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("borzo API returned %d", resp.StatusCode),
			Transient:  true,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &gateway.GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("borzo API returned %d: %s", resp.StatusCode, string(bodyBytes)),
			Transient:  false,
		}
	}

	var respData map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &respData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal borzo response: %w", err)
	}

	return respData, nil
}

func addressPoint(addr returnsmodel.Address, phone string, scheduled time.Time) map[string]interface{} {
	point := map[string]interface{}{
		"address":                addressLine(addr),
		"required_start_datetime": scheduled.Format(time.RFC3339),
	}
	if phone != "" {
		point["contact_person"] = map[string]interface{}{"phone": phone}
	}
	return point
}

func addressLine(addr returnsmodel.Address) string {
	line := addr.Line1
	if addr.Line2 != "" {
		line += ", " + addr.Line2
	}
	return fmt.Sprintf("%s, %s, %s %s", line, addr.City, addr.State, addr.PostalCode)
}
