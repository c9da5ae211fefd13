// Package orderledger is the HTTP adapter for the commerce system of
// record. The returns service only reads from it; the ledger is never
// written by this system.
package orderledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/config"
	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/service"
)

const requestTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ service.OrderLedger = (*Client)(nil)

func NewClient(cfg config.OrderLedgerConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// GetOrder reads one order with its line items and payment reference.
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.LedgerOrder, error) {
	url := fmt.Sprintf("%s/internal/orders/%s", c.baseURL, orderID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOrderLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, model.ErrOrderNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: ledger returned status %d", model.ErrOrderLedgerUnavailable, resp.StatusCode)
	}

	var order model.LedgerOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode ledger order: %w", err)
	}

	return &order, nil
}
