// Package directory is the HTTP adapter for the customer/dealer
// directory. Lookups are cached in redis; a failed lookup degrades the
// caller's read to bare IDs, never to an error.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/config"
	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/service"
	pkgcache "autoparts-returns-backend/pkg/cache"
	"autoparts-returns-backend/pkg/logger"
)

const (
	requestTimeout = 5 * time.Second
	partyCacheTTL  = 15 * time.Minute
)

var errPartyNotFound = errors.New("party not found in directory")

type Client struct {
	baseURL    string
	apiKey     string
	cache      pkgcache.Cache
	httpClient *http.Client
}

var _ service.Directory = (*Client)(nil)

func NewClient(cfg config.DirectoryConfig, cache pkgcache.Cache) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		cache:   cache,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) GetCustomer(ctx context.Context, customerID uuid.UUID) (*model.Party, error) {
	return c.getParty(ctx, "customers", customerID)
}

func (c *Client) GetDealer(ctx context.Context, dealerID uuid.UUID) (*model.Party, error) {
	return c.getParty(ctx, "dealers", dealerID)
}

func (c *Client) getParty(ctx context.Context, kind string, id uuid.UUID) (*model.Party, error) {
	cacheKey := fmt.Sprintf("directory:%s:%s", kind, id.String())

	var cached model.Party
	if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	party, err := c.fetchParty(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, cacheKey, party, partyCacheTTL); err != nil {
		logger.Error("Failed to cache directory party", err)
	}

	return party, nil
}

func (c *Client) fetchParty(ctx context.Context, kind string, id uuid.UUID) (*model.Party, error) {
	url := fmt.Sprintf("%s/internal/%s/%s", c.baseURL, kind, id.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errPartyNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var party model.Party
	if err := json.Unmarshal(body, &party); err != nil {
		return nil, fmt.Errorf("failed to decode directory party: %w", err)
	}

	return &party, nil
}
