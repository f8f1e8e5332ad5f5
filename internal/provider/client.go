package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skyops/emptylegs/config"
)

// SnapshotItem is one availability entry from the marketplace feed.
// ExternalID is the stable identity used for upserts.
type SnapshotItem struct {
	ExternalID     string    `json:"id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	AircraftType   string    `json:"aircraft_type"`
	TotalSeats     int       `json:"seats_total"`
	AvailableSeats int       `json:"seats_available"`
	Price          float64   `json:"price"`
	DiscountPrice  float64   `json:"discount_price"`
}

type snapshotResponse struct {
	Items []SnapshotItem `json:"items"`
}

// Client fetches the marketplace's current availability snapshot. Stateless
// and safe to call repeatedly; the caller decides about retries.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.ProviderConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchSnapshot(ctx context.Context) ([]SnapshotItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/empty-legs", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: provider returned %d", resp.StatusCode)
	}

	var payload snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return payload.Items, nil
}
