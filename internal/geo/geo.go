// Package geo resolves map coordinates to street addresses through the
// OpenStreetMap Nominatim service, for the checkout's "use my location"
// flow.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies the shop to Nominatim, which rejects anonymous
// clients.
const userAgent = "webshop/1.0"

// Client reverse-geocodes through a Nominatim-compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient uses the public Nominatim instance when baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Reverse returns the display address for a coordinate pair. A
// coordinate Nominatim cannot resolve yields "Manzil topilmadi" rather
// than an error, matching what the checkout form shows.
func (c *Client) Reverse(ctx context.Context, lat, lon string) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", lat)
	q.Set("lon", lon)
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: nominatim returned %s", resp.Status)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if body.DisplayName == "" {
		return "Manzil topilmadi", nil
	}
	return body.DisplayName, nil
}
