// Package oddsapi provides a client for The Odds API v4.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches head-to-head odds snapshots from The Odds API.
type Client struct {
	baseURL        string
	apiKey         string
	regions        []string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// Outcome is one participant's offered decimal price within a market.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Market is one bookmaker market, e.g. "h2h".
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Bookmaker is one book's markets for an event.
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Markets []Market `json:"markets"`
}

// Event is a single upcoming match with all quoted bookmaker prices.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// NewClient creates a new Odds API client.
func NewClient(baseURL, apiKey string, regions []string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		regions: regions,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// Odds retrieves the current head-to-head odds snapshot for one sport key.
func (c *Client) Odds(ctx context.Context, sportKey string) ([]Event, error) {
	u, err := url.Parse(fmt.Sprintf("%s/sports/%s/odds", c.baseURL, sportKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("apiKey", c.apiKey)
	q.Set("regions", strings.Join(c.regions, ","))
	q.Set("markets", "h2h")
	q.Set("oddsFormat", "decimal")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", sportKey, err)
	}
	defer resp.Body.Close()

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode odds for %s: %w", sportKey, err)
	}
	return events, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// errors and server errors.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
