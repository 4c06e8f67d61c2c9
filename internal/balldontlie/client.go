// Package balldontlie provides a client for the BallDontLie NBA stats API.
package balldontlie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Client fetches player identities and recent game stats.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

type player struct {
	ID int `json:"id"`
}

type playersResponse struct {
	Data []player `json:"data"`
}

type statLine struct {
	Pts  int `json:"pts"`
	Game struct {
		Date string `json:"date"`
	} `json:"game"`
}

type statsResponse struct {
	Data []statLine `json:"data"`
}

// NewClient creates a new BallDontLie client. The API key is optional for
// endpoints that allow anonymous access.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// PlayerID looks up a player ID by full name. An unknown name returns 0
// without an error.
func (c *Client) PlayerID(ctx context.Context, name string) (int, error) {
	u, err := url.Parse(c.baseURL + "/players")
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("search", name)
	q.Set("per_page", "1")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return 0, fmt.Errorf("failed to look up player %q: %w", name, err)
	}
	defer resp.Body.Close()

	var pr playersResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("failed to decode player lookup for %q: %w", name, err)
	}
	if len(pr.Data) == 0 {
		return 0, nil
	}
	return pr.Data[0].ID, nil
}

// LastPoints returns the player's point totals from their last n games,
// oldest first. Fewer than n available games yields an empty slice.
func (c *Client) LastPoints(ctx context.Context, playerID, n int) ([]int, error) {
	u, err := url.Parse(c.baseURL + "/stats")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("player_ids[]", strconv.Itoa(playerID))
	// The stats endpoint has no ordering parameter; over-fetch and sort here.
	q.Set("per_page", "25")
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats for player %d: %w", playerID, err)
	}
	defer resp.Body.Close()

	var sr statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode stats for player %d: %w", playerID, err)
	}

	lines := sr.Data
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Game.Date > lines[j].Game.Date
	})
	if len(lines) < n {
		return nil, nil
	}

	points := make([]int, n)
	for i := 0; i < n; i++ {
		// Most recent first after the sort; reverse into oldest-first order.
		points[n-1-i] = lines[i].Pts
	}
	return points, nil
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
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
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
