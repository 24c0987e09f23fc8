// Package prices looks up recent closing prices via the Yahoo Finance
// chart API.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// Client fetches the most recent closing price for a ticker.
type Client struct {
	chartAPIURL string
	httpClient  *http.Client
}

// NewClient creates a new price lookup client.
func NewClient(chartAPIURL string, timeout time.Duration) *Client {
	return &Client{
		chartAPIURL: chartAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chartResponse is the chart API payload subset we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// LatestClose returns the most recent closing price for ticker. On any
// failure it returns the sentinel price together with the cause; callers log
// the error and record the sentinel.
func (c *Client) LatestClose(ctx context.Context, ticker string) (float64, error) {
	u, err := url.Parse(c.chartAPIURL + "/" + url.PathEscape(ticker))
	if err != nil {
		return models.SentinelPrice, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("range", "1d")
	q.Set("interval", "1d")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.SentinelPrice, err
	}
	req.Header.Set("Accept", "application/json")
	// The chart endpoint rejects requests without a browser-ish agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.SentinelPrice, fmt.Errorf("price lookup failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.SentinelPrice, fmt.Errorf("price lookup for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.SentinelPrice, fmt.Errorf("failed to decode price response for %s: %w", ticker, err)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return models.SentinelPrice, fmt.Errorf("no price data for %s", ticker)
	}

	closes := payload.Chart.Result[0].Indicators.Quote[0].Close
	// Walk backwards past trailing zero/absent bars.
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] > 0 {
			return closes[i], nil
		}
	}
	return models.SentinelPrice, fmt.Errorf("no close price for %s", ticker)
}
