// Package exchange provides the Coinbase Advanced Trade API client used to
// fetch public candle data.
//
// The client issues one HTTP request per call and classifies failures so the
// caller's retry policy can distinguish transient errors (connection
// failures, 429, 5xx) from permanent ones (other 4xx, malformed responses).
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/mattjh/candle-export/internal/errors"
	"github.com/mattjh/candle-export/internal/models"
)

const (
	// Coinbase Advanced Trade API base URL
	coinbaseBaseURL = "https://api.coinbase.com"

	// Public candles endpoint, parameterized by product ID
	candlesEndpoint = "/api/v3/brokerage/products/%s/candles"

	requestTimeout = 30 * time.Second
	userAgent      = "candle-export/1.0"

	rateLimitBurst = 1
)

// Client fetches candle data from Coinbase. A single rate limiter paces
// requests across all sequential jobs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// NewClient creates a Coinbase client pacing requests at requestsPerSecond.
func NewClient(requestsPerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), rateLimitBurst),
		baseURL:     coinbaseBaseURL,
		logger:      logger,
	}
}

// Candles fetches the candles for one [start, end) window. The exchange
// returns rows newest first; no ordering is applied here. An empty result is
// legal, e.g. for ranges before an asset existed.
func (c *Client) Candles(ctx context.Context, productID string, granularity models.Granularity, start, end time.Time) ([]models.Candle, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf(c.baseURL+candlesEndpoint, url.PathEscape(productID))

	params := url.Values{}
	params.Add("start", strconv.FormatInt(start.Unix(), 10))
	params.Add("end", strconv.FormatInt(end.Unix(), 10))
	params.Add("granularity", granularity.String())

	body, err := c.get(ctx, requestURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var apiResponse struct {
		Candles []coinbaseCandle `json:"candles"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, &apperrors.ValidationError{Err: fmt.Errorf("failed to parse candles response: %w", err)}
	}

	candles := make([]models.Candle, 0, len(apiResponse.Candles))
	for _, row := range apiResponse.Candles {
		startUnix, err := strconv.ParseInt(row.Start, 10, 64)
		if err != nil {
			c.logger.Warn("skipping candle with invalid start timestamp",
				"product", productID, "start", row.Start, "error", err)
			continue
		}
		candle, err := models.NewCandle(productID, granularity, startUnix,
			row.Low, row.High, row.Open, row.Close, row.Volume)
		if err != nil {
			c.logger.Warn("skipping malformed candle",
				"product", productID, "start", row.Start, "error", err)
			continue
		}
		candles = append(candles, *candle)
	}

	c.logger.Debug("fetched candle window",
		"product", productID,
		"granularity", granularity,
		"start", start,
		"end", end,
		"count", len(candles))

	return candles, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &apperrors.ValidationError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("rate limited by exchange", "retry_after", resp.Header.Get("Retry-After"))
		}
		return nil, &apperrors.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// coinbaseCandle is one row of the candles response. All fields are strings
// on the wire, including the start timestamp.
type coinbaseCandle struct {
	Start  string `json:"start"`
	Low    string `json:"low"`
	High   string `json:"high"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}
