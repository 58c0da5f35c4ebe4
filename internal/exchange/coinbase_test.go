package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mattjh/candle-export/internal/errors"
	"github.com/mattjh/candle-export/internal/models"
)

const (
	testProduct   = "BTC-USDC"
	testTimestamp = int64(1704067200) // 2024-01-01 00:00:00 UTC
)

// Responses mirror the real Coinbase Advanced Trade candles payload: rows are
// newest first and every field is a string.
var validCandlesResponse = struct {
	Candles []coinbaseCandle `json:"candles"`
}{
	Candles: []coinbaseCandle{
		{
			Start:  strconv.FormatInt(testTimestamp+86400, 10),
			Low:    "43000.00",
			High:   "44500.00",
			Open:   "43200.00",
			Close:  "44100.00",
			Volume: "2.34567890",
		},
		{
			Start:  strconv.FormatInt(testTimestamp, 10),
			Low:    "42000.00",
			High:   "43500.00",
			Open:   "42500.00",
			Close:  "43200.00",
			Volume: "1.23456789",
		},
	},
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(1000, nil)
	client.baseURL = server.URL
	return client
}

func TestCandles(t *testing.T) {
	start := time.Unix(testTimestamp, 0).UTC()
	end := start.AddDate(0, 0, 2)

	t.Run("fetches and converts candles", func(t *testing.T) {
		var gotPath string
		var gotQuery map[string]string

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = map[string]string{
				"start":       r.URL.Query().Get("start"),
				"end":         r.URL.Query().Get("end"),
				"granularity": r.URL.Query().Get("granularity"),
			}
			require.NoError(t, json.NewEncoder(w).Encode(validCandlesResponse))
		})

		candles, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.NoError(t, err)

		assert.Equal(t, "/api/v3/brokerage/products/BTC-USDC/candles", gotPath)
		assert.Equal(t, strconv.FormatInt(start.Unix(), 10), gotQuery["start"])
		assert.Equal(t, strconv.FormatInt(end.Unix(), 10), gotQuery["end"])
		assert.Equal(t, "ONE_DAY", gotQuery["granularity"])

		require.Len(t, candles, 2)
		// Wire order is preserved; ordering is the fetcher's concern.
		assert.Equal(t, testTimestamp+86400, candles[0].StartUnix)
		assert.Equal(t, testTimestamp, candles[1].StartUnix)
		assert.Equal(t, testProduct, candles[0].ProductID)
		assert.Equal(t, models.OneDay, candles[0].Granularity)
		assert.Equal(t, "42000.00", candles[1].Low)
	})

	t.Run("empty candle list is legal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candles":[]}`))
		})

		candles, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.NoError(t, err)
		assert.Empty(t, candles)
	})

	t.Run("rate limit response is retryable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.Error(t, err)
		assert.True(t, apperrors.IsRetryable(err))
	})

	t.Run("server error is retryable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.Error(t, err)
		assert.True(t, apperrors.IsRetryable(err))
	})

	t.Run("client error is permanent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
		})

		_, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.Error(t, err)
		assert.False(t, apperrors.IsRetryable(err))

		var httpErr *apperrors.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.Status)
	})

	t.Run("malformed body is permanent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candles": not json`))
		})

		_, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.Error(t, err)
		assert.False(t, apperrors.IsRetryable(err))
	})

	t.Run("malformed rows are skipped, valid rows kept", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candles":[
				{"start":"not-a-timestamp","low":"1","high":"2","open":"1.5","close":"1.8","volume":"10"},
				{"start":"1704067200","low":"42000.00","high":"43500.00","open":"42500.00","close":"43200.00","volume":"1.0"}
			]}`))
		})

		candles, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.NoError(t, err)
		require.Len(t, candles, 1)
		assert.Equal(t, testTimestamp, candles[0].StartUnix)
	})

	t.Run("sends identifying headers", func(t *testing.T) {
		var gotAccept, gotUserAgent string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAccept = r.Header.Get("Accept")
			gotUserAgent = r.Header.Get("User-Agent")
			w.Write([]byte(`{"candles":[]}`))
		})

		_, err := client.Candles(context.Background(), testProduct, models.OneDay, start, end)
		require.NoError(t, err)
		assert.Equal(t, "application/json", gotAccept)
		assert.Equal(t, userAgent, gotUserAgent)
	})
}
