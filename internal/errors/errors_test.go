package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Type
	}{
		{429, TypeRateLimit},
		{500, TypeServerError},
		{502, TypeServerError},
		{503, TypeServerError},
		{400, TypeBadRequest},
		{401, TypeBadRequest},
		{404, TypeBadRequest},
		{200, TypeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHTTPStatus(tt.status), "status %d", tt.status)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Run("http errors", func(t *testing.T) {
		assert.Equal(t, TypeRateLimit, Classify(&HTTPError{Status: 429}))
		assert.Equal(t, TypeServerError, Classify(fmt.Errorf("chunk 3: %w", &HTTPError{Status: 503})))
		assert.Equal(t, TypeBadRequest, Classify(&HTTPError{Status: 404}))
	})

	t.Run("network errors", func(t *testing.T) {
		var netErr net.Error = &net.OpError{Op: "dial", Err: stderrors.New("connection refused")}
		assert.Equal(t, TypeNetwork, Classify(netErr))
		assert.Equal(t, TypeTimeout, Classify(timeoutError{}))
		assert.Equal(t, TypeTimeout, Classify(context.DeadlineExceeded))
	})

	t.Run("validation errors", func(t *testing.T) {
		assert.Equal(t, TypeValidation, Classify(&ValidationError{Err: stderrors.New("bad json")}))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&HTTPError{Status: 429}))
	assert.True(t, IsRetryable(&HTTPError{Status: 500}))
	assert.True(t, IsRetryable(timeoutError{}))
	assert.True(t, IsRetryable(stderrors.New("something unexpected")))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(&HTTPError{Status: 404}))
	assert.False(t, IsRetryable(&ValidationError{Err: stderrors.New("bad json")}))
	assert.False(t, IsRetryable(context.Canceled))
}

func TestRetryPolicyExecute(t *testing.T) {
	t.Run("succeeds after transient failures with delays between attempts", func(t *testing.T) {
		const delay = 20 * time.Millisecond
		policy := RetryPolicy{MaxAttempts: 4, Delay: delay}

		attempts := 0
		started := time.Now()
		err := policy.Execute(context.Background(), func() error {
			attempts++
			if attempts <= 2 {
				return &HTTPError{Status: 503}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		// Two failures mean two fixed delays were observed.
		assert.GreaterOrEqual(t, time.Since(started), 2*delay)
	})

	t.Run("exhausts attempts and returns the last error", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

		attempts := 0
		err := policy.Execute(context.Background(), func() error {
			attempts++
			return &HTTPError{Status: 500}
		})

		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, 500, httpErr.Status)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond}

		attempts := 0
		err := policy.Execute(context.Background(), func() error {
			attempts++
			return &HTTPError{Status: 404}
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("zero max attempts still runs once", func(t *testing.T) {
		policy := RetryPolicy{}

		attempts := 0
		err := policy.Execute(context.Background(), func() error {
			attempts++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 10, Delay: 50 * time.Millisecond}

		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := policy.Execute(ctx, func() error {
			attempts++
			return &HTTPError{Status: 503}
		})

		require.Error(t, err)
		assert.Less(t, attempts, 10)
	})
}
