package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"franchisee-hub/internal/common/config"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RequestTimeout:    time.Second,
		RetryConfig:       &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 5000})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)
}

func TestExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"first try", []error{nil}, 1, false},
		{"transient then ok", []error{errors.New("rpc error: code = Unavailable"), nil}, 2, false},
		{"transient exhausted", []error{errors.New("deadline exceeded"), errors.New("deadline exceeded"), errors.New("deadline exceeded")}, 3, true},
		{"permanent", []error{errors.New("NOT_FOUND: no such message")}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := testClient().ExecuteWithRetry(context.Background(), "publish", func(ctx context.Context) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				e := tt.errs[calls]
				calls++
				return e
			})

			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeBrokerUnavailable, apperrors.Classify(err))
			assert.False(t, apperrors.IsDecline(err))
		})
	}
}

func TestExecuteWithRetry_StopsOnCancel(t *testing.T) {
	c := testClient()
	c.config.RetryConfig.BaseDelay = time.Hour
	c.config.RetryConfig.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := c.ExecuteWithRetry(ctx, "publish", func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	retry := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(retry, 0))
	assert.Equal(t, 4*time.Second, backoff(retry, 2))
	assert.Equal(t, 5*time.Second, backoff(retry, 3))
}

func TestWorkerTimeout(t *testing.T) {
	w := NewWorker(nil, "franchise-send-notification", config.WorkerConfig{Timeout: 1500}, nil, logger.NewNoOpLogger())
	assert.Equal(t, 1500*time.Millisecond, w.timeout())

	w = NewWorker(nil, "franchise-send-notification", config.WorkerConfig{}, nil, logger.NewNoOpLogger())
	assert.Equal(t, defaultJobTimeout, w.timeout())

	// Stop before Start is a no-op.
	w.Stop()
}
