package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
)

func TestExecute_SucceedsAfterRetry(t *testing.T) {
	alerter := &fakeAlerter{}
	p := NewPolicy(3, time.Millisecond, alerter, logging.NewNop())

	var attempts []int
	err := p.Execute(context.Background(), "uuid_1", func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return common.ErrTransactionTimeout
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Empty(t, alerter.alerts)
}

func TestExecute_ExhaustionAlertsOnce(t *testing.T) {
	var buf bytes.Buffer
	alerter := &fakeAlerter{}
	p := NewPolicy(3, time.Millisecond, alerter, logging.NewJSONLogger(&buf, slog.LevelDebug))

	calls := 0
	err := p.Execute(context.Background(), "uuid_1", func(context.Context, int) error {
		calls++
		return fmt.Errorf("upload: %w", common.ErrTransientStore)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransientStore)
	assert.Equal(t, 4, calls, "one attempt plus three retries")

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "Preservation failure: uuid_1 - sync failed after 3 retries", alerter.alerts[0].Title)
	assert.Contains(t, alerter.alerts[0].Body, "transient store error")
	assert.Contains(t, buf.String(), `"level":"FATAL"`)
}

func TestExecute_ConfigurationNotRetried(t *testing.T) {
	alerter := &fakeAlerter{}
	p := NewPolicy(3, time.Millisecond, alerter, logging.NewNop())

	calls := 0
	err := p.Execute(context.Background(), "uuid_1", func(context.Context, int) error {
		calls++
		return fmt.Errorf("open: %w", common.ErrConfiguration)
	})
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.Equal(t, 1, calls)
	assert.Empty(t, alerter.alerts)
}

func TestExecute_AlertFailureDoesNotMaskError(t *testing.T) {
	alerter := &fakeAlerter{err: errors.New("gitlab down")}
	p := NewPolicy(0, time.Millisecond, alerter, logging.NewNop())

	err := p.Execute(context.Background(), "uuid_1", func(context.Context, int) error {
		return common.ErrCommitFailed
	})
	assert.ErrorIs(t, err, common.ErrCommitFailed)
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "Preservation failure: uuid_1 - sync failed after 0 retries", alerter.alerts[0].Title)
}

func TestExecute_CancelledSkipsAlert(t *testing.T) {
	alerter := &fakeAlerter{}
	p := NewPolicy(3, time.Hour, alerter, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	err := p.Execute(ctx, "uuid_1", func(context.Context, int) error {
		cancel()
		return common.ErrTransientStore
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, alerter.alerts)
}
