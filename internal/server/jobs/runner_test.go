package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

type scriptedSyncer struct {
	errs  []error
	calls int
	force []bool
}

func (s *scriptedSyncer) PerformSync(_ context.Context, objectID string, force bool) (*models.SyncResult, error) {
	s.calls++
	s.force = append(s.force, force)
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	res := &models.SyncResult{ObjectID: objectID, TransactionURI: fmt.Sprintf("tx/%d", s.calls)}
	if err != nil {
		return res, err
	}
	res.Success = true
	res.Uploaded = []string{"A", "B"}
	res.Deleted = []string{"C"}
	return res, nil
}

func TestRunner_RecordsEveryAttempt(t *testing.T) {
	runs := &fakeRuns{}
	syncer := &scriptedSyncer{errs: []error{common.ErrTransactionTimeout}}
	r := NewRunner(NewPolicy(3, time.Millisecond, &fakeAlerter{}, logging.NewNop()), syncer, runs, logging.NewNop())

	require.NoError(t, r.Sync(context.Background(), "uuid_1", true))
	require.Len(t, runs.runs, 2)

	first, second := runs.runs[0], runs.runs[1]
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, models.RunFailed, first.Status)
	assert.Equal(t, "transaction timed out", first.Error)
	assert.Equal(t, "tx/1", first.TransactionURI)

	assert.Equal(t, 2, second.Attempt)
	assert.Equal(t, models.RunSucceeded, second.Status)
	assert.Equal(t, 2, second.Uploaded)
	assert.Equal(t, 1, second.Deleted)
	assert.Equal(t, []bool{true, true}, syncer.force)
}

func TestRunner_LedgerFailureIsNotFatal(t *testing.T) {
	runs := &fakeRuns{err: errors.New("db down")}
	r := NewRunner(NewPolicy(0, time.Millisecond, &fakeAlerter{}, logging.NewNop()), &scriptedSyncer{}, runs, logging.NewNop())

	require.NoError(t, r.Sync(context.Background(), "uuid_1", false))
}
