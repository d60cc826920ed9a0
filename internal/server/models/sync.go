package models

import "time"

// TxState is the lifecycle state of one archival-store transaction.
type TxState int

const (
	TxOpen TxState = iota
	TxCommitRequested
	TxPending
	TxCommitted
	TxFailed
	TxTimedOut
)

var txStateNames = map[TxState]string{
	TxOpen:            "open",
	TxCommitRequested: "commit_requested",
	TxPending:         "pending",
	TxCommitted:       "committed",
	TxFailed:          "failed",
	TxTimedOut:        "timed_out",
}

func (s TxState) String() string {
	if n, ok := txStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether s is one of Committed, Failed or TimedOut.
func (s TxState) Terminal() bool {
	return s == TxCommitted || s == TxFailed || s == TxTimedOut
}

// SyncResult is what one successful attempt reports back.
type SyncResult struct {
	Success        bool
	ObjectID       string
	TransactionURI string
	Uploaded       []string
	Deleted        []string
}

// Sync run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// SyncRun is the ledger row for one attempt.
type SyncRun struct {
	ID             string
	ObjectID       string
	Attempt        int
	TransactionURI string
	Status         string
	Uploaded       int
	Deleted        int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Sync request statuses.
const (
	RequestPending = "pending"
	RequestRunning = "running"
	RequestDone    = "done"
	RequestFailed  = "failed"

	// RequestMerged marks a request folded into a later pending request
	// for the same object.
	RequestMerged = "merged"
)

// SyncRequest is a queued trigger to preserve one object.
type SyncRequest struct {
	ID           string
	ObjectID     string
	ForceRefresh bool
	Status       string
	CreatedAt    time.Time
}
