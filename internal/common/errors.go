// Package common defines shared constants and sentinel errors used across
// the store client, the preservation engine and the job layer. Callers
// should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrSyncRunning = errors.New("sync already running")

	// Configuration errors are fatal: the attempt never opens a transaction
	// and is not retried.
	ErrConfiguration = errors.New("preservation not configured")

	// Store errors. All of them are retried at job level.
	ErrTransientStore      = errors.New("transient store error")
	ErrTransactionConflict = errors.New("transaction conflict")
	ErrTransactionTimeout  = errors.New("transaction timed out")
	ErrCommitFailed        = errors.New("transaction failed to commit")
	ErrStoreRejected       = errors.New("store rejected request")

	// Upload errors.
	ErrNoSource = errors.New("no content source for binary")
)

// StoreError describes a failed request against the archival store. It
// unwraps to both its Kind sentinel and the underlying cause, so
// errors.Is(err, ErrTransactionConflict) and errors.Is(err, io.EOF) work on
// the same value.
type StoreError struct {
	Op     string
	URL    string
	Status int
	Kind   error
	Err    error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Kind != nil {
		msg += " (" + e.Kind.Error() + ")"
	}
	return msg
}

func (e *StoreError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Class is the outcome category of an operation.
type Class int

const (
	// ClassOK means the operation succeeded.
	ClassOK Class = iota
	// ClassRetryable means the job layer should run the attempt again.
	ClassRetryable
	// ClassFatal means retrying cannot help.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassRetryable:
		return "retryable"
	case ClassFatal:
		return "fatal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Classify maps an error onto its outcome class. Only configuration errors
// are fatal; every store, transaction and source failure is retryable.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassOK
	case errors.Is(err, ErrConfiguration):
		return ClassFatal
	default:
		return ClassRetryable
	}
}
