// Package netx turns HTTP outcomes into the store error taxonomy.
package netx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/dmitrijs2005/preservd/internal/common"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// KindForStatus maps an HTTP status onto a common sentinel.
func KindForStatus(code int) error {
	switch {
	case code == http.StatusConflict, code == http.StatusPreconditionFailed:
		return common.ErrTransactionConflict
	case code == http.StatusNotFound:
		return common.ErrorNotFound
	case code >= 500, code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return common.ErrTransientStore
	default:
		return common.ErrStoreRejected
	}
}

// CheckResponse returns nil when resp carries one of the accepted status
// codes. Otherwise it drains a bounded part of the body into a
// *common.StoreError.
func CheckResponse(op, url string, resp *http.Response, accepted ...int) error {
	if slices.Contains(accepted, resp.StatusCode) {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var cause error
	if body := strings.TrimSpace(string(b)); body != "" {
		cause = errors.New(body)
	}
	return &common.StoreError{
		Op:     op,
		URL:    url,
		Status: resp.StatusCode,
		Kind:   KindForStatus(resp.StatusCode),
		Err:    cause,
	}
}

// TransportError wraps a failure that happened before any response arrived.
func TransportError(op, url string, err error) error {
	return &common.StoreError{
		Op:   op,
		URL:  url,
		Kind: common.ErrTransientStore,
		Err:  fmt.Errorf("transport: %w", err),
	}
}
