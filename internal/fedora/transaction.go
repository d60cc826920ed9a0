package fedora

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/preservd/internal/common"
)

// BeginTransaction opens a transaction and returns its URI.
func (c *Client) BeginTransaction(ctx context.Context) (string, error) {
	url := c.ResourceURL("fcr:tx")
	resp, err := c.do(ctx, request{method: http.MethodPost, url: url}, http.StatusCreated)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &common.StoreError{
			Op: http.MethodPost, URL: url, Status: resp.StatusCode,
			Kind: common.ErrStoreRejected, Err: errors.New("no Location header"),
		}
	}
	return loc, nil
}

// CommitTransaction asks the repository to commit txURI.
func (c *Client) CommitTransaction(ctx context.Context, txURI string) error {
	return c.exec(ctx, request{method: http.MethodPut, url: txURI}, http.StatusNoContent, http.StatusOK)
}

// RollbackTransaction discards txURI. A transaction that is already gone
// counts as rolled back.
func (c *Client) RollbackTransaction(ctx context.Context, txURI string) error {
	return c.exec(ctx, request{method: http.MethodDelete, url: txURI},
		http.StatusNoContent, http.StatusOK, http.StatusGone, http.StatusNotFound)
}

// TransactionStatus returns the raw HTTP status of txURI: 204 while the
// transaction is open, 410 once it is committed or discarded.
func (c *Client) TransactionStatus(ctx context.Context, txURI string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, txURI, nil)
	if err != nil {
		return 0, err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
