// Package fedora is a small client for the Fedora 6 repository API: LDP
// containers, binaries, archival groups and the transaction (fcr:tx)
// extension. Only the calls the preservation engine needs are implemented.
package fedora

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/preservd/internal/netx"
)

const (
	// AtomicIDHeader binds a request to an open transaction.
	AtomicIDHeader = "Atomic-ID"

	archivalGroupLink = `<http://fedora.info/definitions/v4/repository#ArchivalGroup>;rel="type"`
	containmentPrefer = `return=representation; include="http://www.w3.org/ns/ldp#PreferContainment"; omit="http://www.w3.org/ns/ldp#PreferMembership"`
	ldpContains       = "http://www.w3.org/ns/ldp#contains"
)

// Client talks to one Fedora endpoint. It is safe for concurrent use.
type Client struct {
	base     string
	user     string
	password string
	http     *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(user, password string) Option {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient returns a client for the repository rooted at base, e.g.
// "https://fcrepo.example:8443/fcrepo/rest".
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Base returns the repository root URL.
func (c *Client) Base() string {
	return c.base
}

// ResourceURL returns the URL of a resource path below the root.
func (c *Client) ResourceURL(parts ...string) string {
	return c.base + "/" + strings.Join(parts, "/")
}

type request struct {
	method  string
	url     string
	txURI   string
	body    io.Reader
	size    int64
	headers map[string]string
}

// do sends r and returns the response once its status is one of accepted.
// The caller closes the body.
func (c *Client) do(ctx context.Context, r request, accepted ...int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.method, r.url, err)
	}
	if r.body != nil && r.size >= 0 {
		req.ContentLength = r.size
	}
	if r.txURI != "" {
		req.Header.Set(AtomicIDHeader, r.txURI)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, netx.TransportError(r.method, r.url, err)
	}
	if err := netx.CheckResponse(r.method, r.url, resp, accepted...); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// exec sends r and discards the response body.
func (c *Client) exec(ctx context.Context, r request, accepted ...int) error {
	resp, err := c.do(ctx, r, accepted...)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
