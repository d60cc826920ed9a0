package fedora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/preservd/internal/common"
)

// Exists reports whether the resource id exists, as seen from txURI when one
// is given.
func (c *Client) Exists(ctx context.Context, id, txURI string) (bool, error) {
	err := c.exec(ctx, request{method: http.MethodHead, url: c.ResourceURL(id), txURI: txURI}, http.StatusOK)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

// CreateArchivalGroup creates id as an archival group inside txURI.
func (c *Client) CreateArchivalGroup(ctx context.Context, id, txURI string) error {
	return c.exec(ctx, request{
		method: http.MethodPut,
		url:    c.ResourceURL(id),
		txURI:  txURI,
		headers: map[string]string{
			"Link":         archivalGroupLink,
			"Content-Type": "text/turtle",
		},
	}, http.StatusCreated, http.StatusNoContent)
}

type jsonldNode struct {
	ID       string `json:"@id"`
	Contains []struct {
		ID string `json:"@id"`
	} `json:"http://www.w3.org/ns/ldp#contains"`
}

// Children returns the names (last path segment) of the resources contained
// in id. A missing container has no children.
func (c *Client) Children(ctx context.Context, id, txURI string) ([]string, error) {
	url := c.ResourceURL(id)
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		url:    url,
		txURI:  txURI,
		headers: map[string]string{
			"Accept": "application/ld+json",
			"Prefer": containmentPrefer,
		},
	}, http.StatusOK)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var nodes []jsonldNode
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	// Prefer the node describing the container itself; proxies may rewrite
	// the host, so fall back to every node when none matches.
	selected := nodes[:0:0]
	for _, n := range nodes {
		if strings.TrimRight(n.ID, "/") == url {
			selected = append(selected, n)
		}
	}
	if len(selected) == 0 {
		selected = nodes
	}

	var names []string
	for _, n := range selected {
		for _, child := range n.Contains {
			uri := strings.TrimRight(child.ID, "/")
			names = append(names, uri[strings.LastIndexByte(uri, '/')+1:])
		}
	}
	return names, nil
}
