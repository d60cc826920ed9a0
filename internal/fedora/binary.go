package fedora

import (
	"context"
	"io"
	"mime"
	"net/http"
)

// PutBinary creates or replaces the binary name inside container id. size
// may be -1 when unknown, in which case the body is sent chunked.
func (c *Client) PutBinary(ctx context.Context, id, name string, body io.Reader, size int64, mimeType, txURI string) error {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return c.exec(ctx, request{
		method: http.MethodPut,
		url:    c.ResourceURL(id, name),
		txURI:  txURI,
		body:   body,
		size:   size,
		headers: map[string]string{
			"Content-Type":        mimeType,
			"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
		},
	}, http.StatusCreated, http.StatusNoContent)
}

// DeleteBinary removes the binary name from container id.
func (c *Client) DeleteBinary(ctx context.Context, id, name, txURI string) error {
	return c.exec(ctx, request{
		method: http.MethodDelete,
		url:    c.ResourceURL(id, name),
		txURI:  txURI,
	}, http.StatusNoContent, http.StatusOK)
}
