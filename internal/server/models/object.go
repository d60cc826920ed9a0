// Package models defines the records the preservation engine reads from the
// live repository and the ones it keeps about its own attempts.
package models

import (
	"errors"
	"strings"
)

// LiveObject is a read-only snapshot of one object in the live repository,
// as produced by the exporter.
type LiveObject struct {
	ID string
	// Metadata is the full serialized metadata snapshot.
	Metadata []byte
	// PublicMetadata is the public (DataCite) serialization. It is only
	// written when Public is set.
	PublicMetadata []byte
	// Public is the public-visibility flag.
	Public bool
	// Binaries is the ordered set of binary files attached to the object.
	Binaries []BinaryDescriptor
}

// BinaryIDs returns the ids of o's binaries in order.
func (o *LiveObject) BinaryIDs() []string {
	ids := make([]string, 0, len(o.Binaries))
	for _, b := range o.Binaries {
		ids = append(ids, b.ID)
	}
	return ids
}

// Binary looks up a descriptor by id.
func (o *LiveObject) Binary(id string) (BinaryDescriptor, bool) {
	for _, b := range o.Binaries {
		if b.ID == id {
			return b, true
		}
	}
	return BinaryDescriptor{}, false
}

// BinaryDescriptor describes one binary file and the places its content may
// be found.
type BinaryDescriptor struct {
	// ID is the live system's opaque binary id, stable across syncs. It is
	// also the binary's name inside the archival container.
	ID string
	// Digest is the content hash, either bare hex or "urn:<algo>:<hex>".
	Digest string
	// LocalPath is an optional explicit on-disk location.
	LocalPath string
	// ReferenceURL is set for file-by-reference binaries.
	ReferenceURL string
	MimeType     string
}

// DigestHex returns the hex part of Digest, stripping any "urn:<algo>:"
// prefix.
func (b BinaryDescriptor) DigestHex() string {
	d := b.Digest
	if i := strings.LastIndexByte(d, ':'); i >= 0 {
		d = d[i+1:]
	}
	return strings.ToLower(d)
}

// ErrNotExternalBody is returned for file-format values that do not carry a
// reference URL.
var ErrNotExternalBody = errors.New("not a message/external-body reference")

// ParseExternalBody extracts the URL from a file-by-reference format value
// such as:
//
//	message/external-body;access-type=URL;url="file:///data/refs/thesis.pdf"
func ParseExternalBody(format string) (string, error) {
	parts := strings.Split(format, ";")
	if len(parts) == 0 || !strings.EqualFold(strings.TrimSpace(parts[0]), "message/external-body") {
		return "", ErrNotExternalBody
	}
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(key, "url") {
			continue
		}
		value = strings.Trim(value, `"`)
		if value == "" {
			break
		}
		return value, nil
	}
	return "", ErrNotExternalBody
}
