package preservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/filex"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// SourceStrategy is one way of obtaining a binary's content. Open reports
// ok=false when the strategy does not apply to b; an error means it applied
// and failed.
type SourceStrategy interface {
	Name() string
	Open(ctx context.Context, objectID string, b models.BinaryDescriptor) (rc io.ReadCloser, size int64, ok bool, err error)
}

// openSource tries sources in order and returns the first that applies.
func openSource(ctx context.Context, sources []SourceStrategy, objectID string, b models.BinaryDescriptor) (io.ReadCloser, int64, string, error) {
	for _, s := range sources {
		rc, size, ok, err := s.Open(ctx, objectID, b)
		if err != nil {
			return nil, 0, s.Name(), fmt.Errorf("source %s for %s: %w", s.Name(), b.ID, err)
		}
		if ok {
			return rc, size, s.Name(), nil
		}
	}
	return nil, 0, "", fmt.Errorf("binary %s: %w", b.ID, common.ErrNoSource)
}

func openLocal(path string) (io.ReadCloser, int64, bool, error) {
	if path == "" {
		return nil, 0, false, nil
	}
	if _, ok := filex.RegularFile(path); !ok {
		return nil, 0, false, nil
	}
	f, size, err := filex.OpenRegular(path)
	if err != nil {
		return nil, 0, false, err
	}
	return f, size, true, nil
}

// LocalPathSource streams the descriptor's explicit local path.
type LocalPathSource struct{}

func (LocalPathSource) Name() string { return "local_path" }

func (LocalPathSource) Open(_ context.Context, _ string, b models.BinaryDescriptor) (io.ReadCloser, int64, bool, error) {
	return openLocal(b.LocalPath)
}

// ReferenceSource maps a file-by-reference URL onto the local filesystem.
// file:// URLs map directly; other URLs are matched against Rewrites, a map
// of URL prefix to local directory, longest prefix first.
type ReferenceSource struct {
	Rewrites map[string]string
}

func (ReferenceSource) Name() string { return "reference" }

func (s ReferenceSource) Open(_ context.Context, _ string, b models.BinaryDescriptor) (io.ReadCloser, int64, bool, error) {
	if b.ReferenceURL == "" {
		return nil, 0, false, nil
	}
	return openLocal(s.localPath(b.ReferenceURL))
}

func (s ReferenceSource) localPath(ref string) string {
	prefixes := make([]string, 0, len(s.Rewrites))
	for p := range s.Rewrites {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(ref, p); ok {
			rest, err := url.PathUnescape(rest)
			if err != nil {
				return ""
			}
			return within(s.Rewrites[p], filepath.FromSlash(rest))
		}
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

// within joins rel onto root and returns "" when the result leaves root.
func within(root, rel string) string {
	root = filepath.Clean(root)
	path := filepath.Join(root, rel)
	r, err := filepath.Rel(root, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return ""
	}
	return path
}

// DigestPathSource streams from the content-addressed tree under Root,
// e.g. Root/ab/cd/ef/abcdef123456.
type DigestPathSource struct {
	Root string
}

func (DigestPathSource) Name() string { return "digest_path" }

func (s DigestPathSource) Open(_ context.Context, _ string, b models.BinaryDescriptor) (io.ReadCloser, int64, bool, error) {
	if s.Root == "" {
		return nil, 0, false, nil
	}
	rel, err := filex.ShardPath(b.DigestHex())
	if err != nil {
		return nil, 0, false, nil
	}
	return openLocal(filepath.Join(s.Root, rel))
}

// LiveContentSource streams content from the live repository. It is the
// last resort.
type LiveContentSource struct {
	Live LiveRepository
}

func (LiveContentSource) Name() string { return "live_content" }

func (s LiveContentSource) Open(ctx context.Context, objectID string, b models.BinaryDescriptor) (io.ReadCloser, int64, bool, error) {
	rc, size, err := s.Live.OpenContent(ctx, objectID, b.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return rc, size, true, nil
}

// DefaultSources returns the standard lookup order: explicit path,
// reference URL, digest path, live content.
func DefaultSources(localRoot string, rewrites map[string]string, live LiveRepository) []SourceStrategy {
	return []SourceStrategy{
		LocalPathSource{},
		ReferenceSource{Rewrites: rewrites},
		DigestPathSource{Root: localRoot},
		LiveContentSource{Live: live},
	}
}
