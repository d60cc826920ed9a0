package preservation

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenSource_Precedence(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "cas")
	writeFile(t, filepath.Join(dir, "explicit.pdf"), "explicit")
	writeFile(t, filepath.Join(dir, "refs", "thesis.pdf"), "reference")
	writeFile(t, filepath.Join(root, "ab", "cd", "ef", "abcdef123456"), "digest")

	live := newFakeLive()
	live.content["bin"] = []byte("live")
	sources := DefaultSources(root, map[string]string{"https://hydra.example/refs/": filepath.Join(dir, "refs")}, live)

	full := models.BinaryDescriptor{
		ID:           "bin",
		Digest:       "urn:sha1:ABCDEF123456",
		LocalPath:    filepath.Join(dir, "explicit.pdf"),
		ReferenceURL: "file://" + filepath.ToSlash(filepath.Join(dir, "refs", "thesis.pdf")),
	}

	tests := []struct {
		name       string
		mutate     func(b *models.BinaryDescriptor)
		wantSource string
		wantBody   string
	}{
		{"explicit path wins", func(*models.BinaryDescriptor) {}, "local_path", "explicit"},
		{"missing local path falls through", func(b *models.BinaryDescriptor) { b.LocalPath = filepath.Join(dir, "gone") }, "reference", "reference"},
		{"reference prefix rewrite", func(b *models.BinaryDescriptor) {
			b.LocalPath = ""
			b.ReferenceURL = "https://hydra.example/refs/thesis.pdf"
		}, "reference", "reference"},
		{"digest path", func(b *models.BinaryDescriptor) { b.LocalPath, b.ReferenceURL = "", "" }, "digest_path", "digest"},
		{"unreachable reference falls to digest", func(b *models.BinaryDescriptor) {
			b.LocalPath = ""
			b.ReferenceURL = "http://elsewhere.example/x.pdf"
		}, "digest_path", "digest"},
		{"live content last", func(b *models.BinaryDescriptor) { b.LocalPath, b.ReferenceURL, b.Digest = "", "", "urn:sha1:ffffff000000" }, "live_content", "live"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := full
			tt.mutate(&b)
			rc, _, source, err := openSource(context.Background(), sources, "uuid_1", b)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, tt.wantBody, readAll(t, rc))
		})
	}
}

func TestOpenSource_NoneApplies(t *testing.T) {
	sources := DefaultSources("", nil, newFakeLive())

	_, _, _, err := openSource(context.Background(), sources, "uuid_1", models.BinaryDescriptor{ID: "x", Digest: "ab"})
	assert.ErrorIs(t, err, common.ErrNoSource)
}

type brokenLive struct{ *fakeLive }

func (brokenLive) OpenContent(context.Context, string, string) (io.ReadCloser, int64, error) {
	return nil, 0, errors.New("s3 unavailable")
}

func TestOpenSource_LiveErrorPropagates(t *testing.T) {
	sources := []SourceStrategy{LiveContentSource{Live: brokenLive{newFakeLive()}}}

	_, _, _, err := openSource(context.Background(), sources, "uuid_1", models.BinaryDescriptor{ID: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNoSource)
	assert.Contains(t, err.Error(), "source live_content for x: s3 unavailable")
}

func TestReferenceSource_LocalPath(t *testing.T) {
	s := ReferenceSource{Rewrites: map[string]string{
		"https://hydra.example/":      "/mnt/a",
		"https://hydra.example/deep/": "/mnt/b",
	}}

	assert.Equal(t, filepath.FromSlash("/data/refs/a b.pdf"), s.localPath("file:///data/refs/a%20b.pdf"))
	assert.Equal(t, filepath.Join("/mnt/b", "x.pdf"), s.localPath("https://hydra.example/deep/x.pdf"))
	assert.Equal(t, filepath.Join("/mnt/a", "y", "z.pdf"), s.localPath("https://hydra.example/y/z.pdf"))
	assert.Equal(t, "", s.localPath("https://other.example/x.pdf"))

	// dot segments may not climb out of the rewrite directory
	assert.Equal(t, "", s.localPath("https://hydra.example/../../etc/passwd"))
	assert.Equal(t, "", s.localPath("https://hydra.example/deep/%2E%2E/%2E%2E/x.pdf"))
	assert.Equal(t, filepath.Join("/mnt/a", "z.pdf"), s.localPath("https://hydra.example/y/../z.pdf"))
}
