package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newStore(t *testing.T, maxMB int) *Store {
	s, err := NewStore(t.TempDir(), "media/", maxMB, 1)
	require.NoError(t, err)
	return s
}

func TestSave(t *testing.T) {
	s := newStore(t, 1)

	rel, err := s.Save(bytes.NewReader(pngHeader), "products")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "products/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	assert.FileExists(t, filepath.Join(s.Root(), filepath.FromSlash(rel)))
	assert.Equal(t, "/media/"+rel, s.URL(rel))

	other, err := s.Save(bytes.NewReader(pngHeader), "products")
	require.NoError(t, err)
	assert.NotEqual(t, rel, other)

	// directory traversal in the target dir is flattened
	rel, err = s.Save(bytes.NewReader(pngHeader), "../../etc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "etc/"))
}

func TestSaveRejects(t *testing.T) {
	s := newStore(t, 1)

	_, err := s.Save(strings.NewReader("plain text, not a picture"), "x")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save(bytes.NewReader(nil), "x")
	assert.ErrorIs(t, err, ErrEmpty)

	big := append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...)
	_, err = s.Save(bytes.NewReader(big), "x")
	assert.ErrorIs(t, err, ErrTooLarge)

	assert.ErrorIs(t, s.Remove("../outside.png"), ErrBadPath)
	assert.NoError(t, s.Remove("products/missing.png"))
}

func TestSweep(t *testing.T) {
	s := newStore(t, 1)
	db := dbtest.Open(t)
	ctx := context.Background()

	kept, err := s.Save(bytes.NewReader(pngHeader), "products")
	require.NoError(t, err)
	orphan, err := s.Save(bytes.NewReader(pngHeader), "products")
	require.NoError(t, err)
	fresh, err := s.Save(bytes.NewReader(pngHeader), "banners")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Image{Path: kept}).Error)

	old := time.Now().Add(-48 * time.Hour)
	for _, rel := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(s.Root(), rel), old, old))
	}

	refs, err := ReferencedPaths(ctx, db)
	require.NoError(t, err)
	assert.True(t, refs[kept])

	removed, err := s.Sweep(ctx, refs, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.FileExists(t, filepath.Join(s.Root(), kept))
	assert.NoFileExists(t, filepath.Join(s.Root(), orphan))
	assert.FileExists(t, filepath.Join(s.Root(), fresh))
}
