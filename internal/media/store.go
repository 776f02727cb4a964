// Package media stores uploaded images on local disk under generated names.
package media

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

var (
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("only image uploads are accepted")
	ErrEmpty           = errors.New("file is empty")
	ErrBadPath         = errors.New("path escapes the media root")
)

// Store media directory plus the URL prefix it is served under
type Store struct {
	root      string
	urlPrefix string
	maxSize   int64
	node      *snowflake.Node
}

// NewStore prepares root; nodeID distinguishes processes sharing one root.
func NewStore(root, urlPrefix string, maxSizeMB int, nodeID int64) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media root")
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "snowflake node")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &Store{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxSize:   int64(maxSizeMB) << 20,
		node:      node,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save sniffs r, rejects non-images and writes it as <dir>/<snowflake><ext>.
// It returns the slash separated path relative to the root.
func (s *Store) Save(r io.Reader, dir string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrUnsupportedType
	}

	dir = strings.Trim(path.Clean("/"+dir), "/")
	rel := path.Join(dir, s.node.Generate().String()+mtype.Extension())
	full, err := s.abs(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrap(err, "create media dir")
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write media file")
	}
	metrics.Incr(metrics.MediaStored, 1)
	return rel, nil
}

// URL public address of a stored relative path
func (s *Store) URL(rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return s.urlPrefix + "/" + strings.TrimLeft(rel, "/")
}

// Remove deletes a stored file; a missing file is not an error.
func (s *Store) Remove(rel string) error {
	full, err := s.abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove media file")
	}
	return nil
}

func (s *Store) abs(rel string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))
	root := filepath.Clean(s.root)
	if clean == root || !strings.HasPrefix(clean, root+string(filepath.Separator)) {
		return "", ErrBadPath
	}
	return clean, nil
}

// ReferencedPaths collects every media path still stored in the database.
func ReferencedPaths(ctx context.Context, db *gorm.DB) (map[string]bool, error) {
	refs := map[string]bool{}
	collect := func(model interface{}, columns ...string) error {
		for _, col := range columns {
			var paths []string
			err := db.WithContext(ctx).Model(model).
				Where(col+" <> ''").Pluck(col, &paths).Error
			if err != nil {
				return errors.Wrapf(err, "collect %s", col)
			}
			for _, p := range paths {
				refs[strings.TrimLeft(p, "/")] = true
			}
		}
		return nil
	}
	steps := []struct {
		model   interface{}
		columns []string
	}{
		{&domain.Image{}, []string{"path"}},
		{&domain.Category{}, []string{"image"}},
		{&domain.IndexCategory{}, []string{"image"}},
		{&domain.Banner{}, []string{"web_image", "rsp_image"}},
		{&domain.Service{}, []string{"image"}},
	}
	for _, st := range steps {
		if err := collect(st.model, st.columns...); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// Sweep removes files nothing references once they are older than grace.
// Fresh files are kept so an upload is not lost before its row is saved.
func (s *Store) Sweep(ctx context.Context, refs map[string]bool, grace time.Duration) (int, error) {
	cutoff := time.Now().Add(-grace)
	removed := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if refs[rel] {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			zap.L().Warn("media sweep remove failed", zap.String("namespace", "media"),
				zap.String("path", rel), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	if removed > 0 {
		metrics.Incr(metrics.MediaSwept, int64(removed))
	}
	return removed, errors.Wrap(err, "media sweep")
}
