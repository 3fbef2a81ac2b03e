// Package storage keeps defect evidence images on local disk behind opaque
// uuid locators.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"railguard/internal/errs"
	"railguard/internal/ports"
)

type LocalImageStore struct {
	dir string
}

var _ ports.ImageStore = (*LocalImageStore)(nil)

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrapf(err, "create image directory %q", dir)
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".jpg"
	}
	ref := uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", errs.Wrap(err, "create image file")
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, r); err != nil {
		_ = os.Remove(dst.Name())
		return "", errs.Wrap(err, "write image file")
	}
	return ref, nil
}

func (s *LocalImageStore) Remove(ctx context.Context, ref string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	// Refuse refs that escape the store directory.
	if filepath.Base(ref) != ref {
		return errors.New("invalid image ref")
	}

	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errs.Wrap(err, "remove image file")
	}
	return nil
}

func (s *LocalImageStore) Path(ref string) string {
	return filepath.Join(s.dir, ref)
}
