package ports

import (
	"context"
	"io"
)

// ImageStore keeps defect evidence images under opaque locator strings.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader, originalName string) (ref string, err error)
	// Remove is best-effort; deletion of the owning record proceeds even
	// when image removal fails.
	Remove(ctx context.Context, ref string) error
	Path(ref string) string
}
