package photos

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MediaRoute is where the HTTP server exposes a Dir backend.
const MediaRoute = "/media"

// Dir keeps photos on the local filesystem.
type Dir struct {
	root    string
	baseURL string
}

func NewDir(root, baseURL string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create photo dir %s", root)
	}
	return &Dir{root: root, baseURL: baseURL}, nil
}

func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) Put(ctx context.Context, key string, data []byte, _ string, _ map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "create photo folder")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write photo")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err, "move photo into place")
	}

	return joinURL(d.baseURL, MediaRoute, key), nil
}
