package imageupload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peepybureau/bpi/internal/conf"
)

// Local writes images to a directory served by the web server.
type Local struct {
	dir       string
	urlPrefix string
	now       func() time.Time
	newID     func() string
}

// NewLocal creates the upload directory.
func NewLocal(cfg conf.LocalImageSettings) (*Local, error) {
	if cfg.Path == "" {
		return nil, ErrNotConfigured
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, uploadError(fmt.Errorf("failed to create upload directory: %w", err), conf.ImageProviderLocal)
	}
	prefix := strings.TrimRight(cfg.URLPrefix, "/")
	if prefix == "" {
		prefix = "/uploads"
	}
	return &Local{dir: cfg.Path, urlPrefix: prefix, now: time.Now, newID: uuid.NewString}, nil
}

func (u *Local) Name() string { return conf.ImageProviderLocal }

// Dir is the directory to serve under URLPrefix.
func (u *Local) Dir() string { return u.dir }

// URLPrefix is the path uploads are served from.
func (u *Local) URLPrefix() string { return u.urlPrefix }

func (u *Local) Upload(ctx context.Context, img Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(u.now().UTC(), u.newID(), &img)
	target := filepath.Join(u.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", uploadError(err, u.Name())
	}

	// write then rename so a half written file is never served
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, img.Data, 0o644); err != nil { //nolint:gosec // images are public
		return "", uploadError(err, u.Name())
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", uploadError(err, u.Name())
	}
	return path.Join(u.urlPrefix, name), nil
}
