package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
)

const lockRetryDelay = 50 * time.Millisecond

// LockDir implements ProcessLock with one lock file per key under .uups/locks.
// The files are left in place; only the OS lock on them matters.
type LockDir struct {
	dir string
}

// NewLockDir creates a LockDir in the data directory
func NewLockDir(cfg *config.RuntimeConfig) *LockDir {
	return &LockDir{dir: filepath.Join(cfg.DataDir, "locks")}
}

// Lock holds key until release is called
func (d *LockDir) Lock(ctx context.Context, key string) (func(), error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", d.dir, err)
	}

	fl := flock.New(d.path(key))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), ctx.Err())
	}
	return func() { _ = fl.Unlock() }, nil
}

func (d *LockDir) path(key string) string {
	return filepath.Join(d.dir, url.PathEscape(key)+".lock")
}
