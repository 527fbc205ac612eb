package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

const (
	LedgerFile    = "ledger.json"
	LockFile      = "ledger.lock"
	ledgerVersion = 1

	lockRetryDelay = 50 * time.Millisecond
)

// ledgerDocument is the on-disk format of the ledger
type ledgerDocument struct {
	Version int                           `json:"version"`
	Proxies map[string]*models.ProxyState `json:"proxies"`
}

// FileLedger stores the ledger as JSON in the data directory. Every record is
// written through before the call returns. Several processes may share the file:
// each operation holds ledger.lock and rereads the file first.
type FileLedger struct {
	path  string
	flock *flock.Flock
	book  *book
}

// NewFileLedger opens the ledger in dataDir, creating the directory if needed
func NewFileLedger(dataDir string) (*FileLedger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dataDir, err)
	}

	l := &FileLedger{
		path:  filepath.Join(dataDir, LedgerFile),
		flock: flock.New(filepath.Join(dataDir, LockFile)),
		book:  newBook(),
	}
	// open fails fast on a corrupt file instead of on first use
	unlock, err := l.lock(context.Background(), false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if l.book.proxies, err = l.load(); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	l.book.store = l
	return l, nil
}

// Path returns the ledger file location
func (l *FileLedger) Path() string {
	return l.path
}

// lock takes ledger.lock, shared for reads and exclusive for writes, retrying
// until ctx is done
func (l *FileLedger) lock(ctx context.Context, exclusive bool) (func(), error) {
	try := l.flock.TryRLockContext
	if exclusive {
		try = l.flock.TryLockContext
	}
	locked, err := try(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", l.flock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: %w", l.flock.Path(), ctx.Err())
	}
	return func() { _ = l.flock.Unlock() }, nil
}

func (l *FileLedger) load() (map[string]*models.ProxyState, error) {
	proxies := make(map[string]*models.ProxyState)
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return proxies, nil
	}
	if err != nil {
		return nil, err
	}

	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	if doc.Version > ledgerVersion {
		return nil, fmt.Errorf("%s was written by a newer version (format %d)", l.path, doc.Version)
	}

	for _, state := range doc.Proxies {
		if state.Version != uint64(len(state.History)) {
			return nil, fmt.Errorf("%s: proxy %s has version %d but %d history records",
				l.path, state.DisplayName(), state.Version, len(state.History))
		}
		proxies[proxyKey(state.ChainID, state.Address)] = state
	}
	return proxies, nil
}

// save runs while ledger.lock is held exclusively
func (l *FileLedger) save(proxies map[string]*models.ProxyState) error {
	data, err := json.MarshalIndent(ledgerDocument{
		Version: ledgerVersion,
		Proxies: proxies,
	}, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) RecordDeployment(ctx context.Context, name string, record *models.DeploymentRecord) error {
	return l.book.recordDeployment(ctx, name, record)
}

func (l *FileLedger) RecordUpgrade(ctx context.Context, record *models.DeploymentRecord) error {
	return l.book.recordUpgrade(ctx, record)
}

func (l *FileLedger) Snapshot(ctx context.Context, chainID uint64, proxy common.Address) (*models.ProxyState, error) {
	return l.book.snapshot(ctx, chainID, proxy)
}

func (l *FileLedger) FindByName(ctx context.Context, chainID uint64, name string) (*models.ProxyState, error) {
	return l.book.byName(ctx, chainID, name)
}

func (l *FileLedger) List(ctx context.Context, chainID uint64) ([]*models.ProxyState, error) {
	return l.book.list(ctx, chainID)
}

// Close stops further use. Records are already on disk.
func (l *FileLedger) Close() error {
	l.book.close()
	return nil
}
