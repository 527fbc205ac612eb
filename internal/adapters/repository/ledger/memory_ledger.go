package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// MemoryLedger keeps the ledger in process memory
type MemoryLedger struct {
	book *book
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{book: newBook()}
}

func (l *MemoryLedger) RecordDeployment(ctx context.Context, name string, record *models.DeploymentRecord) error {
	return l.book.recordDeployment(ctx, name, record)
}

func (l *MemoryLedger) RecordUpgrade(ctx context.Context, record *models.DeploymentRecord) error {
	return l.book.recordUpgrade(ctx, record)
}

func (l *MemoryLedger) Snapshot(ctx context.Context, chainID uint64, proxy common.Address) (*models.ProxyState, error) {
	return l.book.snapshot(ctx, chainID, proxy)
}

func (l *MemoryLedger) FindByName(ctx context.Context, chainID uint64, name string) (*models.ProxyState, error) {
	return l.book.byName(ctx, chainID, name)
}

func (l *MemoryLedger) List(ctx context.Context, chainID uint64) ([]*models.ProxyState, error) {
	return l.book.list(ctx, chainID)
}

func (l *MemoryLedger) Close() error {
	l.book.close()
	return nil
}
