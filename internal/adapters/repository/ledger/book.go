// Package ledger stores the deployment history of proxies.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// store backs a book with shared storage. lock keeps other processes out until the
// returned func runs; the book reloads under it, so every change is applied to the
// latest contents and never overwrites records another process wrote.
type store interface {
	lock(ctx context.Context, exclusive bool) (func(), error)
	load() (map[string]*models.ProxyState, error)
	save(proxies map[string]*models.ProxyState) error
}

// book holds proxy states in memory and enforces the append-only rules shared by
// the memory and file ledgers. A change that fails to save is undone.
type book struct {
	mu      sync.Mutex
	proxies map[string]*models.ProxyState
	closed  bool
	store   store
}

func newBook() *book {
	return &book{proxies: make(map[string]*models.ProxyState)}
}

// begin locks the book for one operation and brings it up to date with its store.
// The returned func ends the operation.
func (b *book) begin(ctx context.Context, exclusive bool) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrLedgerClosed
	}
	if b.store == nil {
		return b.mu.Unlock, nil
	}

	unlock, err := b.store.lock(ctx, exclusive)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	proxies, err := b.store.load()
	if err != nil {
		unlock()
		b.mu.Unlock()
		return nil, err
	}
	b.proxies = proxies
	return func() {
		unlock()
		b.mu.Unlock()
	}, nil
}

func proxyKey(chainID uint64, addr common.Address) string {
	return fmt.Sprintf("%d/%s", chainID, strings.ToLower(addr.Hex()))
}

func (b *book) recordDeployment(ctx context.Context, name string, rec *models.DeploymentRecord) error {
	if rec == nil {
		return fmt.Errorf("nil deployment record")
	}
	if name == "" {
		return fmt.Errorf("proxy name is required")
	}
	if rec.Kind != models.RecordDeploy {
		return fmt.Errorf("record %s is a %s, not a deployment", rec.ID, rec.Kind)
	}
	if rec.Version != 1 {
		return fmt.Errorf("first record of a proxy must be version 1, got %d", rec.Version)
	}
	if rec.ProxyAddress == (common.Address{}) {
		return fmt.Errorf("deployment record without proxy address")
	}

	end, err := b.begin(ctx, true)
	if err != nil {
		return err
	}
	defer end()

	key := proxyKey(rec.ChainID, rec.ProxyAddress)
	if existing, ok := b.proxies[key]; ok {
		return fmt.Errorf("proxy %s: %w", existing.DisplayName(), domain.ErrAlreadyInitialized)
	}
	if existing := b.findByName(rec.ChainID, name); existing != nil {
		return fmt.Errorf("proxy %s: %w", existing.DisplayName(), domain.ErrAlreadyInitialized)
	}

	b.proxies[key] = &models.ProxyState{
		Name:                  name,
		ChainID:               rec.ChainID,
		Address:               rec.ProxyAddress,
		Kind:                  models.ProxyKind,
		CurrentImplementation: rec.Implementation,
		Admin:                 rec.Sender,
		Initialized:           true,
		Version:               1,
		History:               []*models.DeploymentRecord{rec},
	}
	if err := b.save(); err != nil {
		delete(b.proxies, key)
		return err
	}
	return nil
}

func (b *book) recordUpgrade(ctx context.Context, rec *models.DeploymentRecord) error {
	if rec == nil {
		return fmt.Errorf("nil upgrade record")
	}
	if rec.Kind != models.RecordUpgrade {
		return fmt.Errorf("record %s is a %s, not an upgrade", rec.ID, rec.Kind)
	}

	end, err := b.begin(ctx, true)
	if err != nil {
		return err
	}
	defer end()

	key := proxyKey(rec.ChainID, rec.ProxyAddress)
	state, ok := b.proxies[key]
	if !ok {
		return fmt.Errorf("proxy %s on chain %d: %w", rec.ProxyAddress.Hex(), rec.ChainID, domain.ErrNotFound)
	}
	if rec.Implementation == state.CurrentImplementation {
		return fmt.Errorf("proxy %s: %w", state.DisplayName(), domain.ErrAlreadyAtVersion)
	}
	if rec.Version != state.Version+1 {
		return fmt.Errorf("proxy %s is at version %d, cannot record version %d", state.DisplayName(), state.Version, rec.Version)
	}

	prev := state.Clone()
	state.History = append(state.History, rec)
	state.CurrentImplementation = rec.Implementation
	state.Version = rec.Version
	if err := b.save(); err != nil {
		b.proxies[key] = prev
		return err
	}
	return nil
}

func (b *book) snapshot(ctx context.Context, chainID uint64, addr common.Address) (*models.ProxyState, error) {
	end, err := b.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer end()
	state, ok := b.proxies[proxyKey(chainID, addr)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return state.Clone(), nil
}

func (b *book) byName(ctx context.Context, chainID uint64, name string) (*models.ProxyState, error) {
	end, err := b.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer end()
	state := b.findByName(chainID, name)
	if state == nil {
		return nil, domain.ErrNotFound
	}
	return state.Clone(), nil
}

func (b *book) findByName(chainID uint64, name string) *models.ProxyState {
	for _, state := range b.proxies {
		if state.ChainID == chainID && state.Name == name {
			return state
		}
	}
	return nil
}

func (b *book) list(ctx context.Context, chainID uint64) ([]*models.ProxyState, error) {
	end, err := b.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	defer end()
	states := lo.Filter(lo.Values(b.proxies), func(s *models.ProxyState, _ int) bool {
		return s.ChainID == chainID
	})
	return lo.Map(states, func(s *models.ProxyState, _ int) *models.ProxyState {
		return s.Clone()
	}), nil
}

// save runs inside an exclusive operation
func (b *book) save() error {
	if b.store == nil {
		return nil
	}
	return b.store.save(b.proxies)
}

func (b *book) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
