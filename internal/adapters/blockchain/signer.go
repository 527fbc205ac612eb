package blockchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// KeySigner signs transactions with a raw secp256k1 key. A missing or malformed key
// is reported when the signer is first used so read-only commands still work.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	err     error
}

// NewKeySigner creates a signer from the configured private key
func NewKeySigner(cfg *config.RuntimeConfig) *KeySigner {
	raw := strings.TrimPrefix(strings.TrimSpace(cfg.UUPS.PrivateKey), "0x")
	if raw == "" {
		return &KeySigner{err: domain.ErrNoSigner}
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return &KeySigner{err: fmt.Errorf("invalid private key: %w", err)}
	}
	return NewKeySignerFromKey(key)
}

// NewKeySignerFromKey wraps an already parsed key
func NewKeySignerFromKey(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the sender address
func (s *KeySigner) Address() (common.Address, error) {
	if s.err != nil {
		return common.Address{}, s.err
	}
	return s.address, nil
}

// SignTx signs tx for chainID
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

var _ usecase.Signer = (*KeySigner)(nil)
