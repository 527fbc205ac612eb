package models

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
)

// RecordKind distinguishes the operation that produced a deployment record
type RecordKind string

const (
	RecordDeploy  RecordKind = "DEPLOY"
	RecordUpgrade RecordKind = "UPGRADE"
)

// ProxyKind is the proxy flavour managed by the orchestrator
const ProxyKind = "UUPS"

// TxRef points at the transaction that produced a record
type TxRef struct {
	Hash        common.Hash `json:"hash"`
	BlockNumber uint64      `json:"blockNumber"`
}

// String returns the transaction hash in hex
func (r TxRef) String() string {
	return r.Hash.Hex()
}

// CallRecord captures the initializer or migration call executed with a deployment
type CallRecord struct {
	Method string   `json:"method"`
	Args   []string `json:"args"`
}

// DeploymentRecord is one immutable entry in a proxy's history
type DeploymentRecord struct {
	ID                     string                `json:"id"`
	Kind                   RecordKind            `json:"kind"`
	ChainID                uint64                `json:"chainId"`
	ProxyAddress           common.Address        `json:"proxyAddress"`
	Version                uint64                `json:"version"`
	Implementation         common.Address        `json:"implementation"`
	ContractID             string                `json:"contractId"`
	BytecodeHash           common.Hash           `json:"bytecodeHash"`
	Call                   *CallRecord           `json:"call,omitempty"`
	ImplementationTx       TxRef                 `json:"implementationTx"`
	Tx                     TxRef                 `json:"tx"` // proxy creation or upgradeToAndCall
	Timestamp              time.Time             `json:"timestamp"`
	StorageLayout          *layout.StorageLayout `json:"storageLayout,omitempty"`
	Sender                 common.Address        `json:"sender"`
	ReconciledAfterTimeout bool                  `json:"reconciledAfterTimeout,omitempty"`
}

// ProxyState is the ledger's snapshot of a proxy together with its history
type ProxyState struct {
	Name                  string              `json:"name"`
	ChainID               uint64              `json:"chainId"`
	Address               common.Address      `json:"address"`
	Kind                  string              `json:"kind"`
	CurrentImplementation common.Address      `json:"currentImplementation"`
	Admin                 common.Address      `json:"admin"`
	Initialized           bool                `json:"initialized"`
	Version               uint64              `json:"version"`
	History               []*DeploymentRecord `json:"history"`
}

// Current returns the record describing the implementation in place
func (p *ProxyState) Current() *DeploymentRecord {
	if len(p.History) == 0 {
		return nil
	}
	return p.History[len(p.History)-1]
}

// DisplayName returns name@address
func (p *ProxyState) DisplayName() string {
	if p.Name == "" {
		return p.Address.Hex()
	}
	return fmt.Sprintf("%s@%s", p.Name, p.Address.Hex())
}

// Clone returns a copy whose history slice can be read without holding ledger locks.
// Records themselves are immutable and shared.
func (p *ProxyState) Clone() *ProxyState {
	out := *p
	out.History = append([]*DeploymentRecord(nil), p.History...)
	return &out
}
