package usecase_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	abiencoder "github.com/trebuchet-org/uups-cli/internal/adapters/abi"
	"github.com/trebuchet-org/uups-cli/internal/adapters/repository/ledger"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/domain/uups"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

const testChainID = 31337

var (
	deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	stranger = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	errRevert      = fmt.Errorf("%w", domain.ErrCallReverted)
	initializedKey = crypto.Keccak256Hash([]byte("initialized"))
)

func slot(i int64) common.Hash { return common.BigToHash(big.NewInt(i)) }

// Contract fixtures

const uupsMethodsJSON = `
	{"type":"function","name":"upgradeToAndCall","stateMutability":"payable",
	 "inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"proxiableUUID","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]}`

const boxMethodsJSON = `
	{"type":"function","name":"initialize","stateMutability":"nonpayable",
	 "inputs":[{"name":"x","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"retrieve","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}`

const boxV2MethodsJSON = `
	{"type":"function","name":"migrate","stateMutability":"nonpayable",
	 "inputs":[{"name":"y","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"y","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}`

const proxyABIJSON = `[{"type":"constructor","stateMutability":"payable",
	"inputs":[{"name":"implementation","type":"address"},{"name":"_data","type":"bytes"}]}]`

var layoutTypes = map[string]layout.TypeDescriptor{
	"t_uint256": {Label: "uint256", Encoding: "inplace", NumberOfBytes: 32},
	"t_address": {Label: "address", Encoding: "inplace", NumberOfBytes: 20},
}

func storageLayout(entries ...layout.Entry) *layout.StorageLayout {
	return &layout.StorageLayout{Entries: entries, Types: layoutTypes}
}

func field(label, slot, typ string) layout.Entry {
	return layout.Entry{Label: label, Slot: slot, Type: typ}
}

func fixture(t *testing.T, name string, methods []string, storage *layout.StorageLayout) *models.LogicalContract {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader("[" + strings.Join(methods, ",") + "]"))
	require.NoError(t, err)

	deployedCode := []byte(name + "-runtime")
	return &models.LogicalContract{
		ID:               "src/" + name + ".sol:" + name,
		Name:             name,
		SourcePath:       "src/" + name + ".sol",
		ABI:              &parsed,
		Bytecode:         []byte(name + "-creation"),
		DeployedBytecode: deployedCode,
		BytecodeHash:     crypto.Keccak256Hash(deployedCode),
		StorageLayout:    storage,
	}
}

type fixtures struct {
	Proxy     *models.LogicalContract
	Box       *models.LogicalContract
	BoxV2     *models.LogicalContract
	BoxRename *models.LogicalContract
	BadBox    *models.LogicalContract
	NotUUPS   *models.LogicalContract
	NoLayout  *models.LogicalContract
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	proxyABI, err := abi.JSON(strings.NewReader(proxyABIJSON))
	require.NoError(t, err)

	boxLayout := storageLayout(field("x", "0", "t_uint256"), field("_owner", "1", "t_address"))
	return &fixtures{
		Proxy: &models.LogicalContract{
			ID:       config.DefaultProxyArtifact,
			Name:     config.DefaultProxyArtifact,
			ABI:      &proxyABI,
			Bytecode: []byte("ERC1967Proxy-creation"),
		},
		Box: fixture(t, "Box", []string{boxMethodsJSON, uupsMethodsJSON}, boxLayout),
		BoxV2: fixture(t, "BoxV2", []string{boxMethodsJSON, boxV2MethodsJSON, uupsMethodsJSON},
			storageLayout(field("x", "0", "t_uint256"), field("_owner", "1", "t_address"), field("y", "2", "t_uint256"))),
		BoxRename: fixture(t, "BoxRename", []string{boxMethodsJSON, uupsMethodsJSON},
			storageLayout(field("value", "0", "t_uint256"), field("_owner", "1", "t_address"))),
		BadBox: fixture(t, "BadBox", []string{boxMethodsJSON, uupsMethodsJSON},
			storageLayout(field("x", "0", "t_uint256"), field("y", "1", "t_uint256"))),
		NotUUPS:  fixture(t, "NotUUPS", []string{boxMethodsJSON}, boxLayout),
		NoLayout: fixture(t, "NoLayout", []string{boxMethodsJSON, uupsMethodsJSON}, nil),
	}
}

func (f *fixtures) all() []*models.LogicalContract {
	return []*models.LogicalContract{f.Proxy, f.Box, f.BoxV2, f.BoxRename, f.BadBox, f.NotUUPS, f.NoLayout}
}

// fakeResolver resolves fixtures by name or path:Name
type fakeResolver struct {
	contracts map[string]*models.LogicalContract
}

func newFakeResolver(contracts ...*models.LogicalContract) *fakeResolver {
	r := &fakeResolver{contracts: make(map[string]*models.LogicalContract)}
	for _, c := range contracts {
		r.contracts[c.ID] = c
		r.contracts[c.Name] = c
	}
	return r
}

func (r *fakeResolver) Resolve(_ context.Context, id string) (*models.LogicalContract, error) {
	if c, ok := r.contracts[id]; ok {
		return c, nil
	}
	return nil, &domain.ResolutionError{ContractID: id, Err: domain.ErrNotFound}
}

type fakeSigner struct {
	addr common.Address
	err  error
}

func (s fakeSigner) Address() (common.Address, error) { return s.addr, s.err }

// fault makes the fake chain misbehave for one submitted transaction
type fault int

const (
	faultNone fault = iota
	// faultLandLate mines the transaction but its confirmation times out
	faultLandLate
	// faultNeverMined drops the transaction and its confirmation times out
	faultNeverMined
)

type fakeTx struct {
	fault   fault
	status  domain.TxStatus
	block   uint64
	created common.Address
}

type fakeAccount struct {
	code []byte
	// contract is set for implementations; proxies delegate to the one in their slot
	contract *models.LogicalContract
	storage  map[common.Hash]common.Hash
}

// fakeChain executes the Box family of fixtures behind ERC1967 proxies
type fakeChain struct {
	mu         sync.Mutex
	chainID    uint64
	from       common.Address
	nonce      uint64
	block      uint64
	accounts   map[common.Address]*fakeAccount
	byCreation map[string]*models.LogicalContract
	proxy      *models.LogicalContract
	txs        map[common.Hash]*fakeTx
	faults     []fault
	onWait     func(hash common.Hash)
	submitted  int
	// callErrs fails read-only calls by function selector
	callErrs map[string]error
}

func newFakeChain(f *fixtures) *fakeChain {
	c := &fakeChain{
		chainID:    testChainID,
		from:       deployer,
		accounts:   make(map[common.Address]*fakeAccount),
		byCreation: make(map[string]*models.LogicalContract),
		proxy:      f.Proxy,
		txs:        make(map[common.Hash]*fakeTx),
	}
	for _, contract := range f.all() {
		if contract != f.Proxy {
			c.byCreation[string(contract.Bytecode)] = contract
		}
	}
	return c
}

// failNext queues faults for the next submitted transactions, in order
func (c *fakeChain) failNext(faults ...fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, faults...)
}

func (c *fakeChain) setOnWait(hook func(hash common.Hash)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWait = hook
}

func (c *fakeChain) submissions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

func (c *fakeChain) setStorage(addr common.Address, key, value common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[addr].storage[key] = value
}

func (c *fakeChain) implementation(addr common.Address) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uups.ImplementationFromSlot(c.accounts[addr].storage[uups.ImplementationSlot])
}

func (c *fakeChain) ChainID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.chainID, nil
}

func (c *fakeChain) Submit(ctx context.Context, req usecase.TxRequest) (*usecase.PendingTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := c.nonce
	c.nonce++
	c.submitted++
	pending := &usecase.PendingTx{
		Hash:  crypto.Keccak256Hash(c.from.Bytes(), new(big.Int).SetUint64(nonce).Bytes()),
		From:  c.from,
		Nonce: nonce,
	}

	tx := &fakeTx{fault: faultNone, status: domain.TxConfirmed}
	if len(c.faults) > 0 {
		tx.fault, c.faults = c.faults[0], c.faults[1:]
	}
	c.txs[pending.Hash] = tx
	if tx.fault == faultNeverMined {
		return pending, nil
	}

	c.block++
	tx.block = c.block
	var err error
	if req.To == nil {
		tx.created = crypto.CreateAddress(c.from, nonce)
		err = c.create(tx.created, req.Data)
	} else {
		_, err = c.call(*req.To, c.from, req.Data, true)
	}
	if err != nil {
		tx.status = domain.TxReverted
		tx.created = common.Address{}
	}
	return pending, nil
}

func (c *fakeChain) Wait(ctx context.Context, hash common.Hash) (*usecase.TxOutcome, error) {
	c.mu.Lock()
	hook := c.onWait
	c.mu.Unlock()
	if hook != nil {
		hook(hash)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.txs[hash]
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", hash.Hex())
	}
	if ctx.Err() != nil || tx.fault != faultNone {
		return &usecase.TxOutcome{Status: domain.TxTimeout}, nil
	}
	return &usecase.TxOutcome{Status: tx.status, BlockNumber: tx.block, ContractAddress: tx.created}, nil
}

func (c *fakeChain) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(data) >= 4 {
		if err, ok := c.callErrs[string(data[:4])]; ok {
			return nil, err
		}
	}
	return c.call(to, c.from, data, false)
}

// failCalls makes every read-only call with the selector of data return err
func (c *fakeChain) failCalls(data []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callErrs == nil {
		c.callErrs = make(map[string]error)
	}
	c.callErrs[string(data[:4])] = err
}

func (c *fakeChain) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc := c.accounts[addr]; acc != nil {
		return acc.code, nil
	}
	return nil, nil
}

func (c *fakeChain) StorageAt(ctx context.Context, addr common.Address, key common.Hash) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc := c.accounts[addr]; acc != nil {
		return acc.storage[key], nil
	}
	return common.Hash{}, nil
}

func (c *fakeChain) create(addr common.Address, data []byte) error {
	if bytes.HasPrefix(data, c.proxy.Bytecode) {
		args, err := c.proxy.ABI.Constructor.Inputs.Unpack(data[len(c.proxy.Bytecode):])
		if err != nil {
			return err
		}
		impl := args[0].(common.Address)
		initData := args[1].([]byte)
		if c.accounts[impl] == nil {
			return errRevert
		}

		c.accounts[addr] = &fakeAccount{
			code:    []byte("ERC1967Proxy-runtime"),
			storage: map[common.Hash]common.Hash{uups.ImplementationSlot: common.BytesToHash(impl.Bytes())},
		}
		if len(initData) > 0 {
			if _, err := c.call(addr, c.from, initData, true); err != nil {
				delete(c.accounts, addr)
				return err
			}
		}
		return nil
	}

	contract, ok := c.byCreation[string(data)]
	if !ok {
		return errRevert
	}
	c.accounts[addr] = &fakeAccount{
		code:     contract.DeployedBytecode,
		contract: contract,
		storage:  make(map[common.Hash]common.Hash),
	}
	return nil
}

// call runs data against a proxy. State changes are kept only when commit is set
// and the call does not revert.
func (c *fakeChain) call(to, from common.Address, data []byte, commit bool) ([]byte, error) {
	acc := c.accounts[to]
	if acc == nil {
		return nil, nil
	}
	if acc.contract != nil {
		return nil, errRevert
	}

	storage := maps.Clone(acc.storage)
	ret, err := c.execute(storage, from, data)
	if err == nil && commit {
		acc.storage = storage
	}
	return ret, err
}

func (c *fakeChain) execute(storage map[common.Hash]common.Hash, from common.Address, data []byte) ([]byte, error) {
	impl := c.accounts[uups.ImplementationFromSlot(storage[uups.ImplementationSlot])]
	if impl == nil || impl.contract == nil || len(data) < 4 {
		return nil, errRevert
	}
	method, err := impl.contract.ABI.MethodById(data[:4])
	if err != nil {
		return nil, errRevert
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, errRevert
	}

	switch method.Name {
	case "initialize":
		if storage[initializedKey] != (common.Hash{}) {
			return nil, errRevert
		}
		storage[slot(0)] = common.BigToHash(args[0].(*big.Int))
		storage[slot(1)] = common.BytesToHash(from.Bytes())
		storage[initializedKey] = slot(1)
		return nil, nil

	case "migrate":
		y := args[0].(*big.Int)
		if y.Sign() == 0 {
			return nil, errRevert
		}
		storage[slot(2)] = common.BigToHash(y)
		return nil, nil

	case "retrieve":
		return method.Outputs.Pack(storage[slot(0)].Big())

	case "y":
		return method.Outputs.Pack(storage[slot(2)].Big())

	case "owner":
		return method.Outputs.Pack(common.BytesToAddress(storage[slot(1)].Bytes()))

	case "proxiableUUID":
		return method.Outputs.Pack([32]byte(uups.ImplementationSlot))

	case "upgradeToAndCall":
		if common.BytesToAddress(storage[slot(1)].Bytes()) != from {
			return nil, errRevert
		}
		next := args[0].(common.Address)
		acc := c.accounts[next]
		if acc == nil || acc.contract == nil || !acc.contract.HasMethod("proxiableUUID") {
			return nil, errRevert
		}
		storage[uups.ImplementationSlot] = common.BytesToHash(next.Bytes())
		if payload := args[1].([]byte); len(payload) > 0 {
			return c.execute(storage, from, payload)
		}
		return nil, nil
	}
	return nil, errRevert
}

// MockConfirmer is a mock implementation of Confirmer
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(ctx, prompt)
	return args.Bool(0), args.Error(1)
}

// MockProxySelector is a mock implementation of ProxySelector
type MockProxySelector struct {
	mock.Mock
}

func (m *MockProxySelector) SelectProxy(ctx context.Context, proxies []*models.ProxyState) (*models.ProxyState, error) {
	args := m.Called(ctx, proxies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProxyState), args.Error(1)
}

// harness wires the use cases against the fake chain and an in-memory ledger
type harness struct {
	cfg      *config.RuntimeConfig
	fx       *fixtures
	chain    *fakeChain
	ledger   *ledger.MemoryLedger
	resolver *fakeResolver
	encoder  *abiencoder.Encoder
	locks    *usecase.ProxyLocks
	log      *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fx := newFixtures(t)
	cfg := &config.RuntimeConfig{
		Namespace: "default",
		Network:   &config.Network{Name: "anvil", ChainID: testChainID, RPCURL: "http://localhost:8545"},
		UUPS:      config.UUPSConfig{ProxyArtifact: config.DefaultProxyArtifact},
	}
	return &harness{
		cfg:      cfg,
		fx:       fx,
		chain:    newFakeChain(fx),
		ledger:   ledger.NewMemoryLedger(),
		resolver: newFakeResolver(fx.all()...),
		encoder:  abiencoder.NewEncoder(),
		locks:    usecase.NewProxyLocks(nil),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (h *harness) deployUseCase() *usecase.DeployProxy {
	return usecase.NewDeployProxy(h.cfg, h.chain, fakeSigner{addr: deployer}, h.resolver, h.ledger,
		h.encoder, h.locks, usecase.NopProgress{}, h.log)
}

func (h *harness) upgradeUseCase(signer usecase.Signer, selector usecase.ProxySelector, confirmer usecase.Confirmer) *usecase.UpgradeProxy {
	return usecase.NewUpgradeProxy(h.cfg, h.chain, signer, h.resolver, h.ledger,
		h.encoder, h.locks, selector, confirmer, usecase.NopProgress{}, h.log)
}

func (h *harness) upgrader() *usecase.UpgradeProxy {
	return h.upgradeUseCase(fakeSigner{addr: deployer}, nil, usecase.AlwaysConfirm{})
}

func (h *harness) caller() *usecase.CallProxy {
	return usecase.NewCallProxy(h.cfg, h.chain, h.resolver, h.ledger, h.encoder, nil)
}

func (h *harness) deployBox(t *testing.T, name, x string) *usecase.DeployProxyResult {
	t.Helper()
	res, err := h.deployUseCase().Run(context.Background(), usecase.DeployProxyParams{
		ContractID: "Box",
		Name:       name,
		InitArgs:   []string{x},
	})
	require.NoError(t, err)
	return res
}

func (h *harness) read(t *testing.T, proxy, method string) string {
	t.Helper()
	res, err := h.caller().Run(context.Background(), usecase.CallProxyParams{Proxy: proxy, Method: method})
	require.NoError(t, err)
	require.Len(t, res.Values, 1)
	return res.Values[0]
}
