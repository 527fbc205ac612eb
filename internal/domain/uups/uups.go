// Package uups holds the on-chain conventions of ERC1967 proxies with UUPS
// (EIP-1822) implementations: the implementation slot and the calls the
// orchestrator makes against a proxy.
package uups

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ImplementationSlot is bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1).
var ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

const interfaceJSON = `[
	{"type":"function","name":"upgradeToAndCall","stateMutability":"payable",
	 "inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"proxiableUUID","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// Interface is the subset of a UUPS implementation's ABI used by the orchestrator.
var Interface = mustParse(interfaceJSON)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("uups: invalid interface ABI: %v", err))
	}
	return parsed
}

// requiredMethods must be present, with these signatures, for an implementation
// to be able to upgrade itself once it sits behind a proxy.
var requiredMethods = []string{
	"upgradeToAndCall(address,bytes)",
	"proxiableUUID()",
}

// MissingMethods returns the UUPS entry points that contract does not expose.
func MissingMethods(contract *abi.ABI) []string {
	if contract == nil {
		return requiredMethods
	}
	have := make(map[string]bool, len(contract.Methods))
	for _, m := range contract.Methods {
		have[m.Sig] = true
	}
	var missing []string
	for _, sig := range requiredMethods {
		if !have[sig] {
			missing = append(missing, sig)
		}
	}
	return missing
}

// ImplementationFromSlot decodes the implementation address stored in the ERC1967 slot.
func ImplementationFromSlot(value common.Hash) common.Address {
	return common.BytesToAddress(value.Bytes())
}

// PackUpgradeToAndCall encodes the proxy call that repoints the implementation and
// runs data against it in the same transaction.
func PackUpgradeToAndCall(implementation common.Address, data []byte) ([]byte, error) {
	if data == nil {
		data = []byte{}
	}
	return Interface.Pack("upgradeToAndCall", implementation, data)
}

// PackOwner encodes owner().
func PackOwner() []byte {
	data, _ := Interface.Pack("owner")
	return data
}

// UnpackOwner decodes the result of owner().
func UnpackOwner(ret []byte) (common.Address, error) {
	out, err := Interface.Unpack("owner", ret)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected owner() result %T", out[0])
	}
	return owner, nil
}

// ProxyCreationCode returns the creation code of an ERC1967Proxy whose constructor
// stores implementation and delegatecalls initData to it.
func ProxyCreationCode(proxyABI *abi.ABI, bytecode []byte, implementation common.Address, initData []byte) ([]byte, error) {
	if proxyABI == nil {
		return nil, fmt.Errorf("proxy artifact has no ABI")
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("proxy artifact has no bytecode")
	}
	if initData == nil {
		initData = []byte{}
	}
	args, err := proxyABI.Pack("", implementation, initData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy constructor: %w", err)
	}
	code := make([]byte, 0, len(bytecode)+len(args))
	code = append(code, bytecode...)
	return append(code, args...), nil
}
