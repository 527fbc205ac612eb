package models

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
)

// LogicalContract is a deployable implementation: bytecode plus the ABI and storage
// layout needed to initialize, migrate and validate it.
type LogicalContract struct {
	ID               string                `json:"id"` // reference used to resolve it, e.g. "src/Box.sol:Box"
	Name             string                `json:"name"`
	SourcePath       string                `json:"sourcePath"`
	ArtifactPath     string                `json:"artifactPath"`
	CompilerVersion  string                `json:"compilerVersion,omitempty"`
	ABI              *abi.ABI              `json:"-"`
	Bytecode         []byte                `json:"-"`
	DeployedBytecode []byte                `json:"-"`
	BytecodeHash     common.Hash           `json:"bytecodeHash"`
	StorageLayout    *layout.StorageLayout `json:"storageLayout,omitempty"`
}

// FullyQualifiedName returns path:Name when the source path is known.
func (c *LogicalContract) FullyQualifiedName() string {
	if c.SourcePath != "" {
		return c.SourcePath + ":" + c.Name
	}
	return c.Name
}

// HasMethod reports whether the ABI exposes a method with the given name.
func (c *LogicalContract) HasMethod(name string) bool {
	if c.ABI == nil {
		return false
	}
	_, ok := c.ABI.Methods[name]
	return ok
}

// initializerNames are tried in order when no initializer is named explicitly.
var initializerNames = []string{"initialize", "init", "initializer"}

// FindInitializeMethod returns the initializer entry point of the contract, if any.
func (c *LogicalContract) FindInitializeMethod() *abi.Method {
	if c.ABI == nil {
		return nil
	}
	for _, name := range initializerNames {
		for _, method := range c.ABI.Methods {
			if strings.EqualFold(method.Name, name) {
				m := method
				return &m
			}
		}
	}
	return nil
}

// FindMigrationMethod returns the post-upgrade migration entry point, if any.
func (c *LogicalContract) FindMigrationMethod() *abi.Method {
	if c.ABI == nil {
		return nil
	}
	if method, ok := c.ABI.Methods["migrate"]; ok {
		return &method
	}
	return nil
}

// BytecodeObject represents bytecode information in a Foundry artifact
type BytecodeObject struct {
	Object         string         `json:"object"`
	SourceMap      string         `json:"sourceMap"`
	LinkReferences map[string]any `json:"linkReferences"`
}

// Artifact represents a Foundry compilation artifact
type Artifact struct {
	ABI               json.RawMessage   `json:"abi"`
	Bytecode          BytecodeObject    `json:"bytecode"`
	DeployedBytecode  BytecodeObject    `json:"deployedBytecode"`
	MethodIdentifiers map[string]string `json:"methodIdentifiers"`
	StorageLayout     json.RawMessage   `json:"storageLayout"`
	Metadata          ArtifactMetadata  `json:"metadata"`
}

// ArtifactMetadata represents the metadata section of a Foundry artifact
type ArtifactMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string `json:"language"`
	Settings struct {
		CompilationTarget map[string]string `json:"compilationTarget"`
	} `json:"settings"`
}
