package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
)

// maxSuggestions bounds the "did you mean" list of a failed resolution
const maxSuggestions = 3

// Repository resolves contract references against Foundry build artifacts
type Repository struct {
	outDir  string
	log     *slog.Logger
	mu      sync.RWMutex
	indexed bool
	byKey   map[string]string   // "path:Name" -> artifact file
	byName  map[string][]string // "Name" -> "path:Name" keys

	// layoutOutput is false when the profile's extra_output lacks storageLayout
	layoutOutput bool
}

// NewRepository creates a resolver reading artifacts from the configured out directory
func NewRepository(cfg *config.RuntimeConfig, log *slog.Logger) *Repository {
	outDir := cfg.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(cfg.ProjectRoot, outDir)
	}
	return &Repository{
		outDir:       outDir,
		log:          log.With("component", "artifacts"),
		layoutOutput: cfg.EmitsStorageLayout(),
	}
}

// index discovers all artifacts under the out directory
func (r *Repository) index() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexed {
		return nil
	}
	r.byKey = make(map[string]string)
	r.byName = make(map[string][]string)

	if _, err := os.Stat(r.outDir); err != nil {
		return fmt.Errorf("artifacts directory %s not found (run forge build): %w", r.outDir, err)
	}

	err := filepath.WalkDir(r.outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}
		r.indexArtifact(path)
		return nil
	})
	if err != nil {
		return err
	}

	r.indexed = true
	r.log.Debug("indexed artifacts", "dir", r.outDir, "count", len(r.byKey))
	return nil
}

func (r *Repository) indexArtifact(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Debug("skipping unreadable artifact", "path", path, "error", err)
		return
	}

	var head struct {
		Metadata models.ArtifactMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return
	}

	for source, name := range head.Metadata.Settings.CompilationTarget {
		key := source + ":" + name
		if _, seen := r.byKey[key]; seen {
			continue
		}
		r.byKey[key] = path
		r.byName[name] = append(r.byName[name], key)
	}
}

// Resolve loads the artifact referenced by id ("Name", "path:Name" or an artifact file path)
func (r *Repository) Resolve(ctx context.Context, id string) (*models.LogicalContract, error) {
	if err := r.index(); err != nil {
		return nil, &domain.ResolutionError{ContractID: id, Err: err}
	}

	key, path, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	contract, err := r.load(key, path)
	if err != nil {
		return nil, &domain.ResolutionError{ContractID: id, Err: err}
	}
	contract.ID = key
	return contract, nil
}

func (r *Repository) lookup(id string) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if path, ok := r.byKey[id]; ok {
		return id, path, nil
	}

	if strings.HasSuffix(id, ".json") {
		for key, path := range r.byKey {
			if path == id || strings.HasSuffix(path, string(filepath.Separator)+id) {
				return key, path, nil
			}
		}
	}

	keys := r.byName[id]
	switch len(keys) {
	case 1:
		return keys[0], r.byKey[keys[0]], nil
	case 0:
		return "", "", &domain.ResolutionError{
			ContractID:  id,
			Suggestions: r.suggest(id),
			Err:         domain.ErrNotFound,
		}
	default:
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		return "", "", &domain.ResolutionError{
			ContractID:  id,
			Suggestions: sorted,
			Err:         errors.New("ambiguous contract name, use path:Name"),
		}
	}
}

// suggest returns the closest known names by fuzzy match
func (r *Repository) suggest(id string) []string {
	names := lo.Keys(r.byName)
	sort.Strings(names)

	matches := fuzzy.Find(id, names)
	if len(matches) == 0 {
		// fuzzy needs the pattern characters in order; retry without the path
		if i := strings.LastIndex(id, ":"); i >= 0 {
			matches = fuzzy.Find(id[i+1:], names)
		}
	}
	return lo.Map(lo.Slice(matches, 0, maxSuggestions), func(m fuzzy.Match, _ int) string {
		return m.Str
	})
}

func (r *Repository) load(key, path string) (*models.LogicalContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var artifact models.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI in %s: %w", path, err)
	}

	bytecode, err := decodeBytecode(artifact.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%s has no bytecode (abstract contract or interface)", key)
	}
	deployed, err := decodeBytecode(artifact.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("deployed bytecode: %w", err)
	}

	var storage *layout.StorageLayout
	if len(artifact.StorageLayout) > 0 && string(artifact.StorageLayout) != "null" {
		storage, err = layout.FromFoundry(artifact.StorageLayout)
		if err != nil {
			return nil, err
		}
	} else if !r.layoutOutput {
		r.log.Warn("artifact has no storage layout; add storageLayout to extra_output in foundry.toml", "contract", key)
	} else {
		r.log.Debug("artifact has no storage layout", "contract", key)
	}

	source, name, _ := strings.Cut(key, ":")
	return &models.LogicalContract{
		Name:             name,
		SourcePath:       source,
		ArtifactPath:     path,
		CompilerVersion:  artifact.Metadata.Compiler.Version,
		ABI:              &parsedABI,
		Bytecode:         bytecode,
		DeployedBytecode: deployed,
		BytecodeHash:     crypto.Keccak256Hash(deployed),
		StorageLayout:    storage,
	}, nil
}

func decodeBytecode(obj models.BytecodeObject) ([]byte, error) {
	if len(obj.LinkReferences) > 0 || strings.Contains(obj.Object, "__$") {
		return nil, errors.New("contract links external libraries, which is not supported")
	}
	if obj.Object == "" || obj.Object == "0x" {
		return nil, nil
	}
	object := obj.Object
	if !strings.HasPrefix(object, "0x") {
		object = "0x" + object
	}
	return hexutil.Decode(object)
}
