package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// LocalConfigFile holds the per-checkout defaults inside the data directory
const LocalConfigFile = "config.local.json"

// LocalConfigStoreAdapter keeps the namespace and network defaults of one checkout
type LocalConfigStoreAdapter struct {
	path string
}

// NewLocalConfigStoreAdapter stores defaults in <data_dir>/config.local.json
func NewLocalConfigStoreAdapter(cfg *config.RuntimeConfig) *LocalConfigStoreAdapter {
	return &LocalConfigStoreAdapter{path: filepath.Join(cfg.DataDir, LocalConfigFile)}
}

func (s *LocalConfigStoreAdapter) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load returns the saved defaults, or the built-in ones when nothing was saved.
// Unknown keys are rejected so a hand-edited typo is not silently ignored.
func (s *LocalConfigStoreAdapter) Load(_ context.Context) (*config.LocalConfig, error) {
	local := config.DefaultLocalConfig()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return local, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(local); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if local.Namespace == "" {
		local.Namespace = config.DefaultLocalConfig().Namespace
	}
	return local, nil
}

// Save replaces the file through a temp file, the same way the ledger is written
func (s *LocalConfigStoreAdapter) Save(_ context.Context, local *config.LocalConfig) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}

	data, err := json.MarshalIndent(local, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *LocalConfigStoreAdapter) GetPath() string {
	return s.path
}

var _ usecase.LocalConfigStore = (*LocalConfigStoreAdapter)(nil)
