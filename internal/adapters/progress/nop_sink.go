package progress

import (
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// NewProgressSink picks the spinner for terminals and a no-op sink for
// --json and --non-interactive runs
func NewProgressSink(cfg *config.RuntimeConfig) usecase.ProgressSink {
	if cfg.JSON || cfg.NonInteractive {
		return usecase.NopProgress{}
	}
	return NewSpinnerSink()
}
