package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// SelectorAdapter handles interactive proxy selection and confirmations
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectProxy lets the operator pick one of the recorded proxies
func (s *SelectorAdapter) SelectProxy(ctx context.Context, proxies []*models.ProxyState) (*models.ProxyState, error) {
	if len(proxies) == 0 {
		return nil, fmt.Errorf("no proxies recorded on this network: %w", domain.ErrNotFound)
	}
	if len(proxies) == 1 {
		return proxies[0], nil
	}
	if s.config.NonInteractive {
		return nil, fmt.Errorf("%d proxies recorded, name one explicitly in non-interactive mode", len(proxies))
	}

	options := formatProxyOptions(proxies)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             "Select proxy",
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return proxies[index], nil
}

// Confirm asks a yes/no question. --yes and non-interactive runs approve without asking.
func (s *SelectorAdapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if s.config.AssumeYes || s.config.NonInteractive {
		return true, nil
	}

	confirm := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}
	if _, err := confirm.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// formatProxyOptions creates display strings for proxy selection
func formatProxyOptions(proxies []*models.ProxyState) []string {
	options := make([]string, len(proxies))
	for i, p := range proxies {
		name := color.New(color.FgWhite, color.Bold).Sprint(p.Name)
		contract := ""
		if current := p.Current(); current != nil {
			contract = current.ContractID
			if idx := strings.LastIndex(contract, ":"); idx >= 0 {
				contract = contract[idx+1:]
			}
		}
		options[i] = fmt.Sprintf("%s %s v%d (%s)",
			name,
			color.New(color.FgBlue).Sprint(contract),
			p.Version,
			color.New(color.Faint).Sprint(p.Address.Hex()),
		)
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var (
	_ usecase.ProxySelector = (*SelectorAdapter)(nil)
	_ usecase.Confirmer     = (*SelectorAdapter)(nil)
)
