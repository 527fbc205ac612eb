package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/uups-cli/internal/domain"
	"github.com/trebuchet-org/uups-cli/internal/domain/layout"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	slotStyle     = color.New(color.FgYellow)
	rejectedStyle = color.New(color.FgRed, color.Bold)
)

// LayoutRenderer renders storage layouts and upgrade validation results
type LayoutRenderer struct {
	out  io.Writer
	json bool
}

// NewLayoutRenderer creates a new layout renderer
func NewLayoutRenderer(out io.Writer, json bool) *LayoutRenderer {
	return &LayoutRenderer{out: out, json: json}
}

// RenderLayout prints the storage layout of a contract
func (r *LayoutRenderer) RenderLayout(contract *models.LogicalContract) error {
	if r.json {
		return WriteJSON(r.out, contract)
	}

	fmt.Fprintf(r.out, "%s %s\n", nameStyle.Sprint(contract.Name), labelStyle.Sprint(contract.FullyQualifiedName()))
	if contract.CompilerVersion != "" {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Compiler:"), contract.CompilerVersion)
	}
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Bytecode:"), contract.BytecodeHash.Hex())
	fmt.Fprintln(r.out)

	if contract.StorageLayout == nil {
		fmt.Fprintln(r.out, FormatWarning("No storage layout in artifact; add `extra_output = [\"storageLayout\"]` to foundry.toml"))
		return nil
	}
	r.renderEntries(contract.StorageLayout, -1)
	return nil
}

// RenderValidation prints the outcome of a dry-run upgrade check
func (r *LayoutRenderer) RenderValidation(result *usecase.ValidateUpgradeResult) error {
	if r.json {
		report := struct {
			Proxy     string            `json:"proxy"`
			Current   string            `json:"current,omitempty"`
			Candidate string            `json:"candidate"`
			Ok        bool              `json:"ok"`
			Violation *domain.Violation `json:"violation,omitempty"`
		}{
			Proxy:     result.Proxy.DisplayName(),
			Candidate: result.Candidate.ID,
			Ok:        result.Rejection == nil,
		}
		if result.Current != nil {
			report.Current = result.Current.ContractID
		}
		if result.Rejection != nil {
			report.Violation = &result.Rejection.Violation
		}
		return WriteJSON(r.out, report)
	}

	current := "unknown"
	if result.Current != nil {
		current = result.Current.ContractID
	}
	fmt.Fprintf(r.out, "%s  %s → %s\n", nameStyle.Sprint(result.Proxy.DisplayName()), current, result.Candidate.ID)
	fmt.Fprintln(r.out)

	if result.Rejection == nil {
		fmt.Fprintln(r.out, FormatSuccess("Storage layout is compatible"))
		return nil
	}

	v := result.Rejection.Violation
	fmt.Fprintln(r.out, rejectedStyle.Sprintf("✗ %s", ruleTitle(v.Rule)))
	fmt.Fprintf(r.out, "  %s\n", v.Reason)
	if v.Index >= 0 && result.Candidate.StorageLayout != nil {
		fmt.Fprintln(r.out)
		r.renderEntries(result.Candidate.StorageLayout, v.Index)
	}
	return nil
}

func (r *LayoutRenderer) renderEntries(l *layout.StorageLayout, highlight int) {
	t := newTable("#", "SLOT", "OFFSET", "LABEL", "TYPE", "BYTES")
	for i, entry := range l.Entries {
		label := entry.Label
		if i == highlight {
			label = rejectedStyle.Sprint(label + " ◀")
		}
		t.AppendRow(table.Row{
			i,
			slotStyle.Sprint(entry.Slot),
			entry.Offset,
			label,
			l.TypeLabel(entry),
			l.Size(entry),
		})
	}
	fmt.Fprintln(r.out, t.Render())
}

// ruleTitle turns "slot-removed" into "Slot Removed"
func ruleTitle(rule string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(rule, "-", " "))
}
