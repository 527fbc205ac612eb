package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/trebuchet-org/uups-cli/internal/domain"
)

var (
	labelStyle   = color.New(color.Faint)
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warningStyle = color.New(color.FgYellow)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return warningStyle.Sprintf("⚠️  %s", message)
}

// FormatError formats an error with the error icon. Typed errors keep their
// full message; the subject is what an operator needs to act on.
func FormatError(err error) string {
	msg := err.Error()
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	out := errorStyle.Sprintf("❌ %s", msg)
	if hint := hintFor(err); hint != "" {
		out += "\n" + labelStyle.Sprintf("   %s", hint)
	}
	return out
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return successStyle.Sprintf("✅ %s", message)
}

func hintFor(err error) string {
	switch domain.KindOf(err) {
	case domain.KindLedgerInconsistency:
		return "The ledger and the chain disagree; inspect with `uups status --verify` before upgrading."
	case domain.KindAlreadyInitialized:
		return "Use `uups upgrade` to change the implementation of an existing proxy."
	case domain.KindChain:
		var chainErr *domain.ChainError
		if errors.As(err, &chainErr) && chainErr.Status == domain.TxTimeout {
			return "The transaction may still land; re-run `uups status --verify` to check."
		}
	}
	return ""
}

// ErrorReport is the machine-readable form of a failure
type ErrorReport struct {
	Kind    domain.ErrorKind `json:"kind"`
	Subject string           `json:"subject,omitempty"`
	Error   string           `json:"error"`
}

// NewErrorReport classifies err and extracts the proxy or contract it concerns.
func NewErrorReport(err error) ErrorReport {
	return ErrorReport{
		Kind:    domain.KindOf(err),
		Subject: subjectOf(err),
		Error:   err.Error(),
	}
}

func subjectOf(err error) string {
	var (
		resolution *domain.ResolutionError
		validation *domain.ValidationError
		auth       *domain.AuthorizationError
		chain      *domain.ChainError
		ledger     *domain.LedgerInconsistencyError
		args       *domain.ArgumentError
	)
	switch {
	case errors.As(err, &ledger):
		return ledger.Proxy
	case errors.As(err, &validation):
		return validation.Proxy
	case errors.As(err, &auth):
		return auth.Proxy
	case errors.As(err, &args):
		return args.Method
	case errors.As(err, &resolution):
		return resolution.ContractID
	case errors.As(err, &chain):
		return chain.TxHash
	}
	return ""
}

// WriteJSON writes v as indented JSON
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// shortAddress abbreviates an address to 0x1234…abcd
func shortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// getRelativePath returns the relative path from current directory
func getRelativePath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}

	return relPath
}
