package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInitialized is returned when a proxy identity was already deployed and initialized
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrAlreadyAtVersion is returned when an upgrade targets the implementation already in place
	ErrAlreadyAtVersion = errors.New("already at this version")

	// ErrNoNetwork is returned when a chain operation runs without a configured network
	ErrNoNetwork = errors.New("no network configured (use --network)")

	// ErrNoSigner is returned when a transaction must be sent but no sender key is configured
	ErrNoSigner = errors.New("no sender configured (set UUPS_PRIVATE_KEY or [profile.<name>.uups] private_key)")

	// ErrLedgerClosed is returned when the ledger is used after Close
	ErrLedgerClosed = errors.New("ledger is closed")

	// ErrAborted is returned when the operator declines a confirmation prompt
	ErrAborted = errors.New("aborted")

	// ErrCallReverted is returned when a read-only call reverts or hits an account without code
	ErrCallReverted = errors.New("execution reverted")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")
)

// ErrorKind classifies orchestration failures for callers that need to act on them.
type ErrorKind string

const (
	KindResolution          ErrorKind = "resolution"
	KindValidation          ErrorKind = "validation"
	KindAuthorization       ErrorKind = "authorization"
	KindChain               ErrorKind = "chain"
	KindLedgerInconsistency ErrorKind = "ledger_inconsistency"
	KindArguments           ErrorKind = "arguments"
	KindAlreadyInitialized  ErrorKind = "already_initialized"
	KindAlreadyAtVersion    ErrorKind = "already_at_version"
	KindNotFound            ErrorKind = "not_found"
	KindUnknown             ErrorKind = "unknown"
)

// ResolutionError means a logical contract identifier could not be turned into a deployable artifact.
type ResolutionError struct {
	ContractID  string
	Suggestions []string
	Err         error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve contract %q: %v", e.ContractID, e.Err)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ValidationError wraps a rejected storage layout or an implementation that is not upgradeable.
type ValidationError struct {
	Proxy      string
	ContractID string
	Violation  Violation
}

// Violation is the first rule broken by a candidate implementation.
type Violation struct {
	Rule   string
	Index  int
	Slot   string
	Label  string
	Reason string
}

func (e *ValidationError) Error() string {
	v := e.Violation
	if v.Index < 0 {
		return fmt.Sprintf("upgrade of %s to %s rejected: %s: %s", e.Proxy, e.ContractID, v.Rule, v.Reason)
	}
	return fmt.Sprintf("upgrade of %s to %s rejected: %s at index %d (slot %s, %q): %s",
		e.Proxy, e.ContractID, v.Rule, v.Index, v.Slot, v.Label, v.Reason)
}

// AuthorizationError means the caller is not the proxy's designated upgrader.
type AuthorizationError struct {
	Proxy    string
	Caller   string
	Upgrader string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("caller %s is not authorized to upgrade %s (upgrader is %s)", e.Caller, e.Proxy, e.Upgrader)
}

// TxStatus is the observed outcome of a submitted transaction.
type TxStatus string

const (
	TxConfirmed TxStatus = "confirmed"
	TxReverted  TxStatus = "reverted"
	TxTimeout   TxStatus = "timeout"
)

// ChainError is a submission or confirmation failure. It is never retried automatically.
type ChainError struct {
	Op     string
	TxHash string
	Status TxStatus
	Err    error
}

func (e *ChainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Op)
	if e.Status != "" {
		fmt.Fprintf(&b, " (%s)", e.Status)
	}
	if e.TxHash != "" {
		fmt.Fprintf(&b, " tx=%s", e.TxHash)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ChainError) Unwrap() error { return e.Err }

// LedgerInconsistencyError means the local ledger disagrees with observed chain state.
type LedgerInconsistencyError struct {
	Proxy  string
	Field  string
	Ledger string
	Chain  string
}

func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("ledger out of sync for %s: %s is %s in ledger but %s on chain",
		e.Proxy, e.Field, e.Ledger, e.Chain)
}

// ArgumentError means call arguments do not match the target method signature.
type ArgumentError struct {
	Method string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// KindOf classifies err, looking through wrapped errors.
func KindOf(err error) ErrorKind {
	var (
		resolution *ResolutionError
		validation *ValidationError
		auth       *AuthorizationError
		chain      *ChainError
		ledger     *LedgerInconsistencyError
		args       *ArgumentError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ledger):
		return KindLedgerInconsistency
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &auth):
		return KindAuthorization
	case errors.As(err, &args):
		return KindArguments
	case errors.As(err, &resolution):
		return KindResolution
	case errors.As(err, &chain):
		return KindChain
	case errors.Is(err, ErrAlreadyInitialized):
		return KindAlreadyInitialized
	case errors.Is(err, ErrAlreadyAtVersion):
		return KindAlreadyAtVersion
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}
