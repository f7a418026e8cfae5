// Package settle submits transaction plans through an opaque signing
// surface and classifies what the eventually-consistent ledger did with
// them. The ledger gives no synchronous success/failure guarantee, so
// classification is bounded polling with a deliberate optimistic
// fallback.
package settle

import "errors"

// OutcomeKind is the terminal classification of one action.
type OutcomeKind string

const (
	// OutcomeSuccess: an explicit or implicit success status, or the
	// optimistic timeout fallback.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailure: the ledger or signing surface reported an error.
	OutcomeFailure OutcomeKind = "failure"
	// OutcomeCancelled: the user rejected signing. No changes were made.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeIndeterminate: submitted, but no transaction id came back;
	// the user is directed to the ledger explorer instead of a guess.
	OutcomeIndeterminate OutcomeKind = "indeterminate"
)

// Outcome is the terminal state for one user-initiated action. A fresh
// action starts a fresh outcome.
type Outcome struct {
	Kind   OutcomeKind
	TxID   string
	Reason string
}

// State tracks the monitor through one settlement.
type State string

const (
	StateIdle                 State = "idle"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateDone                 State = "done"
)

// Signing-surface conditions the monitor distinguishes. Signer
// implementations wrap their vendor errors with these sentinels.
var (
	// ErrSigningCancelled: the user rejected or closed the signing
	// dialog. Not an error condition; nothing was submitted.
	ErrSigningCancelled = errors.New("signing cancelled by user")
	// ErrSigningUnavailable: the signing surface could not be reached
	// at all, e.g. a blocked popup. Reported as a dedicated failure
	// reason so the UI can give an actionable message.
	ErrSigningUnavailable = errors.New("signing surface unavailable")
)
