package settle

import (
	"context"

	"github.com/prism-swap/orchestrator/txplan"
)

// Signer is the opaque wallet capability: it signs and submits a whole
// plan and reports the connected account. Key management never enters
// the orchestrator.
type Signer interface {
	// AccountID returns the connected account.
	AccountID() string
	// SignAndSubmit signs and submits the plan's transactions in
	// order, as one batch when the surface supports it, and returns
	// the identifier of the (final) transaction. An empty id with a
	// nil error means the surface accepted the plan but reported
	// nothing back.
	SignAndSubmit(ctx context.Context, plan *txplan.Plan) (string, error)
}

// TxSigner signs and submits a single transaction; used by surfaces
// that cannot batch.
type TxSigner interface {
	AccountID() string
	SignAndSubmitTx(ctx context.Context, tx txplan.Transaction) (string, error)
}

// sequenceSigner adapts a per-transaction signer to the Signer
// interface. A failure on any call aborts the remaining sequence;
// side effects already applied are not rolled back, which is exactly
// why plans are rebuilt from fresh precondition reads on retry.
type sequenceSigner struct {
	inner TxSigner
}

// NewSequenceSigner wraps a per-transaction signer.
func NewSequenceSigner(inner TxSigner) Signer {
	return &sequenceSigner{inner: inner}
}

func (s *sequenceSigner) AccountID() string {
	return s.inner.AccountID()
}

func (s *sequenceSigner) SignAndSubmit(ctx context.Context, plan *txplan.Plan) (string, error) {
	var lastTxID string
	for _, tx := range plan.Transactions {
		txID, err := s.inner.SignAndSubmitTx(ctx, tx)
		if err != nil {
			return "", err
		}
		lastTxID = txID
	}
	return lastTxID, nil
}
