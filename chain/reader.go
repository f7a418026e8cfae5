package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/prism-swap/orchestrator/models"
)

// Reader issues read-only queries against the ledger and decodes the
// loosely-typed results into typed entities. Every decode failure comes
// back as a *ReadError so callers can fail closed.
type Reader struct {
	client *Client
}

// NewReader wraps a Client with the typed query surface.
func NewReader(client *Client) *Reader {
	return &Reader{client: client}
}

// Close releases the underlying client.
func (r *Reader) Close() {
	r.client.Close()
}

// viewFunction performs a read-only contract call and returns the raw
// JSON the contract produced.
func (r *Reader) viewFunction(ctx context.Context, contractID, method string, args any) ([]byte, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, &ReadError{Op: method, Err: fmt.Errorf("encode args: %w", err)}
	}

	result, err := r.client.Call(ctx, "query", callFunctionParams{
		RequestType: "call_function",
		Finality:    "final",
		AccountID:   contractID,
		MethodName:  method,
		ArgsBase64:  base64.StdEncoding.EncodeToString(rawArgs),
	})
	if err != nil {
		return nil, err
	}

	var decoded callFunctionResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, &ReadError{Op: method, Err: fmt.Errorf("decode result envelope: %w", err)}
	}
	out := make([]byte, len(decoded.RawResult))
	for i, b := range decoded.RawResult {
		if b < 0 || b > 255 {
			return nil, &ReadError{Op: method, Err: fmt.Errorf("result byte %d out of range", b)}
		}
		out[i] = byte(b)
	}
	return out, nil
}

// NativeBalance returns an account's spendable native balance in
// contract units.
func (r *Reader) NativeBalance(ctx context.Context, accountID string) (string, error) {
	result, err := r.client.Call(ctx, "query", viewAccountParams{
		RequestType: "view_account",
		Finality:    "final",
		AccountID:   accountID,
	})
	if err != nil {
		return "0", err
	}
	var account viewAccountResult
	if err := json.Unmarshal(result, &account); err != nil {
		return "0", &ReadError{Op: "view_account", Err: err}
	}
	if account.Amount == "" {
		return "0", &ReadError{Op: "view_account", Err: fmt.Errorf("missing amount for %s", accountID)}
	}
	return account.Amount, nil
}

// FTBalance returns an account's balance on a token contract.
func (r *Reader) FTBalance(ctx context.Context, tokenID, accountID string) (string, error) {
	raw, err := r.viewFunction(ctx, tokenID, "ft_balance_of", map[string]string{"account_id": accountID})
	if err != nil {
		return "0", err
	}
	var balance string
	if err := json.Unmarshal(raw, &balance); err != nil {
		return "0", &ReadError{Op: "ft_balance_of", Err: err}
	}
	if balance == "" {
		balance = "0"
	}
	return balance, nil
}

// StorageRegistered reports whether accountID has a storage deposit on
// the given contract. The contract returns null for unregistered
// accounts.
func (r *Reader) StorageRegistered(ctx context.Context, contractID, accountID string) (bool, error) {
	raw, err := r.viewFunction(ctx, contractID, "storage_balance_of", map[string]string{"account_id": accountID})
	if err != nil {
		return false, err
	}
	var balance *storageBalance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return false, &ReadError{Op: "storage_balance_of", Err: err}
	}
	return balance != nil && balance.Total != "", nil
}

// PoolState fetches one AMM pool and rebuilds the reserves mapping from
// the parallel token/amount arrays the contract returns.
func (r *Reader) PoolState(ctx context.Context, ammID string, poolID uint64) (*models.PoolState, error) {
	raw, err := r.viewFunction(ctx, ammID, "get_pool", map[string]uint64{"pool_id": poolID})
	if err != nil {
		return nil, err
	}
	var view poolView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, &ReadError{Op: "get_pool", Err: err}
	}
	if len(view.TokenAccountIDs) != 2 || len(view.Amounts) != 2 {
		return nil, &ReadError{Op: "get_pool", Err: fmt.Errorf("pool %d has %d tokens, want 2", poolID, len(view.TokenAccountIDs))}
	}
	if view.SharesTotal == "" {
		return nil, &ReadError{Op: "get_pool", Err: fmt.Errorf("pool %d missing total shares", poolID)}
	}

	reserves := make(map[string]string, 2)
	for i, token := range view.TokenAccountIDs {
		if view.Amounts[i] == "" {
			return nil, &ReadError{Op: "get_pool", Err: fmt.Errorf("pool %d missing reserve for %s", poolID, token)}
		}
		reserves[token] = view.Amounts[i]
	}

	return &models.PoolState{
		ID:          poolID,
		TokenA:      models.TokenMetadata{ID: view.TokenAccountIDs[0]},
		TokenB:      models.TokenMetadata{ID: view.TokenAccountIDs[1]},
		Reserves:    reserves,
		TotalShares: view.SharesTotal,
	}, nil
}

// ShareBalance returns an account's LP share balance for a pool.
func (r *Reader) ShareBalance(ctx context.Context, ammID string, poolID uint64, accountID string) (string, error) {
	raw, err := r.viewFunction(ctx, ammID, "get_pool_shares", map[string]any{
		"pool_id":    poolID,
		"account_id": accountID,
	})
	if err != nil {
		return "0", err
	}
	var shares string
	if err := json.Unmarshal(raw, &shares); err != nil {
		return "0", &ReadError{Op: "get_pool_shares", Err: err}
	}
	if shares == "" {
		shares = "0"
	}
	return shares, nil
}

// Deposits returns the per-token amounts an account has staged in the
// AMM's internal balance.
func (r *Reader) Deposits(ctx context.Context, ammID, accountID string) (map[string]string, error) {
	raw, err := r.viewFunction(ctx, ammID, "get_deposits", map[string]string{"account_id": accountID})
	if err != nil {
		return nil, err
	}
	var deposits map[string]string
	if err := json.Unmarshal(raw, &deposits); err != nil {
		return nil, &ReadError{Op: "get_deposits", Err: err}
	}
	if deposits == nil {
		deposits = map[string]string{}
	}
	return deposits, nil
}

// WhitelistedTokens returns the tokens an account has registered with
// the AMM's per-user whitelist.
func (r *Reader) WhitelistedTokens(ctx context.Context, ammID, accountID string) ([]string, error) {
	raw, err := r.viewFunction(ctx, ammID, "get_user_whitelisted_tokens", map[string]string{"account_id": accountID})
	if err != nil {
		return nil, err
	}
	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, &ReadError{Op: "get_user_whitelisted_tokens", Err: err}
	}
	return tokens, nil
}

// GetReturn asks the AMM for its own estimate of a swap's output. The
// pricing formula lives in the contract; this is treated as an oracle.
// A zero or empty estimate is reported as-is so the caller can
// distinguish "no route" from a transport error.
func (r *Reader) GetReturn(ctx context.Context, ammID string, poolID uint64, tokenIn, amountIn, tokenOut string) (string, error) {
	raw, err := r.viewFunction(ctx, ammID, "get_return", map[string]any{
		"pool_id":   poolID,
		"token_in":  tokenIn,
		"amount_in": amountIn,
		"token_out": tokenOut,
	})
	if err != nil {
		return "0", err
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "0", &ReadError{Op: "get_return", Err: err}
	}
	if out == "" {
		out = "0"
	}
	return out, nil
}

// TokenMetadata fetches a token contract's metadata.
func (r *Reader) TokenMetadata(ctx context.Context, tokenID string) (models.TokenMetadata, error) {
	raw, err := r.viewFunction(ctx, tokenID, "ft_metadata", map[string]string{})
	if err != nil {
		return models.TokenMetadata{}, err
	}
	var view ftMetadataView
	if err := json.Unmarshal(raw, &view); err != nil {
		return models.TokenMetadata{}, &ReadError{Op: "ft_metadata", Err: err}
	}
	if view.Symbol == "" || view.Decimals < 0 {
		return models.TokenMetadata{}, &ReadError{Op: "ft_metadata", Err: fmt.Errorf("malformed metadata for %s", tokenID)}
	}
	return models.TokenMetadata{
		ID:       tokenID,
		Symbol:   view.Symbol,
		Name:     view.Name,
		Decimals: view.Decimals,
		IconURI:  view.Icon,
	}, nil
}

// TxStatus queries the final status of a submitted transaction.
func (r *Reader) TxStatus(ctx context.Context, txHash, senderID string) (TxStatus, error) {
	result, err := r.client.Call(ctx, "tx", []string{txHash, senderID})
	if err != nil {
		return TxStatus{}, err
	}
	var decoded txStatusResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return TxStatus{}, &ReadError{Op: "tx", Err: err}
	}

	if _, ok := decoded.Status["SuccessValue"]; ok {
		return TxStatus{Kind: TxSucceeded}, nil
	}
	// SuccessReceiptId is an implicit success marker: the transaction
	// itself applied and spawned a receipt.
	if _, ok := decoded.Status["SuccessReceiptId"]; ok {
		return TxStatus{Kind: TxSucceeded}, nil
	}
	if failure, ok := decoded.Status["Failure"]; ok {
		return TxStatus{Kind: TxFailed, FailureReason: compactReason(failure)}, nil
	}
	return TxStatus{Kind: TxPending}, nil
}

// compactReason flattens a raw failure payload into a one-line string.
func compactReason(raw json.RawMessage) string {
	var buf any
	if err := json.Unmarshal(raw, &buf); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(buf)
	if err != nil {
		return string(raw)
	}
	reason := string(out)
	if reason == "" || reason == "null" {
		reason = "transaction failed"
	}
	return reason
}
