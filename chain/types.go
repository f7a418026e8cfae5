package chain

import (
	"encoding/json"
	"fmt"
)

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Name    string `json:"name"`
	Cause   any    `json:"cause"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ReadError wraps any failed or malformed remote read. Callers that have
// a safe conservative fallback may downgrade it to "not satisfied";
// everything else must surface it.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("chain read %s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// callFunctionParams is the view-call request shape for the query method.
type callFunctionParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

// callFunctionResult carries the view-call return value. The node
// encodes the contract's output as an array of byte values, not as a
// base64 string, so it is decoded as []int first.
type callFunctionResult struct {
	RawResult   []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
}

// viewAccountParams queries an account's native balance.
type viewAccountParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
}

type viewAccountResult struct {
	Amount  string `json:"amount"`
	Locked  string `json:"locked"`
	Storage uint64 `json:"storage_usage"`
}

// storageBalance mirrors the storage_balance_of return shape. A nil
// value means the account is not registered on the contract.
type storageBalance struct {
	Total     string `json:"total"`
	Available string `json:"available"`
}

// poolView mirrors the AMM get_pool return shape.
type poolView struct {
	PoolKind        string   `json:"pool_kind"`
	TokenAccountIDs []string `json:"token_account_ids"`
	Amounts         []string `json:"amounts"`
	TotalFee        uint32   `json:"total_fee"`
	SharesTotal     string   `json:"shares_total_supply"`
}

// ftMetadataView mirrors the fungible-token metadata return shape.
type ftMetadataView struct {
	Spec     string `json:"spec"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Icon     string `json:"icon"`
	Decimals int    `json:"decimals"`
}

// TxStatusKind classifies the final execution status of a transaction.
type TxStatusKind int

const (
	// TxPending means the ledger has not produced a final status yet.
	TxPending TxStatusKind = iota
	// TxSucceeded covers SuccessValue and SuccessReceiptId statuses.
	TxSucceeded
	// TxFailed means the ledger reported an explicit failure.
	TxFailed
)

// TxStatus is the decoded outcome of a transaction status query.
type TxStatus struct {
	Kind TxStatusKind
	// FailureReason carries the raw failure detail when Kind is TxFailed.
	FailureReason string
}

// txStatusResult mirrors the tx status RPC return shape. Status is a
// one-key object: SuccessValue, SuccessReceiptId or Failure.
type txStatusResult struct {
	Status map[string]json.RawMessage `json:"status"`
}
