package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

// viewServer answers JSON-RPC view calls from a method_name -> contract
// output table. Outputs are the raw JSON a contract would return.
func viewServer(t *testing.T, outputs map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var params callFunctionParams
		assert.NoError(t, json.Unmarshal(req.Params, &params))

		out, ok := outputs[params.MethodName]
		if !ok {
			writeRPCError(w, req.ID, "UNKNOWN_METHOD")
			return
		}
		// args must round-trip through base64
		_, err := base64.StdEncoding.DecodeString(params.ArgsBase64)
		assert.NoError(t, err)

		bytes := make([]int, len(out))
		for i := range out {
			bytes[i] = int(out[i])
		}
		writeRPCResult(w, req.ID, map[string]any{
			"result":       bytes,
			"logs":         []string{},
			"block_height": 100,
		})
	}))
}

func writeRPCResult(w http.ResponseWriter, id string, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func writeRPCError(w http.ResponseWriter, id, name string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"name": name, "message": name},
	})
}

func newTestReader(t *testing.T, serverURL string) *Reader {
	t.Helper()
	cfg := DefaultFailoverConfig()
	cfg.MaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	client := NewClientWithFailover(serverURL, nil, cfg)
	t.Cleanup(client.Close)
	return NewReader(client)
}

func TestFTBalance(t *testing.T) {
	srv := viewServer(t, map[string]string{"ft_balance_of": `"123456"`})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	balance, err := reader.FTBalance(context.Background(), "token.test", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, "123456", balance)
}

func TestStorageRegistered(t *testing.T) {
	srv := viewServer(t, map[string]string{
		"storage_balance_of": `{"total":"1250000000000000000000","available":"0"}`,
	})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	registered, err := reader.StorageRegistered(context.Background(), "token.test", "alice.test")
	assert.NoError(t, err)
	assert.True(t, registered)
}

func TestStorageRegisteredNull(t *testing.T) {
	srv := viewServer(t, map[string]string{"storage_balance_of": `null`})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	registered, err := reader.StorageRegistered(context.Background(), "token.test", "bob.test")
	assert.NoError(t, err)
	assert.False(t, registered)
}

func TestPoolState(t *testing.T) {
	srv := viewServer(t, map[string]string{
		"get_pool": `{
			"pool_kind": "SIMPLE_POOL",
			"token_account_ids": ["wrap.test", "usdc.test"],
			"amounts": ["1000", "2000"],
			"total_fee": 30,
			"shares_total_supply": "500"
		}`,
	})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	pool, err := reader.PoolState(context.Background(), "amm.test", 7)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), pool.ID)
	assert.Equal(t, "1000", pool.Reserve("wrap.test"))
	assert.Equal(t, "2000", pool.Reserve("usdc.test"))
	assert.Equal(t, "500", pool.TotalShares)
	assert.Equal(t, "0", pool.Reserve("unknown.test"))
}

// A pool result with the wrong shape must fail closed as a ReadError,
// not come back as a half-decoded value.
func TestPoolStateShapeMismatch(t *testing.T) {
	srv := viewServer(t, map[string]string{
		"get_pool": `{"token_account_ids": ["wrap.test"], "amounts": ["1000"], "shares_total_supply": "500"}`,
	})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	_, err := reader.PoolState(context.Background(), "amm.test", 7)
	var readErr *ReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestDeposits(t *testing.T) {
	srv := viewServer(t, map[string]string{
		"get_deposits": `{"wrap.test":"60","usdc.test":"0"}`,
	})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	deposits, err := reader.Deposits(context.Background(), "amm.test", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, "60", deposits["wrap.test"])
	assert.Equal(t, "0", deposits["usdc.test"])
}

func TestGetReturnEmptyIsZero(t *testing.T) {
	srv := viewServer(t, map[string]string{"get_return": `""`})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	out, err := reader.GetReturn(context.Background(), "amm.test", 1, "wrap.test", "10", "usdc.test")
	assert.NoError(t, err)
	assert.Equal(t, "0", out)
}

func TestTxStatus(t *testing.T) {
	statuses := map[string]string{
		"success": `{"status":{"SuccessValue":""}}`,
		"receipt": `{"status":{"SuccessReceiptId":"abc"}}`,
		"failure": `{"status":{"Failure":{"ActionError":{"kind":"E22: slippage"}}}}`,
		"pending": `{"status":{}}`,
	}
	var current string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeRPCResult(w, req.ID, json.RawMessage(statuses[current]))
	}))
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	ctx := context.Background()

	current = "success"
	status, err := reader.TxStatus(ctx, "hash", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, TxSucceeded, status.Kind)

	current = "receipt"
	status, err = reader.TxStatus(ctx, "hash", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, TxSucceeded, status.Kind)

	current = "failure"
	status, err = reader.TxStatus(ctx, "hash", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, TxFailed, status.Kind)
	assert.True(t, status.FailureReason != "")

	current = "pending"
	status, err = reader.TxStatus(ctx, "hash", "alice.test")
	assert.NoError(t, err)
	assert.Equal(t, TxPending, status.Kind)
}

func TestRPCErrorSurfacesAsReadError(t *testing.T) {
	srv := viewServer(t, map[string]string{})
	defer srv.Close()

	reader := newTestReader(t, srv.URL)
	_, err := reader.FTBalance(context.Background(), "token.test", "alice.test")
	var readErr *ReadError
	assert.True(t, errors.As(err, &readErr))
}
