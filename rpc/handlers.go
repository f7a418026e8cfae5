package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prism-swap/orchestrator/chain"
	"github.com/prism-swap/orchestrator/models"
	"github.com/prism-swap/orchestrator/orchestrator"
	"github.com/prism-swap/orchestrator/quote"
	"github.com/prism-swap/orchestrator/txplan"
)

type api struct {
	orch *orchestrator.Orchestrator
}

func newAPI(orch *orchestrator.Orchestrator) *api {
	return &api{orch: orch}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type quoteRequest struct {
	PoolID      uint64  `json:"pool_id"`
	TokenIn     string  `json:"token_in"`
	TokenOut    string  `json:"token_out"`
	AmountIn    string  `json:"amount_in"`
	SlippagePct float64 `json:"slippage_pct"`
}

type quoteResponse struct {
	OutputAmount string  `json:"output_amount"`
	MinReceived  string  `json:"min_received"`
	PriceImpact  float64 `json:"price_impact"`
}

type tokenView struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals int    `json:"decimals"`
	IconURI  string `json:"icon_uri,omitempty"`
}

type poolResponse struct {
	ID          uint64            `json:"id"`
	Tokens      []tokenView       `json:"tokens"`
	Reserves    map[string]string `json:"reserves"`
	TotalShares string            `json:"total_shares"`
}

type balancesRequest struct {
	Account string   `json:"account"`
	Tokens  []string `json:"tokens"`
}

type callView struct {
	Method         string         `json:"method"`
	Args           map[string]any `json:"args"`
	GasBudget      uint64         `json:"gas"`
	AttachedAmount string         `json:"attached_deposit"`
}

type transactionView struct {
	ReceiverID string     `json:"receiver_id"`
	Calls      []callView `json:"calls"`
}

type planView struct {
	Transactions []transactionView `json:"transactions"`
}

type swapPlanRequest struct {
	Account string `json:"account"`
	quoteRequest
}

type swapPlanResponse struct {
	Plan  planView      `json:"plan"`
	Quote quoteResponse `json:"quote"`
}

type addLiquidityPlanRequest struct {
	Account     string            `json:"account"`
	PoolID      uint64            `json:"pool_id"`
	Amounts     map[string]string `json:"amounts"`
	SlippagePct float64           `json:"slippage_pct"`
}

type addLiquidityPlanResponse struct {
	Plan           planView `json:"plan"`
	ExpectedShares string   `json:"expected_shares"`
}

type removeLiquidityPlanRequest struct {
	Account     string  `json:"account"`
	PoolID      uint64  `json:"pool_id"`
	Shares      string  `json:"shares"`
	SlippagePct float64 `json:"slippage_pct"`
}

type removeLiquidityPlanResponse struct {
	Plan    planView          `json:"plan"`
	Amounts map[string]string `json:"amounts"`
}

type trackRequest struct {
	Account string `json:"account"`
	TxID    string `json:"tx_id"`
	PoolID  uint64 `json:"pool_id"`
}

type outcomeResponse struct {
	Kind   string `json:"kind"`
	TxID   string `json:"tx_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (a *api) handleTokens(w http.ResponseWriter, r *http.Request) {
	known := a.orch.Registry().Known()
	views := make([]tokenView, len(known))
	for i, meta := range known {
		views[i] = newTokenView(meta)
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *api) handlePool(w http.ResponseWriter, r *http.Request) {
	poolID, err := strconv.ParseUint(chi.URLParam(r, "poolID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pool id"})
		return
	}
	pool, err := a.orch.Pool(r.Context(), poolID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		ID:          pool.ID,
		Tokens:      []tokenView{newTokenView(pool.TokenA), newTokenView(pool.TokenB)},
		Reserves:    pool.Reserves,
		TotalShares: pool.TotalShares,
	})
}

func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := a.orch.Quote(r.Context(), orchestrator.QuoteParams{
		PoolID:      req.PoolID,
		TokenIn:     req.TokenIn,
		TokenOut:    req.TokenOut,
		AmountIn:    req.AmountIn,
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuoteResponse(q))
}

func (a *api) handleBalances(w http.ResponseWriter, r *http.Request) {
	var req balancesRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Account == "" || len(req.Tokens) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account and tokens are required"})
		return
	}
	balances, err := a.orch.Balances(r.Context(), req.Account, req.Tokens)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (a *api) handlePlanSwap(w http.ResponseWriter, r *http.Request) {
	var req swapPlanRequest
	if !decode(w, r, &req) {
		return
	}
	plan, q, err := a.orch.PlanSwap(r.Context(), orchestrator.SwapParams{
		Account: req.Account,
		QuoteParams: orchestrator.QuoteParams{
			PoolID:      req.PoolID,
			TokenIn:     req.TokenIn,
			TokenOut:    req.TokenOut,
			AmountIn:    req.AmountIn,
			SlippagePct: req.SlippagePct,
		},
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swapPlanResponse{
		Plan:  newPlanView(plan),
		Quote: newQuoteResponse(q),
	})
}

func (a *api) handlePlanAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req addLiquidityPlanRequest
	if !decode(w, r, &req) {
		return
	}
	plan, shares, err := a.orch.PlanAddLiquidity(r.Context(), orchestrator.AddLiquidityParams{
		Account:     req.Account,
		PoolID:      req.PoolID,
		Amounts:     req.Amounts,
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addLiquidityPlanResponse{
		Plan:           newPlanView(plan),
		ExpectedShares: shares,
	})
}

func (a *api) handlePlanRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req removeLiquidityPlanRequest
	if !decode(w, r, &req) {
		return
	}
	plan, amounts, err := a.orch.PlanRemoveLiquidity(r.Context(), orchestrator.RemoveLiquidityParams{
		Account:     req.Account,
		PoolID:      req.PoolID,
		Shares:      req.Shares,
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeLiquidityPlanResponse{
		Plan:    newPlanView(plan),
		Amounts: amounts,
	})
}

func (a *api) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Account == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account is required"})
		return
	}
	outcome := a.orch.Track(r.Context(), req.Account, req.TxID, req.PoolID)
	writeJSON(w, http.StatusOK, outcomeResponse{
		Kind:   string(outcome.Kind),
		TxID:   outcome.TxID,
		Reason: outcome.Reason,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: caller
// mistakes to 400, an untradeable pair to 422, upstream ledger trouble
// to 502.
func (a *api) writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *txplan.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Reason, Field: validationErr.Field})
		return
	}
	var planErr *txplan.PlanError
	if errors.As(err, &planErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: planErr.Reason})
		return
	}
	if errors.Is(err, quote.ErrNoRoute) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "no route for this pair and amount"})
		return
	}
	var readErr *chain.ReadError
	if errors.As(err, &readErr) {
		Logger.Error().Err(err).Msg("ledger read failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "ledger unavailable"})
		return
	}
	Logger.Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func newTokenView(meta models.TokenMetadata) tokenView {
	return tokenView{
		ID:       meta.ID,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
		IconURI:  meta.IconURI,
	}
}

func newQuoteResponse(q *quote.Result) quoteResponse {
	return quoteResponse{
		OutputAmount: q.OutputAmount,
		MinReceived:  q.MinReceived,
		PriceImpact:  q.PriceImpact,
	}
}

func newPlanView(plan *txplan.Plan) planView {
	view := planView{Transactions: make([]transactionView, len(plan.Transactions))}
	for i, tx := range plan.Transactions {
		calls := make([]callView, len(tx.Calls))
		for j, call := range tx.Calls {
			calls[j] = callView{
				Method:         call.Method,
				Args:           call.Args,
				GasBudget:      call.GasBudget,
				AttachedAmount: call.AttachedAmount,
			}
		}
		view.Transactions[i] = transactionView{ReceiverID: tx.ReceiverID, Calls: calls}
	}
	return view
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("failed to encode response")
	}
}
