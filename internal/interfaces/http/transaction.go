package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ajo/internal/domain/authz"
	"ajo/internal/domain/ledger"
	"ajo/internal/shared/apperror"
)

type TransactionHandler struct {
	ledger       *ledger.Service
	logger       *zap.Logger
	historyLimit int
}

func NewTransactionHandler(ledgerService *ledger.Service, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{ledger: ledgerService, logger: logger, historyLimit: ledger.DefaultHistoryLimit}
}

// SetHistoryPageSize sets the page size used when a history request carries
// no limit. The ledger still caps it.
func (h *TransactionHandler) SetHistoryPageSize(n int) {
	if n > 0 {
		h.historyLimit = n
	}
}

type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type ResolutionResponse struct {
	Transaction *ledger.Transaction `json:"transaction"`
	Balance     decimal.Decimal     `json:"currentBalance"`
}

type InsufficientFundsResponse struct {
	Error       string              `json:"error"`
	Transaction *ledger.Transaction `json:"transaction"`
	Balance     decimal.Decimal     `json:"currentBalance"`
}

type resolveFunc func(ctx context.Context, caller authz.Identity, txnID string) (*ledger.Resolution, error)

// HandleDeposit records a completed deposit.
func (h *TransactionHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleCredit(w, r, ledger.TypeDeposit)
}

// HandleInterest records a completed interest credit.
func (h *TransactionHandler) HandleInterest(w http.ResponseWriter, r *http.Request) {
	h.handleCredit(w, r, ledger.TypeInterest)
}

// HandleLoan records a completed loan disbursement.
func (h *TransactionHandler) HandleLoan(w http.ResponseWriter, r *http.Request) {
	h.handleCredit(w, r, ledger.TypeLoan)
}

func (h *TransactionHandler) handleCredit(w http.ResponseWriter, r *http.Request, typ ledger.Type) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	txn, err := h.ledger.RecordCredit(r.Context(), id, r.PathValue("id"), typ, req.Amount, req.Description)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// HandleRequestWithdrawal files a pending withdrawal for the linked customer.
func (h *TransactionHandler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	txn, err := h.ledger.RequestWithdrawal(r.Context(), id, r.PathValue("id"), req.Amount, req.Description)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// HandleApproveWithdrawal settles a pending withdrawal. Approval against an
// insufficient balance fails the withdrawal and answers 422.
func (h *TransactionHandler) HandleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.ledger.ApproveWithdrawal)
}

// HandleDeclineWithdrawal rejects a pending withdrawal.
func (h *TransactionHandler) HandleDeclineWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.ledger.DeclineWithdrawal)
}

func (h *TransactionHandler) handleResolve(w http.ResponseWriter, r *http.Request, resolve resolveFunc) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	res, err := resolve(r.Context(), id, r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if res.InsufficientFunds {
		writeJSON(w, http.StatusUnprocessableEntity, InsufficientFundsResponse{
			Error:       apperror.Message(ledger.ErrInsufficientFunds),
			Transaction: res.Transaction,
			Balance:     res.Balance,
		})
		return
	}

	writeJSON(w, http.StatusOK, ResolutionResponse{Transaction: res.Transaction, Balance: res.Balance})
}

// HandleListPending returns the pending withdrawals across the agent's accounts.
func (h *TransactionHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	pending, err := h.ledger.ListPendingWithdrawals(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if pending == nil {
		pending = []*ledger.PendingWithdrawal{}
	}

	writeJSON(w, http.StatusOK, pending)
}

// HandleHistory returns an account's transactions, newest first.
func (h *TransactionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, r, h.logger, apperror.Validation("limit must be a positive integer"))
			return
		}
	}

	txns, err := h.ledger.History(r.Context(), id, r.PathValue("id"), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if txns == nil {
		txns = []*ledger.Transaction{}
	}

	writeJSON(w, http.StatusOK, txns)
}

// HandleLookup finds a visible transaction by its reference code.
func (h *TransactionHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	txn, err := h.ledger.FindByReference(r.Context(), id, r.URL.Query().Get("ref"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
