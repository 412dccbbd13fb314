package http

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
)

type AccountHandler struct {
	accounts *account.Service
	ledger   *ledger.Service
	logger   *zap.Logger
}

func NewAccountHandler(accounts *account.Service, ledgerService *ledger.Service, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledgerService, logger: logger}
}

type CreateAccountRequest struct {
	DisplayName   string           `json:"displayName"`
	TargetBalance *decimal.Decimal `json:"targetBalance,omitempty"`
}

type LinkAccountRequest struct {
	Code string `json:"code"`
}

type LinkAccountResponse struct {
	AccountID string `json:"accountId"`
}

// HandleCreateAccount opens a savings account for the calling agent.
func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	acc, err := h.accounts.CreateAccount(r.Context(), id, account.CreateRequest{
		DisplayName:   req.DisplayName,
		TargetBalance: req.TargetBalance,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, acc)
}

// HandleListAccounts returns the agent's accounts or the customer's linked accounts.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	accounts, err := h.accounts.List(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if accounts == nil {
		accounts = []*account.Account{}
	}

	writeJSON(w, http.StatusOK, accounts)
}

// HandleGetAccount returns one visible account with its current balance.
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	acc, err := h.accounts.Get(r.Context(), id, r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	balance, err := h.ledger.CurrentBalance(r.Context(), id, acc.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	acc.Balance = balance

	writeJSON(w, http.StatusOK, acc)
}

// HandleLinkAccount claims an unlinked account for the calling customer.
func (h *AccountHandler) HandleLinkAccount(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req LinkAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	accountID, err := h.accounts.LinkAccount(r.Context(), id, req.Code)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LinkAccountResponse{AccountID: accountID})
}

// HandleListCustomers returns the customers linked to the agent's accounts.
func (h *AccountHandler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	customers, err := h.accounts.ListCustomers(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if customers == nil {
		customers = []*account.Customer{}
	}

	writeJSON(w, http.StatusOK, customers)
}
