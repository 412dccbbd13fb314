package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
	"ajo/internal/domain/profile"
	"ajo/internal/domain/refcode"
	"ajo/internal/domain/user"
	"ajo/internal/infrastructure/memory"
	"ajo/internal/shared/auth"
	"ajo/internal/shared/middleware"
)

// newTestServer wires the handlers onto an in-memory store with the same
// routes the API serves.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	log := zap.NewNop()
	codes := refcode.New()

	users := user.NewService(store.Users(), log)
	profiles := profile.NewService(store.Profiles(), log)
	accounts := account.NewService(store.Accounts(), codes, log)
	ledgerService := ledger.NewService(store.Ledger(), codes, log)
	jwt := auth.NewJWT("test-secret")

	authHandler := NewAuthHandler(users, profiles, jwt, log)
	userHandler := NewUserHandler(users, profiles, log)
	accountHandler := NewAccountHandler(accounts, ledgerService, log)
	txnHandler := NewTransactionHandler(ledgerService, log)

	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(jwt, profiles)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HandleHealth)
	mux.HandleFunc("POST /api/auth/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/me", protect(userHandler.HandleMe))
	mux.Handle("POST /api/accounts", protect(accountHandler.HandleCreateAccount))
	mux.Handle("GET /api/accounts", protect(accountHandler.HandleListAccounts))
	mux.Handle("POST /api/accounts/link", protect(accountHandler.HandleLinkAccount))
	mux.Handle("GET /api/accounts/{id}", protect(accountHandler.HandleGetAccount))
	mux.Handle("GET /api/accounts/{id}/transactions", protect(txnHandler.HandleHistory))
	mux.Handle("POST /api/accounts/{id}/deposits", protect(txnHandler.HandleDeposit))
	mux.Handle("POST /api/accounts/{id}/interest", protect(txnHandler.HandleInterest))
	mux.Handle("POST /api/accounts/{id}/withdrawals", protect(txnHandler.HandleRequestWithdrawal))
	mux.Handle("GET /api/withdrawals/pending", protect(txnHandler.HandleListPending))
	mux.Handle("POST /api/withdrawals/{id}/approve", protect(txnHandler.HandleApproveWithdrawal))
	mux.Handle("POST /api/withdrawals/{id}/decline", protect(txnHandler.HandleDeclineWithdrawal))
	mux.Handle("GET /api/customers", protect(accountHandler.HandleListCustomers))
	mux.Handle("GET /api/transactions/lookup", protect(txnHandler.HandleLookup))
	return mux
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func register(t *testing.T, h http.Handler, email, role string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: email, Password: "correct horse", FullName: email, Role: role,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rr.Code, rr.Body.String())
	}
	return decode[AuthResponse](t, rr).Token
}

func TestHandleHealth(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAuthHandlers(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: "agent@example.com", Password: "correct horse", FullName: "Ada Agent", Role: "agent",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rr.Code, rr.Body.String())
	}
	resp := decode[AuthResponse](t, rr)
	if resp.Token == "" || resp.Profile == nil || resp.Profile.Role != "agent" {
		t.Fatalf("register response = %+v", resp)
	}

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		body           any
		expectedStatus int
	}{
		{"Duplicate email", http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "AGENT@example.com", Password: "correct horse"}, http.StatusConflict},
		{"Weak password", http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: "c@example.com", Password: "short"}, http.StatusBadRequest},
		{"Malformed body", http.MethodPost, "/api/auth/register", "", "{", http.StatusBadRequest},
		{"Unknown field", http.MethodPost, "/api/auth/register", "", `{"email":"x@example.com","isAdmin":true}`, http.StatusBadRequest},
		{"Wrong password", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "agent@example.com", Password: "battery staple"}, http.StatusUnauthorized},
		{"Unknown user", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "nobody@example.com", Password: "correct horse"}, http.StatusUnauthorized},
		{"Login", http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "agent@example.com", Password: "correct horse"}, http.StatusOK},
		{"Me", http.MethodGet, "/api/me", resp.Token, nil, http.StatusOK},
		{"Me without token", http.MethodGet, "/api/me", "", nil, http.StatusUnauthorized},
		{"Wrong method", http.MethodGet, "/api/auth/login", "", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.token, tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestLoginSetsCookie(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "cust@example.com", "customer")

	rr := do(t, srv, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "cust@example.com", Password: "correct horse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status %d", rr.Code)
	}

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	srv.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me via cookie: status %d", me.Code)
	}
	if got := decode[MeResponse](t, me); got.Role != "customer" || got.Email != "cust@example.com" {
		t.Errorf("me = %+v", got)
	}

	out := do(t, srv, http.MethodPost, "/api/auth/logout", "", nil)
	if out.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", out.Code)
	}
	cleared := false
	for _, c := range out.Result().Cookies() {
		if c.Name == middleware.AccessTokenCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not clear the session cookie")
	}
}

func TestWithdrawalFlow(t *testing.T) {
	srv := newTestServer(t)
	agentToken := register(t, srv, "agent@example.com", "agent")
	custToken := register(t, srv, "cust@example.com", "customer")

	rr := do(t, srv, http.MethodPost, "/api/accounts", agentToken, CreateAccountRequest{DisplayName: "Holiday fund"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account: status %d body %s", rr.Code, rr.Body.String())
	}
	acc := decode[account.Account](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/accounts/link", custToken, LinkAccountRequest{Code: acc.Code})
	if rr.Code != http.StatusOK {
		t.Fatalf("link: status %d body %s", rr.Code, rr.Body.String())
	}
	if got := decode[LinkAccountResponse](t, rr); got.AccountID != acc.ID {
		t.Fatalf("linked %q, want %q", got.AccountID, acc.ID)
	}

	base := "/api/accounts/" + acc.ID
	rr = do(t, srv, http.MethodPost, base+"/deposits", agentToken, `{"amount":"5000.00","description":"opening"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit: status %d body %s", rr.Code, rr.Body.String())
	}
	deposit := decode[ledger.Transaction](t, rr)
	if deposit.Status != ledger.StatusCompleted {
		t.Errorf("deposit status = %s", deposit.Status)
	}

	rr = do(t, srv, http.MethodPost, base+"/withdrawals", custToken, `{"amount":"3000"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("withdrawal: status %d body %s", rr.Code, rr.Body.String())
	}
	first := decode[ledger.Transaction](t, rr)
	if first.Status != ledger.StatusPending {
		t.Errorf("withdrawal status = %s", first.Status)
	}

	rr = do(t, srv, http.MethodGet, "/api/withdrawals/pending", agentToken, nil)
	pending := decode[[]ledger.PendingWithdrawal](t, rr)
	if len(pending) != 1 || pending[0].ID != first.ID || pending[0].AccountName != "Holiday fund" {
		t.Fatalf("pending = %+v", pending)
	}

	rr = do(t, srv, http.MethodPost, "/api/withdrawals/"+first.ID+"/approve", agentToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve: status %d body %s", rr.Code, rr.Body.String())
	}
	approved := decode[ResolutionResponse](t, rr)
	if !approved.Balance.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("balance after approval = %s, want 2000", approved.Balance)
	}

	rr = do(t, srv, http.MethodPost, "/api/withdrawals/"+first.ID+"/approve", agentToken, nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("second approve: status %d, want 409", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, base+"/withdrawals", custToken, `{"amount":"5000"}`)
	second := decode[ledger.Transaction](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/withdrawals/"+second.ID+"/approve", agentToken, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overdraw approve: status %d, want 422", rr.Code)
	}
	failed := decode[InsufficientFundsResponse](t, rr)
	if failed.Transaction.Status != ledger.StatusFailed || !failed.Balance.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("overdraw resolution = %+v", failed)
	}

	rr = do(t, srv, http.MethodGet, base, custToken, nil)
	if got := decode[account.Account](t, rr); !got.Balance.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("account balance = %s, want 2000", got.Balance)
	}

	rr = do(t, srv, http.MethodGet, base+"/transactions?limit=10", custToken, nil)
	if history := decode[[]ledger.Transaction](t, rr); len(history) != 3 {
		t.Errorf("history has %d entries, want 3", len(history))
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/lookup?ref="+deposit.Reference, custToken, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("lookup: status %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/customers", agentToken, nil)
	if customers := decode[[]account.Customer](t, rr); len(customers) != 1 {
		t.Errorf("customers = %+v", customers)
	}
}

func TestAuthorizationAndValidation(t *testing.T) {
	srv := newTestServer(t)
	agentToken := register(t, srv, "agent@example.com", "agent")
	otherAgent := register(t, srv, "agent2@example.com", "agent")
	custToken := register(t, srv, "cust@example.com", "customer")
	strangerToken := register(t, srv, "stranger@example.com", "customer")

	rr := do(t, srv, http.MethodPost, "/api/accounts", agentToken, CreateAccountRequest{DisplayName: "Savings"})
	acc := decode[account.Account](t, rr)
	do(t, srv, http.MethodPost, "/api/accounts/link", custToken, LinkAccountRequest{Code: acc.Code})
	base := "/api/accounts/" + acc.ID

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		body           any
		expectedStatus int
	}{
		{"Customer cannot open accounts", http.MethodPost, "/api/accounts", custToken, CreateAccountRequest{DisplayName: "x"}, http.StatusForbidden},
		{"Blank account name", http.MethodPost, "/api/accounts", agentToken, CreateAccountRequest{DisplayName: "  "}, http.StatusBadRequest},
		{"Customer cannot deposit", http.MethodPost, base + "/deposits", custToken, `{"amount":"10"}`, http.StatusForbidden},
		{"Other agent cannot deposit", http.MethodPost, base + "/deposits", otherAgent, `{"amount":"10"}`, http.StatusNotFound},
		{"Zero amount", http.MethodPost, base + "/deposits", agentToken, `{"amount":"0"}`, http.StatusBadRequest},
		{"Three decimals", http.MethodPost, base + "/interest", agentToken, `{"amount":"1.005"}`, http.StatusBadRequest},
		{"Non-numeric amount", http.MethodPost, base + "/deposits", agentToken, `{"amount":"lots"}`, http.StatusBadRequest},
		{"Malformed account id", http.MethodPost, "/api/accounts/not-a-uuid/deposits", agentToken, `{"amount":"10"}`, http.StatusBadRequest},
		{"Agent cannot withdraw", http.MethodPost, base + "/withdrawals", agentToken, `{"amount":"10"}`, http.StatusForbidden},
		{"Stranger cannot withdraw", http.MethodPost, base + "/withdrawals", strangerToken, `{"amount":"10"}`, http.StatusForbidden},
		{"Stranger cannot view", http.MethodGet, base, strangerToken, nil, http.StatusNotFound},
		{"Stranger cannot read history", http.MethodGet, base + "/transactions", strangerToken, nil, http.StatusNotFound},
		{"Bad history limit", http.MethodGet, base + "/transactions?limit=-1", custToken, nil, http.StatusBadRequest},
		{"Malformed link code", http.MethodPost, "/api/accounts/link", strangerToken, LinkAccountRequest{Code: "12ab"}, http.StatusBadRequest},
		{"Already linked code", http.MethodPost, "/api/accounts/link", strangerToken, LinkAccountRequest{Code: acc.Code}, http.StatusConflict},
		{"Agent cannot link", http.MethodPost, "/api/accounts/link", agentToken, LinkAccountRequest{Code: acc.Code}, http.StatusForbidden},
		{"Customer cannot list pending", http.MethodGet, "/api/withdrawals/pending", custToken, nil, http.StatusForbidden},
		{"Unknown withdrawal", http.MethodPost, "/api/withdrawals/00000000-0000-0000-0000-000000000000/approve", agentToken, nil, http.StatusNotFound},
		{"Unknown reference", http.MethodGet, "/api/transactions/lookup?ref=DEP-NOPE", custToken, nil, http.StatusNotFound},
		{"No token", http.MethodGet, "/api/accounts", "", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.token, tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if rr.Code >= 400 {
				if body := decode[ErrorResponse](t, rr); body.Error == "" {
					t.Error("error response without message")
				}
			}
		})
	}
}
