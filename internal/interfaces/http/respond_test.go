package http

import (
	"errors"
	"net/http"
	"testing"

	"ajo/internal/domain/account"
	"ajo/internal/domain/authz"
	"ajo/internal/domain/ledger"
	"ajo/internal/domain/user"
	"ajo/internal/shared/apperror"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Unauthenticated", authz.ErrUnauthenticated, http.StatusUnauthorized},
		{"Bad credentials", user.ErrInvalidCredentials, http.StatusUnauthorized},
		{"Forbidden", authz.ErrAgentOnly, http.StatusForbidden},
		{"Validation", ledger.ErrInvalidAmount, http.StatusBadRequest},
		{"Insufficient funds", ledger.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"Not found", account.ErrAccountNotFound, http.StatusNotFound},
		{"Conflict", ledger.ErrAlreadyResolved, http.StatusConflict},
		{"Store", apperror.Store("db down", errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"Unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
