package account

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ajo/internal/shared/apperror"
)

// LinkingStatus tracks whether a customer has claimed the account.
type LinkingStatus string

const (
	LinkingUnlinked LinkingStatus = "unlinked"
	LinkingLinked   LinkingStatus = "linked"
	// LinkingReserved blocks linking without binding a customer.
	LinkingReserved LinkingStatus = "reserved"
)

const (
	StatusActive = "active"

	maxDisplayNameLength = 100
)

// Domain errors
var (
	ErrAccountNotFound     = apperror.NotFound("account not found")
	ErrInvalidAccountID    = apperror.Validation("invalid account id")
	ErrDisplayNameRequired = apperror.Validation("display name is required")
	ErrDisplayNameTooLong  = apperror.Validation("display name is too long")
	ErrInvalidTarget       = apperror.Validation("target balance must not be negative")
	ErrInvalidCode         = apperror.Validation("enter a valid 6-digit code")
	ErrCodeNotFound        = apperror.NotFound("no account matches this code")
	ErrLinkedToOther       = apperror.Conflict("account is already linked to another customer")
	ErrNotLinkable         = apperror.Conflict("account is not available for linking")

	// ErrCodeTaken is returned by Repository.Create when the code collides with
	// another unlinked account. The service consumes it and retries.
	ErrCodeTaken = apperror.Conflict("account code already in use")
)

// Account is a savings account opened by an agent.
type Account struct {
	ID            string           `json:"id"`
	AgentID       string           `json:"agentId"`
	CustomerID    string           `json:"customerId,omitempty"` // empty until linked
	DisplayName   string           `json:"displayName"`
	Code          string           `json:"accountCode"`
	LinkingStatus LinkingStatus    `json:"linkingStatus"`
	Balance       decimal.Decimal  `json:"currentBalance"`
	TargetBalance *decimal.Decimal `json:"targetBalance,omitempty"`
	Status        string           `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsLinked reports whether a customer is bound to the account.
func (a *Account) IsLinked() bool {
	return a.CustomerID != ""
}

// Customer is a customer linked to at least one of an agent's accounts.
type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// CreateRequest is what an agent submits to open an account.
type CreateRequest struct {
	DisplayName   string
	TargetBalance *decimal.Decimal
}

// CreateParams contains parameters for creating a new account
type CreateParams struct {
	ID            string
	AgentID       string
	DisplayName   string
	Code          string
	TargetBalance *decimal.Decimal
}

// Validate validates the create request
func (r CreateRequest) Validate() error {
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		return ErrDisplayNameRequired
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return ErrDisplayNameTooLong
	}
	if r.TargetBalance != nil && r.TargetBalance.IsNegative() {
		return ErrInvalidTarget
	}
	return nil
}
