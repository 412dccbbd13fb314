package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"ajo/internal/shared/apperror"
)

// Type is the kind of ledger entry.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeLoan       Type = "loan"
	TypeInterest   Type = "interest"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeLoan, TypeInterest:
		return true
	}
	return false
}

// Sign is the direction a completed entry of this type moves the balance.
func (t Type) Sign() int {
	if t == TypeWithdrawal {
		return -1
	}
	return 1
}

// ReferencePrefix is the prefix of reference codes minted for this type.
func (t Type) ReferencePrefix() string {
	switch t {
	case TypeDeposit:
		return "DEP"
	case TypeWithdrawal:
		return "WDR"
	case TypeLoan:
		return "LON"
	case TypeInterest:
		return "INT"
	}
	return "TXN"
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Decision is an agent's verdict on a pending withdrawal.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	maxDescriptionLength = 255
)

// MaxAmount is the largest single amount accepted, matching NUMERIC(14,2).
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Domain errors
var (
	ErrInvalidAmount       = apperror.Validation("amount must be greater than zero")
	ErrAmountPrecision     = apperror.Validation("amount must have at most two decimal places")
	ErrAmountTooLarge      = apperror.Validation("amount is too large")
	ErrDescriptionTooLong  = apperror.Validation("description is too long")
	ErrInvalidTransaction  = apperror.Validation("invalid transaction id")
	ErrInvalidType         = apperror.Validation("invalid transaction type")
	ErrInvalidReference    = apperror.Validation("reference code is required")
	ErrTransactionNotFound = apperror.NotFound("transaction not found")
	ErrAlreadyResolved     = apperror.Conflict("withdrawal has already been resolved")
	ErrInsufficientFunds   = apperror.Validation("insufficient funds")

	// ErrDuplicateReference is returned by the repository when a reference
	// code collides. The service consumes it and mints a new one.
	ErrDuplicateReference = apperror.Conflict("reference code already in use")
)

// Transaction is a single ledger entry. Type, AccountID and Amount never
// change after creation; Status changes once for withdrawals.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        Type            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Status      Status          `json:"status"`
	Reference   string          `json:"referenceCode"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	ResolvedBy  string          `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
}

// SignedAmount is the contribution of the transaction to the balance once completed.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type.Sign() < 0 {
		return t.Amount.Neg()
	}
	return t.Amount
}

// PendingWithdrawal is a row of an agent's approval queue.
type PendingWithdrawal struct {
	Transaction
	AccountName string `json:"accountName"`
}

// Resolution is the outcome of approving or declining a withdrawal.
type Resolution struct {
	Transaction *Transaction    `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
	// InsufficientFunds is set when an approval failed the balance re-check.
	// The transaction is then failed and the balance untouched.
	InsufficientFunds bool `json:"insufficientFunds"`
}

// BalanceSnapshot pairs an account's stored balance with the signed sum of
// its completed transactions, both read at the same point in time.
type BalanceSnapshot struct {
	Balance decimal.Decimal
	Settled decimal.Decimal
}

// CreditParams describes a credit that completes on insert.
type CreditParams struct {
	ID          string
	AccountID   string
	Type        Type
	Amount      decimal.Decimal
	Description string
	Reference   string
	CreatedBy   string
}

// WithdrawalParams describes a pending withdrawal request.
type WithdrawalParams struct {
	ID          string
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Reference   string
	CreatedBy   string
}

// ValidateAmount rejects non-positive, over-precise and out-of-range amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// ParseAmount parses a decimal string and validates it.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.Wrap(apperror.KindValidation, "amount is not a valid number", err)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Settle decides the terminal state of a pending withdrawal given the
// current balance. It returns the new status and the balance after
// settlement. An approval that the balance cannot cover fails without
// touching the balance.
func Settle(balance, amount decimal.Decimal, decision Decision) (Status, decimal.Decimal) {
	if decision != DecisionApprove {
		return StatusFailed, balance
	}
	if balance.LessThan(amount) {
		return StatusFailed, balance
	}
	return StatusCompleted, balance.Sub(amount)
}
