package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/account"
)

// Repository defines the interface for ledger data access.
// Every mutating method is one atomic unit against the store.
type Repository interface {
	// GetAccount returns the account a ledger operation targets.
	GetAccount(ctx context.Context, accountID string) (*account.Account, error)

	// Credit inserts a completed entry and increases the account balance by
	// its amount in the same transaction. Returns ErrDuplicateReference on a
	// reference collision, with nothing written.
	Credit(ctx context.Context, params CreditParams) (*Transaction, error)

	// CreateWithdrawal inserts a pending withdrawal. The balance is not touched.
	CreateWithdrawal(ctx context.Context, params WithdrawalParams) (*Transaction, error)

	// ResolveWithdrawal moves a pending withdrawal to its terminal state.
	// The balance re-check, the decrement and the status change commit
	// together. Returns ErrAlreadyResolved if the withdrawal is no longer pending.
	ResolveWithdrawal(ctx context.Context, txnID string, decision Decision, actorID string) (*Resolution, error)

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id string) (*Transaction, error)

	// GetByReference retrieves a transaction by its reference code
	GetByReference(ctx context.Context, reference string) (*Transaction, error)

	// ListByAccount returns the account's transactions, newest first
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Transaction, error)

	// ListPendingByAgent returns pending withdrawals on the agent's accounts, oldest first
	ListPendingByAgent(ctx context.Context, agentID string) ([]*PendingWithdrawal, error)

	// Balance returns the account's current balance
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// Snapshot returns the balance and the signed sum of completed
	// transactions from one consistent read, so concurrent credits never
	// show up on only one side.
	Snapshot(ctx context.Context, accountID string) (*BalanceSnapshot, error)

	// AccountIDs returns every account ID, for audits
	AccountIDs(ctx context.Context) ([]string, error)
}
