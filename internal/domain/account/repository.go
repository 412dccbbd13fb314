package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// Create inserts an unlinked account with a zero balance.
	// Returns ErrCodeTaken when the code is already used by an unlinked account.
	Create(ctx context.Context, params CreateParams) (*Account, error)

	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// FindByCode returns every account carrying the code. Codes are unique
	// only among unlinked accounts, so linked accounts may share one.
	FindByCode(ctx context.Context, code string) ([]*Account, error)

	// ListByAgent returns the agent's accounts, newest first
	ListByAgent(ctx context.Context, agentID string) ([]*Account, error)

	// ListByCustomer returns the accounts linked to a customer, newest first
	ListByCustomer(ctx context.Context, customerID string) ([]*Account, error)

	// ListCustomers returns the distinct customers linked to the agent's accounts
	ListCustomers(ctx context.Context, agentID string) ([]*Customer, error)

	// Link binds customerID to the account only if it is still unlinked.
	// Returns ErrNotLinkable when the guard fails.
	Link(ctx context.Context, accountID, customerID string) error
}
