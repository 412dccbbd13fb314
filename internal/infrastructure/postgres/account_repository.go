package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/account"
)

const accountColumns = `id, agent_id, customer_id, display_name, account_code, linking_status,
	current_balance, target_balance, status, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	var customerID sql.NullString
	var target decimal.NullDecimal

	err := row.Scan(
		&acc.ID, &acc.AgentID, &customerID, &acc.DisplayName, &acc.Code, &acc.LinkingStatus,
		&acc.Balance, &target, &acc.Status, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		acc.CustomerID = customerID.String
	}
	if target.Valid {
		t := target.Decimal
		acc.TargetBalance = &t
	}
	return &acc, nil
}

// Create inserts an unlinked account. The partial unique index on
// account_code rejects codes still held by another unlinked account.
func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	query := `
		INSERT INTO accounts (id, agent_id, display_name, account_code, target_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	var target decimal.NullDecimal
	if params.TargetBalance != nil {
		target = decimal.NewNullDecimal(*params.TargetBalance)
	}

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query,
		params.ID, params.AgentID, params.DisplayName, params.Code, target,
	))
	if isConstraintViolation(err, codeUniqueViolation, "accounts_code_unlinked_key") {
		return nil, account.ErrCodeTaken
	}
	if err != nil {
		return nil, classify(err, "failed to create account")
	}
	return acc, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return getAccount(ctx, r.db, id, false)
}

// getAccount reads one account, locking the row when forUpdate is set.
func getAccount(ctx context.Context, q querier, id string, forUpdate bool) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	acc, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get account")
	}
	return acc, nil
}

// FindByCode returns every account carrying the code
func (r *AccountRepository) FindByCode(ctx context.Context, code string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_code = $1 ORDER BY created_at`
	return r.list(ctx, query, code)
}

// ListByAgent returns the agent's accounts, newest first
func (r *AccountRepository) ListByAgent(ctx context.Context, agentID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE agent_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, agentID)
}

// ListByCustomer returns the accounts linked to a customer, newest first
func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, customerID)
}

func (r *AccountRepository) list(ctx context.Context, query string, arg any) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, classify(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := []*account.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, classify(err, "failed to scan account")
		}
		accounts = append(accounts, acc)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err, "error iterating accounts")
	}
	return accounts, nil
}

// ListCustomers returns the distinct customers linked to the agent's accounts
func (r *AccountRepository) ListCustomers(ctx context.Context, agentID string) ([]*account.Customer, error) {
	query := `
		SELECT p.id, p.full_name
		FROM profiles p
		WHERE p.id IN (SELECT customer_id FROM accounts WHERE agent_id = $1 AND customer_id IS NOT NULL)
		ORDER BY p.full_name, p.id
	`

	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, classify(err, "failed to list customers")
	}
	defer rows.Close()

	customers := []*account.Customer{}
	for rows.Next() {
		var c account.Customer
		if err := rows.Scan(&c.ID, &c.FullName); err != nil {
			return nil, classify(err, "failed to scan customer")
		}
		customers = append(customers, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err, "error iterating customers")
	}
	return customers, nil
}

// Link binds the customer with a conditional update. Of two racing
// callers only one sees a row affected.
func (r *AccountRepository) Link(ctx context.Context, accountID, customerID string) error {
	query := `
		UPDATE accounts
		SET customer_id = $2, linking_status = 'linked', updated_at = NOW()
		WHERE id = $1 AND linking_status = 'unlinked' AND customer_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, accountID, customerID)
	if err != nil {
		return classify(err, "failed to link account")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify(err, "failed to get affected rows")
	}
	if rows == 0 {
		return account.ErrNotLinkable
	}
	return nil
}

// AccountIDs returns every account ID in creation order
func (r *AccountRepository) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, classify(err, "failed to list account ids")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err, "failed to scan account id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
