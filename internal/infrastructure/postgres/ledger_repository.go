package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
)

const transactionColumns = `id, account_id, type, amount, description, status, reference_code,
	created_by, created_at, resolved_by, resolved_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// Mutations run in one transaction each, locking the transaction row before
// the account row.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var txn ledger.Transaction
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&txn.ID, &txn.AccountID, &txn.Type, &txn.Amount, &txn.Description, &txn.Status,
		&txn.Reference, &txn.CreatedBy, &txn.CreatedAt, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if resolvedBy.Valid {
		txn.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		txn.ResolvedAt = &t
	}
	return &txn, nil
}

// GetAccount returns the account a ledger operation targets
func (r *LedgerRepository) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	return getAccount(ctx, r.db, accountID, false)
}

// Credit inserts a completed entry and raises the balance in one transaction.
func (r *LedgerRepository) Credit(ctx context.Context, params ledger.CreditParams) (*ledger.Transaction, error) {
	var txn *ledger.Transaction

	err := r.db.WithTx(ctx, "ledger.Credit", func(tx *Tx) error {
		if _, err := getAccount(ctx, tx, params.AccountID, true); err != nil {
			return err
		}

		var err error
		txn, err = insertTransaction(ctx, tx, params.ID, params.AccountID, params.Type, params.Amount,
			params.Description, ledger.StatusCompleted, params.Reference, params.CreatedBy)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET current_balance = current_balance + $2, updated_at = NOW() WHERE id = $1`,
			params.AccountID, params.Amount,
		)
		if err != nil {
			return classify(err, "failed to update balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreateWithdrawal inserts a pending withdrawal
func (r *LedgerRepository) CreateWithdrawal(ctx context.Context, params ledger.WithdrawalParams) (*ledger.Transaction, error) {
	return insertTransaction(ctx, r.db, params.ID, params.AccountID, ledger.TypeWithdrawal, params.Amount,
		params.Description, ledger.StatusPending, params.Reference, params.CreatedBy)
}

func insertTransaction(ctx context.Context, q querier, id, accountID string, typ ledger.Type, amount decimal.Decimal,
	description string, status ledger.Status, reference, createdBy string) (*ledger.Transaction, error) {
	query := `
		INSERT INTO transactions (id, account_id, type, amount, description, status, reference_code, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + transactionColumns

	txn, err := scanTransaction(q.QueryRowContext(ctx, query,
		id, accountID, typ, amount, description, status, reference, createdBy,
	))
	if isConstraintViolation(err, codeUniqueViolation, "transactions_reference_code_key") {
		return nil, ledger.ErrDuplicateReference
	}
	if err != nil {
		return nil, classify(err, "failed to create transaction")
	}
	return txn, nil
}

// ResolveWithdrawal settles a pending withdrawal. The balance re-check, the
// decrement and the status change share one transaction with both rows locked.
func (r *LedgerRepository) ResolveWithdrawal(ctx context.Context, txnID string, decision ledger.Decision, actorID string) (*ledger.Resolution, error) {
	var res *ledger.Resolution

	err := r.db.WithTx(ctx, "ledger.ResolveWithdrawal", func(tx *Tx) error {
		txn, err := getTransaction(ctx, tx, txnID, true)
		if err != nil {
			return err
		}
		if txn.Type != ledger.TypeWithdrawal {
			return ledger.ErrTransactionNotFound
		}
		if txn.Status != ledger.StatusPending {
			return ledger.ErrAlreadyResolved
		}

		acc, err := getAccount(ctx, tx, txn.AccountID, true)
		if err != nil {
			return err
		}

		status, balance := ledger.Settle(acc.Balance, txn.Amount, decision)

		resolved, err := scanTransaction(tx.QueryRowContext(ctx, `
			UPDATE transactions
			SET status = $2, resolved_by = $3, resolved_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING `+transactionColumns,
			txn.ID, status, actorID,
		))
		if err == sql.ErrNoRows {
			return ledger.ErrAlreadyResolved
		}
		if err != nil {
			return classify(err, "failed to resolve withdrawal")
		}

		if status == ledger.StatusCompleted {
			_, err = tx.ExecContext(ctx,
				`UPDATE accounts SET current_balance = $2, updated_at = NOW() WHERE id = $1`,
				acc.ID, balance,
			)
			if err != nil {
				return classify(err, "failed to update balance")
			}
		}

		res = &ledger.Resolution{
			Transaction:       resolved,
			Balance:           balance,
			InsufficientFunds: decision == ledger.DecisionApprove && status == ledger.StatusFailed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByID retrieves a transaction by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	return getTransaction(ctx, r.db, id, false)
}

func getTransaction(ctx context.Context, q querier, id string, forUpdate bool) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	txn, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get transaction")
	}
	return txn, nil
}

// GetByReference retrieves a transaction by its reference code
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_code = $1`

	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get transaction")
	}
	return txn, nil
}

// ListByAccount returns the account's transactions, newest first
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, reference_code DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, classify(err, "failed to list transactions")
	}
	defer rows.Close()

	txns := []*ledger.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, classify(err, "failed to scan transaction")
		}
		txns = append(txns, txn)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err, "error iterating transactions")
	}
	return txns, nil
}

// ListPendingByAgent returns the agent's approval queue, oldest first.
// Each row carries the account name from a single flat join.
func (r *LedgerRepository) ListPendingByAgent(ctx context.Context, agentID string) ([]*ledger.PendingWithdrawal, error) {
	query := `
		SELECT t.id, t.account_id, t.type, t.amount, t.description, t.status, t.reference_code,
		       t.created_by, t.created_at, t.resolved_by, t.resolved_at, a.display_name
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.agent_id = $1 AND t.type = 'withdrawal' AND t.status = 'pending'
		ORDER BY t.created_at, t.id
	`

	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, classify(err, "failed to list pending withdrawals")
	}
	defer rows.Close()

	pending := []*ledger.PendingWithdrawal{}
	for rows.Next() {
		var p ledger.PendingWithdrawal
		var resolvedBy sql.NullString
		var resolvedAt sql.NullTime
		err := rows.Scan(
			&p.ID, &p.AccountID, &p.Type, &p.Amount, &p.Description, &p.Status, &p.Reference,
			&p.CreatedBy, &p.CreatedAt, &resolvedBy, &resolvedAt, &p.AccountName,
		)
		if err != nil {
			return nil, classify(err, "failed to scan pending withdrawal")
		}
		pending = append(pending, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, classify(err, "error iterating pending withdrawals")
	}
	return pending, nil
}

// Balance returns the account's current balance
func (r *LedgerRepository) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT current_balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, account.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, classify(err, "failed to read balance")
	}
	return balance, nil
}

// Snapshot reads the balance and the signed sum of completed transactions in
// one statement, which sees a single snapshot even under READ COMMITTED.
func (r *LedgerRepository) Snapshot(ctx context.Context, accountID string) (*ledger.BalanceSnapshot, error) {
	query := `
		SELECT a.current_balance,
		       COALESCE(SUM(CASE WHEN t.type = 'withdrawal' THEN -t.amount ELSE t.amount END), 0)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id AND t.status = 'completed'
		WHERE a.id = $1
		GROUP BY a.id, a.current_balance
	`

	var snap ledger.BalanceSnapshot
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&snap.Balance, &snap.Settled)
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to read balance snapshot")
	}
	return &snap, nil
}

// AccountIDs returns every account ID
func (r *LedgerRepository) AccountIDs(ctx context.Context) ([]string, error) {
	return NewAccountRepository(r.db).AccountIDs(ctx)
}
