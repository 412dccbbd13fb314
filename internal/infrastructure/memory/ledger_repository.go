package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
)

// LedgerRepository implements ledger.Repository.
type LedgerRepository struct {
	s *Store
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func (r *LedgerRepository) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	return r.s.Accounts().GetByID(ctx, accountID)
}

func (r *LedgerRepository) Credit(ctx context.Context, params ledger.CreditParams) (*ledger.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[params.AccountID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	if _, taken := s.txnByRef[params.Reference]; taken {
		return nil, ledger.ErrDuplicateReference
	}

	now := s.now()
	txn := &ledger.Transaction{
		ID:          params.ID,
		AccountID:   params.AccountID,
		Type:        params.Type,
		Amount:      params.Amount,
		Description: params.Description,
		Status:      ledger.StatusCompleted,
		Reference:   params.Reference,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   now,
	}
	s.insert(txn)
	acc.Balance = acc.Balance.Add(params.Amount)
	acc.UpdatedAt = now
	return copyTransaction(txn), nil
}

func (r *LedgerRepository) CreateWithdrawal(ctx context.Context, params ledger.WithdrawalParams) (*ledger.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[params.AccountID]; !ok {
		return nil, account.ErrAccountNotFound
	}
	if _, taken := s.txnByRef[params.Reference]; taken {
		return nil, ledger.ErrDuplicateReference
	}

	txn := &ledger.Transaction{
		ID:          params.ID,
		AccountID:   params.AccountID,
		Type:        ledger.TypeWithdrawal,
		Amount:      params.Amount,
		Description: params.Description,
		Status:      ledger.StatusPending,
		Reference:   params.Reference,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   s.now(),
	}
	s.insert(txn)
	return copyTransaction(txn), nil
}

func (r *LedgerRepository) ResolveWithdrawal(ctx context.Context, txnID string, decision ledger.Decision, actorID string) (*ledger.Resolution, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[txnID]
	if !ok || txn.Type != ledger.TypeWithdrawal {
		return nil, ledger.ErrTransactionNotFound
	}
	if txn.Status != ledger.StatusPending {
		return nil, ledger.ErrAlreadyResolved
	}
	acc, ok := s.accounts[txn.AccountID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}

	status, balance := ledger.Settle(acc.Balance, txn.Amount, decision)
	now := s.now()
	txn.Status = status
	txn.ResolvedBy = actorID
	txn.ResolvedAt = &now
	if !balance.Equal(acc.Balance) {
		acc.Balance = balance
		acc.UpdatedAt = now
	}

	return &ledger.Resolution{
		Transaction:       copyTransaction(txn),
		Balance:           acc.Balance,
		InsufficientFunds: decision == ledger.DecisionApprove && status == ledger.StatusFailed,
	}, nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return copyTransaction(txn), nil
}

func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.txnByRef[reference]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return copyTransaction(s.txns[id]), nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Transaction, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*ledger.Transaction{}
	for i := len(s.txnOrder) - 1; i >= 0 && len(out) < limit; i-- {
		txn := s.txns[s.txnOrder[i]]
		if txn.AccountID == accountID {
			out = append(out, copyTransaction(txn))
		}
	}
	return out, nil
}

func (r *LedgerRepository) ListPendingByAgent(ctx context.Context, agentID string) ([]*ledger.PendingWithdrawal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*ledger.PendingWithdrawal{}
	for _, id := range s.txnOrder {
		txn := s.txns[id]
		if txn.Type != ledger.TypeWithdrawal || txn.Status != ledger.StatusPending {
			continue
		}
		acc := s.accounts[txn.AccountID]
		if acc == nil || acc.AgentID != agentID {
			continue
		}
		out = append(out, &ledger.PendingWithdrawal{
			Transaction: *copyTransaction(txn),
			AccountName: acc.DisplayName,
		})
	}
	return out, nil
}

func (r *LedgerRepository) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, account.ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (r *LedgerRepository) Snapshot(ctx context.Context, accountID string) (*ledger.BalanceSnapshot, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	snap := &ledger.BalanceSnapshot{Balance: acc.Balance, Settled: decimal.Zero}
	for _, txn := range s.txns {
		if txn.AccountID == accountID && txn.Status == ledger.StatusCompleted {
			snap.Settled = snap.Settled.Add(txn.SignedAmount())
		}
	}
	return snap, nil
}

func (r *LedgerRepository) AccountIDs(ctx context.Context) ([]string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.accountOrder...), nil
}

// insert records txn; the caller holds the lock.
func (s *Store) insert(txn *ledger.Transaction) {
	s.txns[txn.ID] = txn
	s.txnOrder = append(s.txnOrder, txn.ID)
	s.txnByRef[txn.Reference] = txn.ID
}
