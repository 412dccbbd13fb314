package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/account"
)

// AccountRepository implements account.Repository.
type AccountRepository struct {
	s *Store
}

var _ account.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Code == params.Code && a.LinkingStatus == account.LinkingUnlinked {
			return nil, account.ErrCodeTaken
		}
	}

	now := s.now()
	acc := copyAccount(&account.Account{
		ID:            params.ID,
		AgentID:       params.AgentID,
		DisplayName:   params.DisplayName,
		Code:          params.Code,
		LinkingStatus: account.LinkingUnlinked,
		Balance:       decimal.Zero,
		TargetBalance: params.TargetBalance,
		Status:        account.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	s.accounts[acc.ID] = acc
	s.accountOrder = append(s.accountOrder, acc.ID)
	return copyAccount(acc), nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return copyAccount(acc), nil
}

func (r *AccountRepository) FindByCode(ctx context.Context, code string) ([]*account.Account, error) {
	return r.filter(func(a *account.Account) bool { return a.Code == code }, false), nil
}

func (r *AccountRepository) ListByAgent(ctx context.Context, agentID string) ([]*account.Account, error) {
	return r.filter(func(a *account.Account) bool { return a.AgentID == agentID }, true), nil
}

func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID string) ([]*account.Account, error) {
	return r.filter(func(a *account.Account) bool { return a.CustomerID == customerID }, true), nil
}

func (r *AccountRepository) ListCustomers(ctx context.Context, agentID string) ([]*account.Customer, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	customers := []*account.Customer{}
	for _, id := range s.accountOrder {
		a := s.accounts[id]
		if a.AgentID != agentID || a.CustomerID == "" || seen[a.CustomerID] {
			continue
		}
		seen[a.CustomerID] = true
		c := &account.Customer{ID: a.CustomerID}
		if p, ok := s.profiles[a.CustomerID]; ok {
			c.FullName = p.FullName
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func (r *AccountRepository) Link(ctx context.Context, accountID, customerID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return account.ErrAccountNotFound
	}
	if acc.LinkingStatus != account.LinkingUnlinked || acc.CustomerID != "" {
		return account.ErrNotLinkable
	}
	acc.CustomerID = customerID
	acc.LinkingStatus = account.LinkingLinked
	acc.UpdatedAt = s.now()
	return nil
}

// Reserve takes an unlinked account out of the linking pool.
func (r *AccountRepository) Reserve(ctx context.Context, accountID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return account.ErrAccountNotFound
	}
	if acc.LinkingStatus != account.LinkingUnlinked {
		return account.ErrNotLinkable
	}
	acc.LinkingStatus = account.LinkingReserved
	acc.UpdatedAt = s.now()
	return nil
}

// filter returns copies of matching accounts, newest first when newestFirst is set.
func (r *AccountRepository) filter(match func(*account.Account) bool, newestFirst bool) []*account.Account {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*account.Account{}
	for i := range s.accountOrder {
		idx := i
		if newestFirst {
			idx = len(s.accountOrder) - 1 - i
		}
		a := s.accounts[s.accountOrder[idx]]
		if match(a) {
			out = append(out, copyAccount(a))
		}
	}
	return out
}
