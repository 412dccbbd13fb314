// Package memory is an in-process Durable Store. Each repository method runs
// as one critical section over the shared state, so every operation is
// atomic and operations on the same row serialize.
package memory

import (
	"sync"
	"time"

	"ajo/internal/domain/account"
	"ajo/internal/domain/ledger"
	"ajo/internal/domain/profile"
	"ajo/internal/domain/user"
)

// Store holds all rows. Use the repository accessors to reach it.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	users        map[string]*user.User
	userByEmail  map[string]string
	profiles     map[string]*profile.Profile
	accounts     map[string]*account.Account
	accountOrder []string
	txns         map[string]*ledger.Transaction
	txnOrder     []string
	txnByRef     map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string]*user.User),
		userByEmail: make(map[string]string),
		profiles:    make(map[string]*profile.Profile),
		accounts:    make(map[string]*account.Account),
		txns:        make(map[string]*ledger.Transaction),
		txnByRef:    make(map[string]string),
	}
}

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Ledger returns the ledger repository view of the store.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

// Profiles returns the profile repository view of the store.
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s: s} }

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func copyAccount(a *account.Account) *account.Account {
	c := *a
	if a.TargetBalance != nil {
		t := *a.TargetBalance
		c.TargetBalance = &t
	}
	return &c
}

func copyTransaction(t *ledger.Transaction) *ledger.Transaction {
	c := *t
	if t.ResolvedAt != nil {
		r := *t.ResolvedAt
		c.ResolvedAt = &r
	}
	return &c
}
