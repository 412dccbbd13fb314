package ledger

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"ajo/internal/domain/account"
	"ajo/internal/domain/authz"
	"ajo/internal/shared/apperror"
)

var (
	ledgerMeter           = otel.Meter("ajo/ledger")
	transactionTotal, _   = ledgerMeter.Int64Counter("ledger.transaction.total", metric.WithDescription("Ledger entries recorded by type and status"))
	withdrawalResolved, _ = ledgerMeter.Int64Counter("ledger.withdrawal.resolved", metric.WithDescription("Withdrawals resolved by outcome"))
)

// DefaultMaxReferenceAttempts bounds the mint-and-insert loop on reference collisions.
const DefaultMaxReferenceAttempts = 5

// ReferenceSource mints transaction reference codes.
type ReferenceSource interface {
	Reference(prefix string) (string, error)
}

// Service contains the ledger and withdrawal workflow business logic
type Service struct {
	repo        Repository
	refs        ReferenceSource
	logger      *zap.Logger
	maxAttempts int
	eagerCheck  bool
}

// NewService creates a new ledger service
func NewService(repo Repository, refs ReferenceSource, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		refs:        refs,
		logger:      logger,
		maxAttempts: DefaultMaxReferenceAttempts,
	}
}

// SetEagerWithdrawalCheck makes RequestWithdrawal reject amounts above the
// current balance. Approval re-checks the balance either way.
func (s *Service) SetEagerWithdrawalCheck(enabled bool) {
	s.eagerCheck = enabled
}

// SetMaxReferenceAttempts overrides the collision retry budget.
func (s *Service) SetMaxReferenceAttempts(n int) {
	if n > 0 {
		s.maxAttempts = n
	}
}

// RecordDeposit credits a completed deposit to an account owned by the
// calling agent.
func (s *Service) RecordDeposit(ctx context.Context, caller authz.Identity, accountID string, amount decimal.Decimal, description string) (*Transaction, error) {
	return s.RecordCredit(ctx, caller, accountID, TypeDeposit, amount, description)
}

// RecordInterest credits completed interest.
func (s *Service) RecordInterest(ctx context.Context, caller authz.Identity, accountID string, amount decimal.Decimal, description string) (*Transaction, error) {
	return s.RecordCredit(ctx, caller, accountID, TypeInterest, amount, description)
}

// RecordLoan credits a completed loan disbursement.
func (s *Service) RecordLoan(ctx context.Context, caller authz.Identity, accountID string, amount decimal.Decimal, description string) (*Transaction, error) {
	return s.RecordCredit(ctx, caller, accountID, TypeLoan, amount, description)
}

// RecordCredit inserts a completed entry of a crediting type and increases
// the balance in one atomic unit. Each call mints a new transaction, so it
// is never retried on failure.
func (s *Service) RecordCredit(ctx context.Context, caller authz.Identity, accountID string, typ Type, amount decimal.Decimal, description string) (*Transaction, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	if !typ.Valid() || typ.Sign() < 0 {
		return nil, ErrInvalidType
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	description, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}

	acc, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// Ownership never changes, so checking before the atomic write is safe.
	if acc.AgentID != caller.ID {
		return nil, account.ErrAccountNotFound
	}

	txn, err := s.withReference(typ, func(ref string) (*Transaction, error) {
		return s.repo.Credit(ctx, CreditParams{
			ID:          uuid.NewString(),
			AccountID:   acc.ID,
			Type:        typ,
			Amount:      amount,
			Description: description,
			Reference:   ref,
			CreatedBy:   caller.ID,
		})
	})
	if err != nil {
		s.logger.Error("credit failed",
			zap.String("account_id", acc.ID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
		return nil, err
	}

	transactionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(typ)),
		attribute.String("status", string(txn.Status)),
	))
	s.logger.Info("credit recorded",
		zap.String("reference", txn.Reference),
		zap.String("account_id", acc.ID),
		zap.String("type", string(typ)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return txn, nil
}

// RequestWithdrawal files a pending withdrawal on the account linked to the
// calling customer. The balance is checked again when an agent approves it.
func (s *Service) RequestWithdrawal(ctx context.Context, caller authz.Identity, accountID string, amount decimal.Decimal, description string) (*Transaction, error) {
	if err := authz.RequireCustomer(caller); err != nil {
		return nil, err
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	description, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}

	acc, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireLinkedCustomer(caller, acc.CustomerID); err != nil {
		return nil, err
	}

	if s.eagerCheck {
		balance, err := s.repo.Balance(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		if amount.GreaterThan(balance) {
			return nil, ErrInsufficientFunds
		}
	}

	txn, err := s.withReference(TypeWithdrawal, func(ref string) (*Transaction, error) {
		return s.repo.CreateWithdrawal(ctx, WithdrawalParams{
			ID:          uuid.NewString(),
			AccountID:   acc.ID,
			Amount:      amount,
			Description: description,
			Reference:   ref,
			CreatedBy:   caller.ID,
		})
	})
	if err != nil {
		s.logger.Error("withdrawal request failed", zap.String("account_id", acc.ID), zap.Error(err))
		return nil, err
	}

	transactionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(TypeWithdrawal)),
		attribute.String("status", string(StatusPending)),
	))
	s.logger.Info("withdrawal requested",
		zap.String("reference", txn.Reference),
		zap.String("account_id", acc.ID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return txn, nil
}

// ApproveWithdrawal settles a pending withdrawal. If the balance no longer
// covers it, the withdrawal fails and the Resolution reports insufficient
// funds; that outcome is committed and is not an error.
func (s *Service) ApproveWithdrawal(ctx context.Context, caller authz.Identity, txnID string) (*Resolution, error) {
	return s.resolve(ctx, caller, txnID, DecisionApprove)
}

// DeclineWithdrawal fails a pending withdrawal without touching the balance.
func (s *Service) DeclineWithdrawal(ctx context.Context, caller authz.Identity, txnID string) (*Resolution, error) {
	return s.resolve(ctx, caller, txnID, DecisionDecline)
}

func (s *Service) resolve(ctx context.Context, caller authz.Identity, txnID string, decision Decision) (*Resolution, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(txnID); err != nil {
		return nil, ErrInvalidTransaction
	}

	txn, err := s.repo.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Type != TypeWithdrawal {
		return nil, ErrTransactionNotFound
	}
	acc, err := s.repo.GetAccount(ctx, txn.AccountID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAccountAgent(caller, acc.AgentID); err != nil {
		return nil, err
	}
	if txn.Status != StatusPending {
		return nil, ErrAlreadyResolved
	}

	// The store re-checks the pending guard under lock; a concurrent
	// resolution surfaces here as ErrAlreadyResolved.
	res, err := s.repo.ResolveWithdrawal(ctx, txn.ID, decision, caller.ID)
	if err != nil {
		if !errors.Is(err, ErrAlreadyResolved) {
			s.logger.Error("withdrawal resolution failed",
				zap.String("transaction_id", txn.ID),
				zap.String("decision", string(decision)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	outcome := string(res.Transaction.Status)
	if res.InsufficientFunds {
		outcome = "insufficient_funds"
	}
	withdrawalResolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", string(decision)),
		attribute.String("outcome", outcome),
	))
	s.logger.Info("withdrawal resolved",
		zap.String("reference", res.Transaction.Reference),
		zap.String("account_id", acc.ID),
		zap.String("decision", string(decision)),
		zap.String("outcome", outcome),
		zap.String("balance", res.Balance.StringFixed(2)),
	)
	return res, nil
}

// CurrentBalance returns the balance of an account visible to the caller.
func (s *Service) CurrentBalance(ctx context.Context, caller authz.Identity, accountID string) (decimal.Decimal, error) {
	acc, err := s.visibleAccount(ctx, caller, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.repo.Balance(ctx, acc.ID)
}

// History returns the most recent transactions of a visible account.
// A non-positive limit selects the default; larger limits are capped.
func (s *Service) History(ctx context.Context, caller authz.Identity, accountID string, limit int) ([]*Transaction, error) {
	acc, err := s.visibleAccount(ctx, caller, accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.repo.ListByAccount(ctx, acc.ID, limit)
}

// FindByReference looks up a transaction on an account visible to the caller.
func (s *Service) FindByReference(ctx context.Context, caller authz.Identity, reference string) (*Transaction, error) {
	if caller.ID == "" || !caller.Role.Valid() {
		return nil, authz.ErrUnauthenticated
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, ErrInvalidReference
	}

	txn, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	acc, err := s.repo.GetAccount(ctx, txn.AccountID)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(caller, acc.AgentID, acc.CustomerID) {
		return nil, ErrTransactionNotFound
	}
	return txn, nil
}

// ListPendingWithdrawals returns the approval queue of the calling agent.
func (s *Service) ListPendingWithdrawals(ctx context.Context, caller authz.Identity) ([]*PendingWithdrawal, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	return s.repo.ListPendingByAgent(ctx, caller.ID)
}

func (s *Service) account(ctx context.Context, accountID string) (*account.Account, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, account.ErrInvalidAccountID
	}
	return s.repo.GetAccount(ctx, accountID)
}

func (s *Service) visibleAccount(ctx context.Context, caller authz.Identity, accountID string) (*account.Account, error) {
	if caller.ID == "" || !caller.Role.Valid() {
		return nil, authz.ErrUnauthenticated
	}
	acc, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(caller, acc.AgentID, acc.CustomerID) {
		return nil, account.ErrAccountNotFound
	}
	return acc, nil
}

// withReference mints a reference and runs insert, retrying only when the
// store rejects the reference as a duplicate.
func (s *Service) withReference(typ Type, insert func(ref string) (*Transaction, error)) (*Transaction, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		ref, err := s.refs.Reference(typ.ReferencePrefix())
		if err != nil {
			return nil, apperror.Store("failed to generate reference code", err)
		}
		txn, err := insert(ref)
		if errors.Is(err, ErrDuplicateReference) {
			s.logger.Debug("reference collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		return txn, err
	}
	return nil, apperror.Store("could not allocate a unique reference code", nil)
}

func cleanDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return description, nil
}
