package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ajo/internal/domain/authz"
	"ajo/internal/domain/refcode"
	"ajo/internal/shared/apperror"
)

// DefaultMaxCodeAttempts bounds the generate-and-insert loop on code collisions.
const DefaultMaxCodeAttempts = 5

// CodeSource produces candidate 6-digit link codes.
type CodeSource interface {
	AccountCode() (string, error)
}

// Service contains the business logic for account creation and linking
type Service struct {
	repo        Repository
	codes       CodeSource
	logger      *zap.Logger
	maxAttempts int
}

// NewService creates a new account service
func NewService(repo Repository, codes CodeSource, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		codes:       codes,
		logger:      logger,
		maxAttempts: DefaultMaxCodeAttempts,
	}
}

// SetMaxCodeAttempts overrides the collision retry budget.
func (s *Service) SetMaxCodeAttempts(n int) {
	if n > 0 {
		s.maxAttempts = n
	}
}

// CreateAccount opens an unlinked account owned by the calling agent and
// returns it with its freshly allocated link code.
func (s *Service) CreateAccount(ctx context.Context, caller authz.Identity, req CreateRequest) (*Account, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.codes.AccountCode()
		if err != nil {
			return nil, apperror.Store("failed to generate account code", err)
		}

		acc, err := s.repo.Create(ctx, CreateParams{
			ID:            uuid.NewString(),
			AgentID:       caller.ID,
			DisplayName:   strings.TrimSpace(req.DisplayName),
			Code:          code,
			TargetBalance: req.TargetBalance,
		})
		if errors.Is(err, ErrCodeTaken) {
			s.logger.Debug("account code collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("account created",
			zap.String("account_id", acc.ID),
			zap.String("agent_id", caller.ID),
		)
		return acc, nil
	}

	return nil, apperror.Store("could not allocate a unique account code", nil)
}

// LinkAccount binds the calling customer to the unlinked account carrying
// code and returns its ID. Re-linking an account the caller already holds
// succeeds without changes.
func (s *Service) LinkAccount(ctx context.Context, caller authz.Identity, rawCode string) (string, error) {
	if err := authz.RequireCustomer(caller); err != nil {
		return "", err
	}

	code := refcode.NormalizeAccountCode(rawCode)
	if !refcode.IsAccountCode(code) {
		return "", ErrInvalidCode
	}

	candidates, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}

	target, err := pickLinkTarget(candidates, caller.ID)
	if err != nil {
		return "", err
	}
	if target.CustomerID == caller.ID {
		return target.ID, nil
	}

	err = s.repo.Link(ctx, target.ID, caller.ID)
	if errors.Is(err, ErrNotLinkable) {
		// The guard lost a race. Succeed only if the winner was this customer.
		current, getErr := s.repo.GetByID(ctx, target.ID)
		if getErr != nil {
			return "", getErr
		}
		if current.CustomerID == caller.ID {
			return current.ID, nil
		}
		if current.IsLinked() {
			return "", ErrLinkedToOther
		}
		return "", ErrNotLinkable
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("account linked",
		zap.String("account_id", target.ID),
		zap.String("customer_id", caller.ID),
	)
	return target.ID, nil
}

// pickLinkTarget applies the linking decision table to the accounts carrying
// a code. An account already held by the customer wins over an unlinked one.
func pickLinkTarget(candidates []*Account, customerID string) (*Account, error) {
	if len(candidates) == 0 {
		return nil, ErrCodeNotFound
	}

	var unlinked, linkedToOther *Account
	for _, acc := range candidates {
		switch {
		case acc.CustomerID == customerID:
			return acc, nil
		case acc.IsLinked():
			if linkedToOther == nil {
				linkedToOther = acc
			}
		case acc.LinkingStatus == LinkingUnlinked:
			if unlinked == nil {
				unlinked = acc
			}
		}
		// Reserved accounts are never link targets.
	}

	switch {
	case unlinked != nil:
		return unlinked, nil
	case linkedToOther != nil:
		return nil, ErrLinkedToOther
	default:
		return nil, ErrNotLinkable
	}
}

// Get returns an account visible to the caller: its owning agent or its
// linked customer. Invisible accounts are reported as not found.
func (s *Service) Get(ctx context.Context, caller authz.Identity, accountID string) (*Account, error) {
	if caller.ID == "" || !caller.Role.Valid() {
		return nil, authz.ErrUnauthenticated
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, ErrInvalidAccountID
	}

	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(caller, acc.AgentID, acc.CustomerID) {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// List returns the caller's accounts: owned ones for agents, linked ones for customers.
func (s *Service) List(ctx context.Context, caller authz.Identity) ([]*Account, error) {
	switch caller.Role {
	case authz.RoleAgent:
		return s.ListForAgent(ctx, caller)
	case authz.RoleCustomer:
		return s.ListForCustomer(ctx, caller)
	default:
		return nil, authz.ErrUnauthenticated
	}
}

// ListForAgent returns the accounts owned by the calling agent, newest first.
func (s *Service) ListForAgent(ctx context.Context, caller authz.Identity) ([]*Account, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	return s.repo.ListByAgent(ctx, caller.ID)
}

// ListForCustomer returns the accounts linked to the calling customer.
func (s *Service) ListForCustomer(ctx context.Context, caller authz.Identity) ([]*Account, error) {
	if err := authz.RequireCustomer(caller); err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, caller.ID)
}

// ListCustomers returns the distinct customers linked to the calling agent's accounts.
func (s *Service) ListCustomers(ctx context.Context, caller authz.Identity) ([]*Customer, error) {
	if err := authz.RequireAgent(caller); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, caller.ID)
}
