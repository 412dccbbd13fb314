package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ajo/internal/domain/authz"
)

// Service provisions profiles and resolves identities for the auth middleware.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new profile service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Ensure returns the profile for userID, creating it from signup metadata on
// first authentication. An existing profile is returned unchanged.
func (s *Service) Ensure(ctx context.Context, userID string, meta SignupMetadata) (*Profile, error) {
	if userID == "" {
		return nil, authz.ErrUnauthenticated
	}

	existing, err := s.repo.GetByID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, CreateParams{
		ID:       userID,
		Role:     RoleFromMetadata(meta),
		FullName: strings.TrimSpace(meta.FullName),
	})
	if errors.Is(err, ErrProfileExists) {
		// Lost a race with a concurrent login; the winner's row is authoritative.
		return s.repo.GetByID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile provisioned",
		zap.String("user_id", created.ID),
		zap.String("role", string(created.Role)),
	)
	return created, nil
}

// Get returns the profile for userID.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.GetByID(ctx, userID)
}

// Identity resolves userID to an authorization identity. A missing profile
// means the caller is not provisioned and is treated as unauthenticated.
func (s *Service) Identity(ctx context.Context, userID string) (authz.Identity, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	if err != nil {
		return authz.Identity{}, err
	}
	return authz.Identity{ID: p.ID, Role: p.Role}, nil
}
