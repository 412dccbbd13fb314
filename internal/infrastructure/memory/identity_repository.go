package memory

import (
	"context"
	"strings"

	"ajo/internal/domain/profile"
	"ajo/internal/domain/user"
)

// ProfileRepository implements profile.Repository.
type ProfileRepository struct {
	s *Store
}

var _ profile.Repository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (r *ProfileRepository) Create(ctx context.Context, params profile.CreateParams) (*profile.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[params.ID]; exists {
		return nil, profile.ErrProfileExists
	}
	p := &profile.Profile{
		ID:        params.ID,
		Role:      params.Role,
		FullName:  params.FullName,
		CreatedAt: s.now(),
	}
	s.profiles[p.ID] = p
	c := *p
	return &c, nil
}

// UserRepository implements user.Repository.
type UserRepository struct {
	s *Store
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(params.Email)
	if _, taken := s.userByEmail[email]; taken {
		return nil, user.ErrEmailTaken
	}
	u := &user.User{
		ID:           params.ID,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		FullName:     params.FullName,
		SignupRole:   params.SignupRole,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	s.userByEmail[email] = u.ID
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.userByEmail[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *s.users[id]
	return &c, nil
}
