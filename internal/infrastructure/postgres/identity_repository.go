package postgres

import (
	"context"
	"database/sql"

	"ajo/internal/domain/profile"
	"ajo/internal/domain/user"
)

// ProfileRepository implements the profile.Repository interface for PostgreSQL
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by its ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, role, full_name, created_at FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Role, &p.FullName, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, profile.ErrProfileNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get profile")
	}
	return &p, nil
}

// Create inserts a profile. An existing profile is never overwritten.
func (r *ProfileRepository) Create(ctx context.Context, params profile.CreateParams) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, role, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, role, full_name, created_at
	`, params.ID, params.Role, params.FullName).Scan(&p.ID, &p.Role, &p.FullName, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, profile.ErrProfileExists
	}
	if err != nil {
		return nil, classify(err, "failed to create profile")
	}
	return &p, nil
}

// UserRepository implements the user.Repository interface for PostgreSQL
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, signup_role, created_at`

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.SignupRole, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, signup_role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query,
		params.ID, params.Email, params.PasswordHash, params.FullName, params.SignupRole,
	))
	if isConstraintViolation(err, codeUniqueViolation, "users_email_key") {
		return nil, user.ErrEmailTaken
	}
	if err != nil {
		return nil, classify(err, "failed to create user")
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get user")
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err == sql.ErrNoRows {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, classify(err, "failed to get user")
	}
	return u, nil
}
