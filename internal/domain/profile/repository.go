package profile

import "context"

// Repository defines the interface for profile data access
type Repository interface {
	// GetByID returns ErrProfileNotFound when no profile exists.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// Create returns ErrProfileExists when a profile with the same ID exists.
	Create(ctx context.Context, params CreateParams) (*Profile, error)
}
