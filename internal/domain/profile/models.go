package profile

import (
	"strings"
	"time"

	"ajo/internal/domain/authz"
	"ajo/internal/shared/apperror"
)

// Domain errors
var (
	ErrProfileNotFound = apperror.NotFound("profile not found")
	ErrProfileExists   = apperror.Conflict("profile already exists")
)

// Profile is the role record for an identity. Its role never changes after creation.
type Profile struct {
	ID        string     `json:"id"`
	Role      authz.Role `json:"role"`
	FullName  string     `json:"fullName"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SignupMetadata is what the identity provider captured at signup.
type SignupMetadata struct {
	Role     string
	FullName string
}

// CreateParams contains parameters for provisioning a profile
type CreateParams struct {
	ID       string
	Role     authz.Role
	FullName string
}

// RoleFromMetadata maps signup metadata to a role. Anything other than an
// explicit "agent" provisions a customer.
func RoleFromMetadata(meta SignupMetadata) authz.Role {
	if strings.EqualFold(strings.TrimSpace(meta.Role), string(authz.RoleAgent)) {
		return authz.RoleAgent
	}
	return authz.RoleCustomer
}
