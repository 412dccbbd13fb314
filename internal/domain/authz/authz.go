// Package authz is the authorization boundary: it resolves who the caller is
// and decides which accounts and transactions they may act on.
//
// Every domain operation takes the caller's Identity as an explicit argument;
// nothing here reads ambient per-request state except the context helpers
// used by the transport layer.
package authz

import (
	"context"

	"ajo/internal/shared/apperror"
)

// Role is the caller's role, fixed when the profile is provisioned.
type Role string

const (
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleCustomer
}

// Identity is an authenticated caller.
type Identity struct {
	ID   string
	Role Role
}

// Provider resolves the caller of the current request.
type Provider interface {
	CurrentIdentity(ctx context.Context) (Identity, error)
}

var (
	ErrUnauthenticated = apperror.Authorization("not authenticated")
	ErrAgentOnly       = apperror.Authorization("only agents can perform this action")
	ErrCustomerOnly    = apperror.Authorization("only customers can perform this action")
	ErrNotAccountAgent = apperror.Authorization("account is managed by another agent")
	ErrNotLinked       = apperror.Authorization("account is not linked to you")
)

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// ContextProvider reads the identity placed on the request context by the
// authentication middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentIdentity(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok || id.ID == "" || !id.Role.Valid() {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

func authenticated(caller Identity) error {
	if caller.ID == "" || !caller.Role.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

// RequireAgent fails unless caller is an authenticated agent.
func RequireAgent(caller Identity) error {
	if err := authenticated(caller); err != nil {
		return err
	}
	if caller.Role != RoleAgent {
		return ErrAgentOnly
	}
	return nil
}

// RequireCustomer fails unless caller is an authenticated customer.
func RequireCustomer(caller Identity) error {
	if err := authenticated(caller); err != nil {
		return err
	}
	if caller.Role != RoleCustomer {
		return ErrCustomerOnly
	}
	return nil
}

// RequireAccountAgent fails unless caller is the agent that owns the account.
func RequireAccountAgent(caller Identity, agentID string) error {
	if err := RequireAgent(caller); err != nil {
		return err
	}
	if caller.ID != agentID {
		return ErrNotAccountAgent
	}
	return nil
}

// RequireLinkedCustomer fails unless caller is the customer linked to the account.
func RequireLinkedCustomer(caller Identity, customerID string) error {
	if err := RequireCustomer(caller); err != nil {
		return err
	}
	if customerID == "" || caller.ID != customerID {
		return ErrNotLinked
	}
	return nil
}

// CanView reports whether caller may read an account owned by agentID and
// linked to customerID (empty when unlinked).
func CanView(caller Identity, agentID, customerID string) bool {
	switch caller.Role {
	case RoleAgent:
		return caller.ID != "" && caller.ID == agentID
	case RoleCustomer:
		return caller.ID != "" && customerID != "" && caller.ID == customerID
	default:
		return false
	}
}
