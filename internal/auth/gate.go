package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"userdir/internal/account"
	"userdir/internal/httpx"
)

// Kind classifies a gate rejection.
type Kind int

const (
	Unauthenticated Kind = iota + 1
	Forbidden
)

// Rejection is a gate refusal that is safe to report to the caller.
type Rejection struct {
	Kind   Kind
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func (r *Rejection) StatusCode() int {
	if r.Kind == Forbidden {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

func (r *Rejection) ErrorCode() string {
	if r.Kind == Forbidden {
		return "FORBIDDEN"
	}
	return "UNAUTHORIZED"
}

var (
	ErrNoCredential          = &Rejection{Kind: Unauthenticated, Reason: "no credential provided"}
	ErrInvalidCredential     = &Rejection{Kind: Unauthenticated, Reason: "invalid credential"}
	ErrSubjectNotFound       = &Rejection{Kind: Unauthenticated, Reason: "subject not found"}
	ErrBanned                = &Rejection{Kind: Forbidden, Reason: "account banned"}
	ErrInsufficientPrivilege = &Rejection{Kind: Forbidden, Reason: "insufficient privilege"}
)

// Identity is the caller as resolved from the store.
type Identity struct {
	ID   int64
	Role account.Role
}

// Gate admits only live, unbanned administrators. Privilege and ban state
// are read from the store on every request; token claims beyond the
// subject are ignored.
type Gate struct {
	tokens   TokenVerifier
	accounts AccountLookup
}

func NewGate(tokens TokenVerifier, accounts AccountLookup) *Gate {
	return &Gate{tokens: tokens, accounts: accounts}
}

// Authorize runs presence, validity and live authorization checks in that
// order and stops at the first failure.
func (g *Gate) Authorize(ctx context.Context, authorization string) (Identity, error) {
	token := httpx.BearerToken(authorization)
	if token == "" {
		return Identity{}, ErrNoCredential
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return Identity{}, ErrInvalidCredential
	}
	id, err := strconv.ParseInt(claims.Sub, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, ErrInvalidCredential
	}

	a, err := g.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Identity{}, ErrSubjectNotFound
		}
		return Identity{}, fmt.Errorf("gate lookup: %w", err)
	}

	if a.Banned {
		return Identity{}, ErrBanned
	}
	if a.Role != account.RoleAdmin {
		return Identity{}, ErrInsufficientPrivilege
	}

	return Identity{ID: a.ID, Role: a.Role}, nil
}

// Middleware guards a handler with Authorize.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return httpx.AuthMiddleware(func(ctx context.Context, authorization string) (int64, string, error) {
		identity, err := g.Authorize(ctx, authorization)
		return identity.ID, string(identity.Role), err
	})
}
