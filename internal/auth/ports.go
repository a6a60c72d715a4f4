package auth

import (
	"context"
	"time"

	"userdir/internal/account"
	"userdir/internal/platform/crypto"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks userdir/internal/auth AccountLookup,Accounts

// TokenVerifier checks a signed identity token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*crypto.Claims, error)
}

// TokenIssuer mints identity tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(subject, role string) (token string, jti string, err error)
	TTL() time.Duration
}

// Passwords hashes and compares plaintext passwords.
type Passwords interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// AccountLookup is the single read the gate performs per request.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (account.Account, error)
}

// Accounts is the part of the directory the login and registration flows use.
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Create(ctx context.Context, n account.NewAccount) (int64, error)
}
