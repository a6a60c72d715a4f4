package account

import (
	"context"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks userdir/internal/account Repository,Hasher

// Repository is the row store behind the directory. Mutations report the
// number of affected rows; zero means the id did not match.
type Repository interface {
	List(ctx context.Context, f Filter, s *Sort) ([]Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, a *Account) error
	Update(ctx context.Context, id int64, fields []Assignment) (int64, error)
	SetBanned(ctx context.Context, id int64, banned bool) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// Hasher turns a plaintext password into an opaque one-way hash.
type Hasher interface {
	Hash(plain string) (string, error)
}
