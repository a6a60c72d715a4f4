package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// storeError maps driver failures onto the package's error kinds.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func (r *PostgresRepo) List(ctx context.Context, f Filter, s *Sort) ([]Account, error) {
	query, args := buildListQuery(f, s)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		var a Account
		var role string
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &role, &a.Banned, &a.CreatedAt); err != nil {
			return nil, storeError("list", err)
		}
		a.Role = Role(role)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list", err)
	}
	return out, nil
}

func (r *PostgresRepo) getOne(ctx context.Context, op, query string, arg any) (Account, error) {
	var a Account
	var role string
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, arg).Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.Banned, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, storeError(op, err)
	}
	a.Role = Role(role)
	return a, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Account, error) {
	const query = `
	SELECT id, username, email, password_hash, role, banned, created_at
	FROM users WHERE id = $1 LIMIT 1
	`
	return r.getOne(ctx, "get by id", query, id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	const query = `
	SELECT id, username, email, password_hash, role, banned, created_at
	FROM users WHERE email = $1 LIMIT 1
	`
	return r.getOne(ctx, "get by email", query, email)
}

// Create inserts a and fills in the server-assigned id, banned flag and
// creation time.
func (r *PostgresRepo) Create(ctx context.Context, a *Account) error {
	const query = `
	INSERT INTO users (username, email, password_hash, role)
	VALUES ($1, $2, $3, $4)
	RETURNING id, banned, created_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, a.Username, a.Email, a.PasswordHash, string(a.Role)).
		Scan(&a.ID, &a.Banned, &a.CreatedAt)
	if err != nil {
		return storeError("create", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, fields []Assignment) (int64, error) {
	query, args, ok := buildUpdateQuery(id, fields)
	if !ok {
		return 0, invalid("fields", "no updatable fields supplied")
	}
	return r.exec(ctx, "update", query, args...)
}

func (r *PostgresRepo) SetBanned(ctx context.Context, id int64, banned bool) (int64, error) {
	const query = `UPDATE users SET banned = $1 WHERE id = $2`
	return r.exec(ctx, "set banned", query, banned, id)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM users WHERE id = $1`
	return r.exec(ctx, "delete", query, id)
}

func (r *PostgresRepo) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return 0, storeError(op, err)
	}
	return tag.RowsAffected(), nil
}
