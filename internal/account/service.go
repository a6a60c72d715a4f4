package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var validate = validator.New()

// Service is the directory query engine. It validates input, hashes
// passwords and delegates every read and write to the Repository.
type Service struct {
	repo   Repository
	hasher Hasher
}

func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen {
		return invalid("username", fmt.Sprintf("must be at least %d characters", minUsernameLen))
	}
	if n > maxUsernameLen {
		return invalid("username", fmt.Sprintf("must be at most %d characters", maxUsernameLen))
	}
	return nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=100"); err != nil {
		return invalid("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

func validateRole(role Role) error {
	if !role.Valid() {
		return invalid("role", "must be one of admin, user")
	}
	return nil
}

// List returns every account matching all filters, without password hashes.
func (s *Service) List(ctx context.Context, f Filter, sort *Sort) ([]Account, error) {
	if f.Role != nil {
		if err := validateRole(*f.Role); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, f, sort)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create validates n, hashes its password and returns the new account id.
func (s *Service) Create(ctx context.Context, n NewAccount) (int64, error) {
	n.Username = strings.TrimSpace(n.Username)
	n.Email = strings.TrimSpace(n.Email)
	if n.Role == "" {
		n.Role = RoleUser
	}

	if err := validateUsername(n.Username); err != nil {
		return 0, err
	}
	if err := validateEmail(n.Email); err != nil {
		return 0, err
	}
	if err := validatePassword(n.Password); err != nil {
		return 0, err
	}
	if err := validateRole(n.Role); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(n.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{
		Username:     n.Username,
		Email:        n.Email,
		PasswordHash: hash,
		Role:         n.Role,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// Update replaces the supplied fields of account id and returns the number
// of rows changed. A new password is hashed before it reaches the store.
func (s *Service) Update(ctx context.Context, id int64, c Changes) (int64, error) {
	if c.Empty() {
		return 0, invalid("fields", "no updatable fields supplied")
	}

	fields := make([]Assignment, 0, 5)

	if c.Username != nil {
		username := strings.TrimSpace(*c.Username)
		if err := validateUsername(username); err != nil {
			return 0, err
		}
		fields = append(fields, Assignment{Column: ColumnUsername, Value: username})
	}

	if c.Email != nil {
		email := strings.TrimSpace(*c.Email)
		if err := validateEmail(email); err != nil {
			return 0, err
		}
		fields = append(fields, Assignment{Column: ColumnEmail, Value: email})
	}

	if c.Password != nil {
		if err := validatePassword(*c.Password); err != nil {
			return 0, err
		}
		hash, err := s.hasher.Hash(*c.Password)
		if err != nil {
			return 0, fmt.Errorf("hash password: %w", err)
		}
		fields = append(fields, Assignment{Column: ColumnPasswordHash, Value: hash})
	}

	if c.Role != nil {
		if err := validateRole(*c.Role); err != nil {
			return 0, err
		}
		fields = append(fields, Assignment{Column: ColumnRole, Value: string(*c.Role)})
	}

	if c.Banned != nil {
		fields = append(fields, Assignment{Column: ColumnBanned, Value: *c.Banned})
	}

	return s.repo.Update(ctx, id, fields)
}

// SetBanned is idempotent; zero affected rows means the id is unknown.
func (s *Service) SetBanned(ctx context.Context, id int64, banned bool) (int64, error) {
	return s.repo.SetBanned(ctx, id, banned)
}

func (s *Service) Delete(ctx context.Context, id int64) (int64, error) {
	return s.repo.Delete(ctx, id)
}

// EnsureAdmin creates an admin account unless one with email already exists.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if _, err := s.Create(ctx, NewAccount{
		Username: username,
		Email:    email,
		Password: password,
		Role:     RoleAdmin,
	}); err != nil {
		// Another replica created it between the read and the insert.
		if errors.Is(err, ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
