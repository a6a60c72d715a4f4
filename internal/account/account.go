package account

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an account lookup matches no row.
	ErrNotFound = errors.New("account not found")
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("username or email already exists")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStore wraps any other failure of the row store.
	ErrStore = errors.New("account store failure")
)

// Role is the privilege level of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is a directory entry. PasswordHash never leaves the service.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Banned       bool      `json:"banned"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAccount carries the input of a create operation. Role may be empty.
type NewAccount struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Changes is a partial update; nil fields keep their stored value.
type Changes struct {
	Username *string
	Email    *string
	Password *string
	Role     *Role
	Banned   *bool
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Username == nil && c.Email == nil && c.Password == nil && c.Role == nil && c.Banned == nil
}

// Filter narrows a listing. Zero values mean "no filter"; Banned is tri-state.
type Filter struct {
	Role     *Role
	Username string
	Email    string
	Banned   *bool
}

// Sort orders a listing by one allow-listed field.
type Sort struct {
	Field     string
	Direction string
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
