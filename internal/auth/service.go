package auth

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"userdir/internal/account"
)

// ErrUnauthorized is returned by Login for an unknown email or a wrong
// password. The two cases are not distinguished.
var ErrUnauthorized = errors.New("invalid email or password")

type Service struct {
	accounts  Accounts
	passwords Passwords
	tokens    TokenIssuer
	// decoy is compared on unknown emails so a miss costs as much as a
	// wrong password.
	decoy string
}

func NewService(accounts Accounts, passwords Passwords, tokens TokenIssuer) *Service {
	decoy, err := passwords.Hash("decoy-password-never-matches")
	if err != nil {
		log.Printf("auth: decoy hash unavailable: %v", err)
	}
	return &Service{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		decoy:     decoy,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresIn int
}

// Login checks email and password and issues a token for the account.
// Banned accounts are refused with ErrBanned.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	a, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.passwords.Verify(s.decoy, password)
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !s.passwords.Verify(a.PasswordHash, password) {
		return Session{}, ErrUnauthorized
	}
	if a.Banned {
		return Session{}, ErrBanned
	}

	token, _, err := s.tokens.Issue(strconv.FormatInt(a.ID, 10), string(a.Role))
	if err != nil {
		return Session{}, err
	}

	return Session{Token: token, ExpiresIn: int(s.tokens.TTL().Seconds())}, nil
}

// Register creates a regular account. The role is never taken from input.
func (s *Service) Register(ctx context.Context, username, email, password string) (int64, error) {
	return s.accounts.Create(ctx, account.NewAccount{
		Username: username,
		Email:    email,
		Password: password,
		Role:     account.RoleUser,
	})
}
