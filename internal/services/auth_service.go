package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"costtracker/internal/core"
	"costtracker/internal/log"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for stored password hashes.
const DefaultBcryptCost = 10

// AuthService registers credentials and verifies logins.
type AuthService struct {
	users  UserStore
	cost   int
	logger *log.Logger

	// dummyHash is compared against when the username is unknown so both
	// failure paths spend the same bcrypt time.
	dummyHash []byte
}

// NewAuthService returns an AuthService hashing with the given bcrypt cost.
// A cost outside bcrypt's range falls back to DefaultBcryptCost.
func NewAuthService(users UserStore, cost int, logger *log.Logger) (*AuthService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if logger == nil {
		logger = log.Discard()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("costtracker-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		cost:      cost,
		logger:    logger.WithComponent(log.ComponentAuth),
		dummyHash: dummy,
	}, nil
}

// HashPassword hashes password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a user. Empty username or password is core.ErrInvalidInput;
// a taken username is core.ErrDuplicateUsername.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("register: %w", core.ErrInvalidInput)
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes.
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fmt.Errorf("register: %w", core.ErrInvalidInput)
		}
		return err
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, user.ID,
		log.FieldUsername, user.Username)
	return nil
}

// Login verifies credentials. Unknown user and wrong password both return
// core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.Identity{}, core.ErrInvalidCredentials
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return core.Identity{}, core.ErrInvalidCredentials
		}
		return core.Identity{}, fmt.Errorf("login lookup: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return core.Identity{}, core.ErrInvalidCredentials
	}

	return user.Identity(), nil
}
