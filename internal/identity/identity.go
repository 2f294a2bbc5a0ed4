// Package identity manages user accounts and bearer credentials.
//
// It is a collaborator of the task core, not part of it: by the time a
// request reaches the lifecycle service, identity has already resolved
// the caller to an (id, role) pair. Passwords are stored as salted
// SHA-256 hashes; sessions are stateless JWTs.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops/internal/task"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfDelete         = errors.New("dispatchers cannot delete themselves")
	ErrBadRequest         = errors.New("invalid registration data")
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Role         task.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at,omitempty"`
}

// SetPassword fills Salt and PasswordHash from a plaintext password.
func (u *User) SetPassword(password string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	u.Salt = hex.EncodeToString(salt)
	u.PasswordHash = hashPassword(u.Salt, password)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return hashPassword(u.Salt, password) == u.PasswordHash
}

func hashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// Store defines the persistence contract for user accounts.
// Abstracted for testability (DIP).
type Store interface {
	// CreateUser persists a new user, filling in the generated ID.
	CreateUser(u *User) error
	// UserByID returns the user with the given ID, or (nil, nil) if absent.
	UserByID(id int64) (*User, error)
	// UserByName returns the user with the given username, or (nil, nil).
	UserByName(username string) (*User, error)
	// ListUsers returns users filtered by role; an empty role returns
	// every non-dispatcher account.
	ListUsers(role task.Role) ([]User, error)
	// DeleteUser removes a user account.
	DeleteUser(id int64) error
}

// Service handles registration, login, and account administration.
type Service struct {
	store  Store
	tokens *TokenIssuer
}

// NewService creates an identity service backed by the given store and
// token issuer.
func NewService(store Store, tokens *TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register validates and creates a new account, returning the user and
// a fresh bearer token.
func (s *Service) Register(username, password string, role task.Role) (*User, string, error) {
	if err := validateRegistration(username, password, role); err != nil {
		return nil, "", err
	}

	existing, err := s.store.UserByName(username)
	if err != nil {
		return nil, "", fmt.Errorf("checking username: %w", err)
	}
	if existing != nil {
		return nil, "", ErrUsernameTaken
	}

	u := &User{
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: timeNow().UTC().Format(time.RFC3339),
	}
	if err := u.SetPassword(password); err != nil {
		return nil, "", err
	}
	if err := s.store.CreateUser(u); err != nil {
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return u, token, nil
}

// Login verifies credentials and returns the user and a fresh token.
func (s *Service) Login(username, password string) (*User, string, error) {
	u, err := s.store.UserByName(username)
	if err != nil {
		return nil, "", fmt.Errorf("loading user: %w", err)
	}
	if u == nil || !u.CheckPassword(password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	return u, token, nil
}

// Authenticate resolves a bearer token to an actor. This is the single
// entry point the HTTP and WebSocket layers use; the task core never
// sees tokens.
func (s *Service) Authenticate(token string) (task.Actor, error) {
	return s.tokens.Verify(token)
}

// UserByID loads a single account.
func (s *Service) UserByID(id int64) (*User, error) {
	return s.store.UserByID(id)
}

// ListUsers returns accounts filtered by role; an empty role means
// every non-dispatcher account.
func (s *Service) ListUsers(role task.Role) ([]User, error) {
	if role != "" {
		if err := task.ValidateRole(role); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadRequest, err)
		}
	}
	return s.store.ListUsers(role)
}

// Delete removes an account. Dispatchers cannot delete themselves.
func (s *Service) Delete(userID, actorID int64) error {
	u, err := s.store.UserByID(userID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	if u.ID == actorID {
		return ErrSelfDelete
	}
	return s.store.DeleteUser(userID)
}

func validateRegistration(username, password string, role task.Role) error {
	if err := task.ValidateRole(role); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err)
	}
	if len(strings.TrimSpace(username)) < minUsernameLen {
		return fmt.Errorf("%w: username must be at least %d characters long", ErrBadRequest, minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrBadRequest, minPasswordLen)
	}
	return nil
}
