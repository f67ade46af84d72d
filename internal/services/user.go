package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/productcatalog/apiserver/internal/auth"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/productcatalog/apiserver/types"
)

var (
	ErrUserExists      = errors.New("user exists")
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService handles accounts and credential checks.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register stores a new account with a bcrypt hash of password.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	if len(password) > auth.MaxPasswordBytes {
		return types.User{}, ErrPasswordTooLong
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("look up %q: %w", username, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{Username: username, PasswordHash: hashed})
	if errors.Is(err, store.ErrConflict) {
		// lost a race with a concurrent registration
		return types.User{}, ErrUserExists
	}
	return user, err
}

// Authenticate returns the account matching username and password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("look up %q: %w", username, err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return types.User{}, fmt.Errorf("verify password for user %d: %w", user.ID, err)
	}
	if !ok {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}
