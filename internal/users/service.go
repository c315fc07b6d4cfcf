package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/resumind/internal/config"
	"github.com/jonathan/resumind/internal/types"
)

// GuestName is the display name of guest accounts.
const GuestName = "Guest"

// Service provides business logic for user authentication operations
type Service struct {
	repo           *Repository
	passwordConfig *config.PasswordConfig
	// registerMu serializes the email check and insert of Register.
	registerMu sync.Mutex
}

// NewService creates a new Service with the given dependencies
func NewService(repo *Repository, passwordConfig *config.PasswordConfig) *Service {
	return &Service{
		repo:           repo,
		passwordConfig: passwordConfig,
	}
}

// Register creates a new user with password authentication
func (s *Service) Register(ctx context.Context, req *types.CreateUserRequest) (*types.User, error) {
	// Hash before taking the lock; bcrypt is slow.
	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	exists, err := s.repo.CheckEmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: req.Email}
	}

	userID, err := s.repo.CreateUser(ctx, req.Name, req.Email, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return nil, fmt.Errorf("failed to set password: %w", err)
	}

	rec, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created user: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("created user not found: %s", userID)
	}
	return rec.Public(), nil
}

// Login authenticates a user and returns user data
func (s *Service) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	rec, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Same error for unknown email and wrong password
	if rec == nil || !rec.PasswordSet {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, rec.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return rec.Public(), nil
}

// Guest creates an account without credentials. It lives as long as its session token.
func (s *Service) Guest(ctx context.Context) (*types.User, error) {
	id, err := s.repo.CreateUser(ctx, GuestName, "", true)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Public(), nil
}

// Get returns the user with id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.User, error) {
	rec, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &ErrUserNotFound{UserID: id}
	}
	return rec.Public(), nil
}

// UpdatePassword updates a user's password
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	rec, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if rec == nil {
		return &ErrUserNotFound{UserID: userID}
	}

	// Guests have no current password to check.
	if rec.PasswordSet && !s.passwordConfig.VerifyPassword(currentPassword, rec.PasswordHash) {
		return &ErrPasswordMismatch{}
	}

	newPasswordHash, err := s.passwordConfig.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, newPasswordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
