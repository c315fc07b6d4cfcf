// Package users stores accounts and implements registration, login and guest sessions.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resumind/internal/kv"
	"github.com/jonathan/resumind/internal/types"
)

// SystemOwner is the key-value owner holding account records. It can never collide with a
// user's own partition because user owners are UUIDs.
const SystemOwner = "_users"

// Record is a stored account including its password hash.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	PasswordSet  bool      `json:"password_set"`
	Guest        bool      `json:"guest"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public returns the record without its password hash.
func (r *Record) Public() *types.User {
	if r == nil {
		return nil
	}
	return &types.User{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Guest:       r.Guest,
		PasswordSet: r.PasswordSet,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Repository keeps account records in the key-value store.
type Repository struct {
	store kv.Store
	now   func() time.Time
}

// NewRepository creates a Repository on store.
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func idKey(id uuid.UUID) string {
	return "user:id:" + id.String()
}

func emailKey(email string) string {
	return "user:email:" + normalizeEmail(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckEmailExists reports whether an account uses email.
func (r *Repository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	if normalizeEmail(email) == "" {
		return false, nil
	}
	_, ok, err := r.store.Get(ctx, SystemOwner, emailKey(email))
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return ok, nil
}

// CreateUser stores a new account without a password and returns its id.
// Guest accounts have no email.
func (r *Repository) CreateUser(ctx context.Context, name, email string, guest bool) (uuid.UUID, error) {
	now := r.now()
	rec := &Record{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     normalizeEmail(email),
		Guest:     guest,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.save(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create user: %w", err)
	}
	if rec.Email != "" {
		if err := r.store.Set(ctx, SystemOwner, emailKey(rec.Email), rec.ID.String()); err != nil {
			return uuid.Nil, fmt.Errorf("failed to index user email: %w", err)
		}
	}
	return rec.ID, nil
}

// UpdatePassword sets the password hash of an account.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	rec, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return &ErrUserNotFound{UserID: id}
	}
	rec.PasswordHash = passwordHash
	rec.PasswordSet = true
	rec.UpdatedAt = r.now()
	return r.save(ctx, rec)
}

// GetUser returns the account with id, or nil when it does not exist.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*Record, error) {
	raw, ok, err := r.store.Get(ctx, SystemOwner, idKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &rec, nil
}

// GetUserByEmail returns the account registered with email, or nil when there is none.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*Record, error) {
	if normalizeEmail(email) == "" {
		return nil, nil
	}
	rawID, ok, err := r.store.Get(ctx, SystemOwner, emailKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if !ok {
		return nil, nil
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}
	return r.GetUser(ctx, id)
}

// DeleteUser removes an account and its email index.
func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	rec, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if rec.Email != "" {
		if _, err := r.store.Delete(ctx, SystemOwner, emailKey(rec.Email)); err != nil {
			return fmt.Errorf("failed to delete email index: %w", err)
		}
	}
	if _, err := r.store.Delete(ctx, SystemOwner, idKey(id)); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *Repository) save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, SystemOwner, idKey(rec.ID), string(data))
}
