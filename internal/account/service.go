// Package account implements registration, authentication, and account
// lifecycle for the vault's single local user model.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/storage"
	"github.com/org/credvault/pkg/models"
)

// ErrInvalidCredentials is returned when a login name is unknown or the
// password does not match. The two cases are deliberately
// indistinguishable.
var ErrInvalidCredentials = errors.New("invalid login or password")

// ErrAccountDisabled is returned on login to a deactivated account.
var ErrAccountDisabled = errors.New("account is disabled")

// ErrNotFound is returned when no such account exists.
var ErrNotFound = errors.New("account not found")

// ErrNoFieldsToUpdate is returned for an empty profile update.
var ErrNoFieldsToUpdate = errors.New("no fields to update")

// ErrInvalidResetToken is returned when a reset token is unknown,
// expired, or already used.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

const (
	resetTokenPrefix = "cvr_"
	resetTokenTTL    = time.Hour
)

// Backend is the minimal storage interface the account service needs.
type Backend interface {
	CreateAccount(ctx context.Context, a *models.Account) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*models.Account, error)
	GetAccountByContact(ctx context.Context, contact string) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error
	DeactivateAccount(ctx context.Context, id int64) error
	CreateResetToken(ctx context.Context, t *models.ResetToken) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (*models.ResetToken, error)
}

// Service handles account operations.
type Service struct {
	store Backend
}

// NewService creates a Service backed by the given storage.
func NewService(store Backend) *Service {
	return &Service{store: store}
}

// Register creates a new active account. The account's key material is
// derived from rawMasterSecret once, here, and never regenerated.
func (s *Service) Register(ctx context.Context, login, password, contact string, rawMasterSecret []byte) (int64, error) {
	key := crypto.DeriveKey(rawMasterSecret)
	a := &models.Account{
		Login:        login,
		PasswordHash: hashPassword(password),
		KeyMaterial:  crypto.KeyString(key),
		Contact:      contact,
	}
	id, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateLogin) || errors.Is(err, storage.ErrDuplicateContact) {
			return 0, err
		}
		return 0, storage.NewError("creating account", err)
	}
	return id, nil
}

// Login authenticates by login name and password, refreshes the
// last-login timestamp, and returns the account metadata without the
// password hash or key material.
func (s *Service) Login(ctx context.Context, login, password string) (*models.AccountView, error) {
	a, err := s.store.GetAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storage.NewError("looking up account", err)
	}
	if a.PasswordHash != hashPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !a.Active {
		return nil, ErrAccountDisabled
	}
	if err := s.store.TouchLastLogin(ctx, a.ID); err != nil {
		return nil, storage.NewError("updating last login", err)
	}
	now := time.Now().UTC()
	a.LastLoginAt = &now
	v := a.View()
	return &v, nil
}

// ChangePassword replaces the stored hash after verifying the old
// password. An unknown account id reports invalid credentials, same as a
// wrong old password.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if err := s.verifyPassword(ctx, id, oldPassword); err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, id, hashPassword(newPassword)); err != nil {
		return storage.NewError("updating password", err)
	}
	return nil
}

// UpdateProfile mutates the fixed allow-list of profile fields: contact
// address and key material. Anything else is not updatable by design.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error {
	if upd.Empty() {
		return ErrNoFieldsToUpdate
	}
	err := s.store.UpdateProfile(ctx, id, upd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrDuplicateContact):
		return err
	default:
		return storage.NewError("updating profile", err)
	}
}

// Deactivate flips the active flag after password re-verification.
// Credential records remain stored but become unreachable once login is
// blocked.
func (s *Service) Deactivate(ctx context.Context, id int64, password string) error {
	if err := s.verifyPassword(ctx, id, password); err != nil {
		return err
	}
	if err := s.store.DeactivateAccount(ctx, id); err != nil {
		return storage.NewError("deactivating account", err)
	}
	return nil
}

// GetInfo returns the account metadata view.
func (s *Service) GetInfo(ctx context.Context, id int64) (*models.AccountView, error) {
	a, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage.NewError("looking up account", err)
	}
	v := a.View()
	return &v, nil
}

// CreateResetToken issues a single-use password reset token for the
// account registered under contact. The plaintext token is returned once
// and only its hash is stored; delivering it to the user is the caller's
// concern.
func (s *Service) CreateResetToken(ctx context.Context, contact string) (string, error) {
	a, err := s.store.GetAccountByContact(ctx, contact)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", storage.NewError("looking up account", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	plaintext := resetTokenPrefix + base64.RawURLEncoding.EncodeToString(raw)

	t := &models.ResetToken{
		TokenHash: hashToken(plaintext),
		AccountID: a.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL).UTC(),
	}
	if err := s.store.CreateResetToken(ctx, t); err != nil {
		return "", storage.NewError("persisting reset token", err)
	}
	return plaintext, nil
}

// ResetPassword redeems a reset token and replaces the account's
// password hash. Each token works exactly once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	t, err := s.store.ConsumeResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return storage.NewError("consuming reset token", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, t.AccountID, hashPassword(newPassword)); err != nil {
		return storage.NewError("updating password", err)
	}
	return nil
}

func (s *Service) verifyPassword(ctx context.Context, id int64, password string) error {
	a, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return storage.NewError("looking up account", err)
	}
	if a.PasswordHash != hashPassword(password) {
		return ErrInvalidCredentials
	}
	return nil
}

// hashPassword computes the single-round SHA-256 hex digest of the UTF-8
// password bytes. Acceptable only under this design's single local user
// threat model; a hardened multi-tenant deployment would want a salted,
// memory-hard KDF instead.
func hashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
