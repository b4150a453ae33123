package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/org/credvault/pkg/models"
)

// ErrNotFound is returned when no matching row exists. For owner-scoped
// credential lookups it deliberately covers "exists but not yours".
var ErrNotFound = errors.New("not found")

// ErrDuplicateLogin is returned when an account login name is taken.
var ErrDuplicateLogin = errors.New("login already registered")

// ErrDuplicateContact is returned when a contact address is taken.
var ErrDuplicateContact = errors.New("contact address already registered")

// Error wraps an unexpected persistence failure, preserving the
// underlying cause for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a storage Error for the given operation.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// Store defines the persistence interface for the vault.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, a *models.Account) (int64, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*models.Account, error)
	GetAccountByContact(ctx context.Context, contact string) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error
	DeactivateAccount(ctx context.Context, id int64) error

	// Password reset tokens
	CreateResetToken(ctx context.Context, t *models.ResetToken) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (*models.ResetToken, error)

	// Credentials; every lookup and mutation is scoped by owner and
	// active-flag, and timestamps are set here, never by callers.
	InsertCredential(ctx context.Context, c *models.CredentialRecord) (int64, error)
	GetCredential(ctx context.Context, id, ownerID int64) (*models.CredentialRecord, error)
	ListCredentials(ctx context.Context, ownerID int64, category string) ([]*models.CredentialRecord, error)
	SearchCredentials(ctx context.Context, ownerID int64, field, query string) ([]*models.CredentialRecord, error)
	UpdateCredential(ctx context.Context, id, ownerID int64, mut models.CredentialMutation) error
	SoftDeleteCredential(ctx context.Context, id, ownerID int64) error

	// Audit
	WriteAuditEntry(ctx context.Context, e *models.AuditEntry) error
	QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error)

	// Metrics helpers
	CountActiveAccounts(ctx context.Context) (int64, error)
	CountActiveCredentials(ctx context.Context) (int64, error)

	// Lifecycle
	Close()
}

// AuditFilter specifies query parameters for audit log retrieval.
type AuditFilter struct {
	AccountID int64
	Operation string
	Since     *time.Time
	Limit     int
	Offset    int
}
