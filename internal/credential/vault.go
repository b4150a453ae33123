// Package credential implements the encrypted credential store. Secrets
// are envelope-encrypted: each record's secret is sealed under its
// owner's key, never a global one.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/storage"
	"github.com/org/credvault/internal/strength"
	"github.com/org/credvault/pkg/models"
)

// ErrNotFound is returned when no active record matches the id and
// owner. A record owned by someone else reports the same error, so
// non-owners learn nothing about existence.
var ErrNotFound = errors.New("credential not found")

// ErrDecryptionFailed is returned when a stored ciphertext cannot be
// opened under the owner's current key. It signals data corruption or a
// key mismatch and is never folded into ErrNotFound.
var ErrDecryptionFailed = errors.New("credential decryption failed")

// ErrOwnerNotFound is returned when the owning account does not exist.
var ErrOwnerNotFound = errors.New("owner account not found")

// ErrNoFieldsToUpdate is returned for an empty credential update.
var ErrNoFieldsToUpdate = errors.New("no fields to update")

// Search fields accepted by Search.
const (
	SearchAll      = "all"
	SearchTitle    = "title"
	SearchUsername = "username"
	SearchWebsite  = "website"
)

// Backend is the minimal storage interface the Vault needs.
type Backend interface {
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	InsertCredential(ctx context.Context, c *models.CredentialRecord) (int64, error)
	GetCredential(ctx context.Context, id, ownerID int64) (*models.CredentialRecord, error)
	ListCredentials(ctx context.Context, ownerID int64, category string) ([]*models.CredentialRecord, error)
	SearchCredentials(ctx context.Context, ownerID int64, field, query string) ([]*models.CredentialRecord, error)
	UpdateCredential(ctx context.Context, id, ownerID int64, mut models.CredentialMutation) error
	SoftDeleteCredential(ctx context.Context, id, ownerID int64) error
}

// Vault is the credential store. All operations are scoped by the
// requesting owner account; the authenticated account id is passed
// explicitly on every call.
type Vault struct {
	store Backend
}

// NewVault creates a Vault backed by the given storage.
func NewVault(store Backend) *Vault {
	return &Vault{store: store}
}

// Add scores and encrypts the secret under the owner's key and inserts
// a new active record.
func (v *Vault) Add(ctx context.Context, ownerID int64, nc models.NewCredential) (int64, error) {
	key, err := v.ownerKey(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	sealed, err := crypto.Encrypt(key, []byte(nc.Secret))
	if err != nil {
		return 0, err
	}

	rec := &models.CredentialRecord{
		OwnerID:         ownerID,
		Title:           nc.Title,
		Category:        nc.Category,
		ServiceName:     nc.ServiceName,
		ServiceURL:      nc.ServiceURL,
		AccountUsername: nc.AccountUsername,
		EncryptedSecret: sealed,
		Strength:        strength.Score(nc.Secret),
	}
	id, err := v.store.InsertCredential(ctx, rec)
	if err != nil {
		return 0, storage.NewError("inserting credential", err)
	}
	return id, nil
}

// Get returns the credential detail with the secret decrypted. The
// returned detail carries neither the ciphertext nor any key material.
func (v *Vault) Get(ctx context.Context, id, ownerID int64) (*models.CredentialDetail, error) {
	rec, err := v.store.GetCredential(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storage.NewError("looking up credential", err)
	}

	key, err := v.ownerKey(ctx, rec.OwnerID)
	if err != nil {
		return nil, err
	}
	secret, err := crypto.Decrypt(key, rec.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	detail := rec.Detail(string(secret))
	return &detail, nil
}

// List returns summaries of the owner's active records, most recently
// touched first, optionally filtered by category. Summaries never carry
// secrets in any form.
func (v *Vault) List(ctx context.Context, ownerID int64, category string) ([]models.CredentialSummary, error) {
	recs, err := v.store.ListCredentials(ctx, ownerID, category)
	if err != nil {
		return nil, storage.NewError("listing credentials", err)
	}
	return summarize(recs), nil
}

// Search returns summaries of active records matching query in the
// given field: title, username, website, or all.
func (v *Vault) Search(ctx context.Context, ownerID int64, field, query string) ([]models.CredentialSummary, error) {
	switch field {
	case SearchTitle, SearchUsername, SearchWebsite:
	default:
		field = SearchAll
	}
	recs, err := v.store.SearchCredentials(ctx, ownerID, field, query)
	if err != nil {
		return nil, storage.NewError("searching credentials", err)
	}
	return summarize(recs), nil
}

// Update applies a structured mutation to an active owned record. A new
// secret is re-encrypted under the owner's current key and its strength
// recomputed; updated-at refreshes on any successful change.
func (v *Vault) Update(ctx context.Context, id, ownerID int64, upd models.CredentialUpdate) error {
	if upd.Empty() {
		return ErrNoFieldsToUpdate
	}

	mut := models.CredentialMutation{
		Title:           upd.Title,
		Category:        upd.Category,
		ServiceName:     upd.ServiceName,
		ServiceURL:      upd.ServiceURL,
		AccountUsername: upd.AccountUsername,
	}
	if upd.Secret != nil {
		key, err := v.ownerKey(ctx, ownerID)
		if err != nil {
			return err
		}
		sealed, err := crypto.Encrypt(key, []byte(*upd.Secret))
		if err != nil {
			return err
		}
		score := strength.Score(*upd.Secret)
		mut.EncryptedSecret = sealed
		mut.Strength = &score
	}

	err := v.store.UpdateCredential(ctx, id, ownerID, mut)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	default:
		return storage.NewError("updating credential", err)
	}
}

// Delete logically removes an active owned record by flipping its
// active flag; the row itself stays for auditability. Deleting an
// already deleted record fails with ErrNotFound.
func (v *Vault) Delete(ctx context.Context, id, ownerID int64) error {
	err := v.store.SoftDeleteCredential(ctx, id, ownerID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	default:
		return storage.NewError("deleting credential", err)
	}
}

// ownerKey loads and decodes the owner's key material.
func (v *Vault) ownerKey(ctx context.Context, ownerID int64) (*fernet.Key, error) {
	owner, err := v.store.GetAccountByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, storage.NewError("looking up owner", err)
	}
	key, err := crypto.ParseKey(owner.KeyMaterial)
	if err != nil {
		// Unusable key material means every ciphertext is unreachable;
		// that is a decryption failure, not a missing record.
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return key, nil
}

func summarize(recs []*models.CredentialRecord) []models.CredentialSummary {
	out := make([]models.CredentialSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Summary())
	}
	return out
}
