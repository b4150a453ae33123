package credential

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/org/credvault/internal/crypto"
	"github.com/org/credvault/internal/storage"
	"github.com/org/credvault/pkg/models"
)

// fakeStore is a minimal in-memory Backend for testing. A monotonic
// clock stands in for NOW() so updated-at ordering is deterministic.
type fakeStore struct {
	nextID   int64
	clock    time.Time
	accounts map[int64]*models.Account
	creds    map[int64]*models.CredentialRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		accounts: map[int64]*models.Account{},
		creds:    map[int64]*models.CredentialRecord{},
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) addAccount(rawMasterSecret string) int64 {
	f.nextID++
	key := crypto.DeriveKey([]byte(rawMasterSecret))
	f.accounts[f.nextID] = &models.Account{
		ID:          f.nextID,
		KeyMaterial: crypto.KeyString(key),
		Active:      true,
	}
	return f.nextID
}

func (f *fakeStore) GetAccountByID(_ context.Context, id int64) (*models.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) InsertCredential(_ context.Context, c *models.CredentialRecord) (int64, error) {
	f.nextID++
	clone := *c
	clone.ID = f.nextID
	clone.Active = true
	clone.CreatedAt = f.tick()
	clone.UpdatedAt = clone.CreatedAt
	f.creds[clone.ID] = &clone
	return clone.ID, nil
}

func (f *fakeStore) GetCredential(_ context.Context, id, ownerID int64) (*models.CredentialRecord, error) {
	c, ok := f.creds[id]
	if !ok || !c.Active || c.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListCredentials(_ context.Context, ownerID int64, category string) ([]*models.CredentialRecord, error) {
	var out []*models.CredentialRecord
	for _, c := range f.creds {
		if !c.Active || c.OwnerID != ownerID {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) SearchCredentials(_ context.Context, ownerID int64, field, query string) ([]*models.CredentialRecord, error) {
	q := strings.ToLower(query)
	match := func(c *models.CredentialRecord) bool {
		title := strings.Contains(strings.ToLower(c.Title), q)
		user := strings.Contains(strings.ToLower(c.AccountUsername), q)
		site := strings.Contains(strings.ToLower(c.ServiceURL), q)
		switch field {
		case SearchTitle:
			return title
		case SearchUsername:
			return user
		case SearchWebsite:
			return site
		default:
			return title || user || site
		}
	}
	var out []*models.CredentialRecord
	for _, c := range f.creds {
		if c.Active && c.OwnerID == ownerID && match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateCredential(_ context.Context, id, ownerID int64, mut models.CredentialMutation) error {
	c, ok := f.creds[id]
	if !ok || !c.Active || c.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	if mut.Title != nil {
		c.Title = *mut.Title
	}
	if mut.Category != nil {
		c.Category = *mut.Category
	}
	if mut.ServiceName != nil {
		c.ServiceName = *mut.ServiceName
	}
	if mut.ServiceURL != nil {
		c.ServiceURL = *mut.ServiceURL
	}
	if mut.AccountUsername != nil {
		c.AccountUsername = *mut.AccountUsername
	}
	if mut.EncryptedSecret != nil {
		c.EncryptedSecret = mut.EncryptedSecret
	}
	if mut.Strength != nil {
		c.Strength = *mut.Strength
	}
	c.UpdatedAt = f.tick()
	return nil
}

func (f *fakeStore) SoftDeleteCredential(_ context.Context, id, ownerID int64) error {
	c, ok := f.creds[id]
	if !ok || !c.Active || c.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	c.Active = false
	c.UpdatedAt = f.tick()
	return nil
}

// --- tests ---

const testMasterSecret = "seedseedseedseedseedseedseedsee"

func TestAddAndGetRoundTrip(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	rec := store.creds[id]
	if bytes.Contains(rec.EncryptedSecret, []byte("S3cret!!")) {
		t.Error("stored ciphertext contains the plaintext secret")
	}
	if rec.Strength != 100 {
		t.Errorf("strength = %d, want 100", rec.Strength)
	}

	detail, err := vault.Get(ctx, id, owner)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Secret != "S3cret!!" {
		t.Errorf("secret = %q, want %q", detail.Secret, "S3cret!!")
	}
	if detail.Title != "Bank" || detail.Strength != 100 {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestAddUnknownOwner(t *testing.T) {
	vault := NewVault(newFakeStore())
	if _, err := vault.Add(context.Background(), 42, models.NewCredential{Title: "x", Secret: "y"}); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	alice := store.addAccount(testMasterSecret)
	bob := store.addAccount("otherkeyotherkeyotherkeyotherke")
	ctx := context.Background()

	id, err := vault.Add(ctx, alice, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Another account's record looks exactly like a missing one.
	_, err = vault.Get(ctx, id, bob)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner, got %v", err)
	}
	if errors.Is(err, ErrDecryptionFailed) {
		t.Error("non-owner access must not surface as a decryption failure")
	}
}

func TestDeleteHidesRecord(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := vault.Delete(ctx, id, owner); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := vault.Get(ctx, id, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Row is retained, only flagged inactive.
	if _, ok := store.creds[id]; !ok {
		t.Error("soft delete must keep the row")
	}
	// Deleting again fails the same way.
	if err := vault.Delete(ctx, id, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListOrderAndFilters(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	other := store.addAccount("otherkeyotherkeyotherkeyotherke")
	ctx := context.Background()

	first, _ := vault.Add(ctx, owner, models.NewCredential{Title: "Email", Category: "personal", Secret: "a"})
	second, _ := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Category: "finance", Secret: "b"})
	third, _ := vault.Add(ctx, owner, models.NewCredential{Title: "Work VPN", Category: "work", Secret: "c"})
	vault.Add(ctx, other, models.NewCredential{Title: "Not yours", Secret: "d"})

	// Touching the oldest record moves it to the front.
	title := "Email (new)"
	if err := vault.Update(ctx, first, owner, models.CredentialUpdate{Title: &title}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := vault.Delete(ctx, third, owner); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := vault.List(ctx, owner, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var ids []int64
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	want := []int64{first, second}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Errorf("list ids = %v, want %v", ids, want)
	}

	finance, err := vault.List(ctx, owner, "finance")
	if err != nil {
		t.Fatalf("list by category failed: %v", err)
	}
	if len(finance) != 1 || finance[0].ID != second {
		t.Errorf("category filter returned %+v", finance)
	}
}

func TestUpdateSecretReencrypts(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "weak"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	before := store.creds[id].EncryptedSecret

	secret := "Str0nger!"
	if err := vault.Update(ctx, id, owner, models.CredentialUpdate{Secret: &secret}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	rec := store.creds[id]
	if bytes.Equal(rec.EncryptedSecret, before) {
		t.Error("ciphertext unchanged after secret update")
	}
	if rec.Strength != 100 {
		t.Errorf("strength = %d, want 100 after recompute", rec.Strength)
	}
	detail, err := vault.Get(ctx, id, owner)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Secret != "Str0nger!" {
		t.Errorf("secret = %q after update", detail.Secret)
	}
}

func TestUpdateErrors(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	other := store.addAccount("otherkeyotherkeyotherkeyotherke")
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := vault.Update(ctx, id, owner, models.CredentialUpdate{}); !errors.Is(err, ErrNoFieldsToUpdate) {
		t.Errorf("expected ErrNoFieldsToUpdate, got %v", err)
	}
	title := "x"
	if err := vault.Update(ctx, 999, owner, models.CredentialUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
	if err := vault.Update(ctx, id, other, models.CredentialUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-owner update, got %v", err)
	}
}

func TestCorruptCiphertext(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	sealed := store.creds[id].EncryptedSecret
	corrupt := bytes.Clone(sealed)
	corrupt[len(corrupt)/2] ^= 0xff
	store.creds[id].EncryptedSecret = corrupt

	_, err = vault.Get(ctx, id, owner)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("corruption must not be reported as not-found")
	}
}

func TestKeyMismatch(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	id, err := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", Secret: "S3cret!!"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Someone swapped the owner's key material out from under the data.
	wrong := crypto.DeriveKey([]byte("not the original master secret"))
	store.accounts[owner].KeyMaterial = crypto.KeyString(wrong)

	if _, err := vault.Get(ctx, id, owner); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed under wrong key, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	store := newFakeStore()
	vault := NewVault(store)
	owner := store.addAccount(testMasterSecret)
	ctx := context.Background()

	bank, _ := vault.Add(ctx, owner, models.NewCredential{Title: "Bank", AccountUsername: "alice", ServiceURL: "bank.example.com", Secret: "a"})
	mail, _ := vault.Add(ctx, owner, models.NewCredential{Title: "Mail", AccountUsername: "alice@x.com", ServiceURL: "mail.example.com", Secret: "b"})

	cases := []struct {
		name  string
		field string
		query string
		want  []int64
	}{
		{"by title", SearchTitle, "bank", []int64{bank}},
		{"by username", SearchUsername, "alice", []int64{mail, bank}},
		{"by website", SearchWebsite, "mail.", []int64{mail}},
		{"across all fields", SearchAll, "example.com", []int64{mail, bank}},
		{"unknown field falls back to all", "bogus", "example.com", []int64{mail, bank}},
		{"no match", SearchTitle, "nothing", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := vault.Search(ctx, owner, tc.field, tc.query)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tc.want))
			}
			for i, s := range got {
				if s.ID != tc.want[i] {
					t.Errorf("result[%d].ID = %d, want %d", i, s.ID, tc.want[i])
				}
			}
		})
	}
}
