package models

import "time"

// CredentialRecord is a stored credential row. EncryptedSecret is the
// authenticated ciphertext of the secret under the owner's key; it is
// never returned to callers outside the explicit decrypt path.
type CredentialRecord struct {
	ID              int64
	OwnerID         int64
	Title           string
	Category        string
	ServiceName     string
	ServiceURL      string
	AccountUsername string
	EncryptedSecret []byte
	Strength        int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CredentialSummary is the listing view of a credential. It carries no
// secret material in either form.
type CredentialSummary struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category,omitempty"`
	ServiceName     string    `json:"service_name,omitempty"`
	ServiceURL      string    `json:"service_url,omitempty"`
	AccountUsername string    `json:"account_username,omitempty"`
	Strength        int       `json:"strength"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CredentialDetail is a summary plus the decrypted secret.
type CredentialDetail struct {
	CredentialSummary
	Secret string `json:"secret"`
}

// Summary builds the listing view of a record.
func (c *CredentialRecord) Summary() CredentialSummary {
	return CredentialSummary{
		ID:              c.ID,
		Title:           c.Title,
		Category:        c.Category,
		ServiceName:     c.ServiceName,
		ServiceURL:      c.ServiceURL,
		AccountUsername: c.AccountUsername,
		Strength:        c.Strength,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// Detail pairs the summary with an already decrypted secret.
func (c *CredentialRecord) Detail(secret string) CredentialDetail {
	return CredentialDetail{CredentialSummary: c.Summary(), Secret: secret}
}

// NewCredential is the input for creating a credential. Title and Secret
// are required; the rest is optional metadata.
type NewCredential struct {
	Title           string `json:"title"`
	Category        string `json:"category"`
	ServiceName     string `json:"service_name"`
	ServiceURL      string `json:"service_url"`
	AccountUsername string `json:"account_username"`
	Secret          string `json:"secret"`
}

// CredentialUpdate is the structured mutation request for a credential.
// Nil fields stay unchanged; a non-nil Secret triggers re-encryption and
// a strength recompute.
type CredentialUpdate struct {
	Title           *string `json:"title,omitempty"`
	Category        *string `json:"category,omitempty"`
	ServiceName     *string `json:"service_name,omitempty"`
	ServiceURL      *string `json:"service_url,omitempty"`
	AccountUsername *string `json:"account_username,omitempty"`
	Secret          *string `json:"secret,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u CredentialUpdate) Empty() bool {
	return u.Title == nil && u.Category == nil && u.ServiceName == nil &&
		u.ServiceURL == nil && u.AccountUsername == nil && u.Secret == nil
}

// CredentialMutation is the storage-level form of an update: metadata
// fields plus the already encrypted secret and recomputed strength.
type CredentialMutation struct {
	Title           *string
	Category        *string
	ServiceName     *string
	ServiceURL      *string
	AccountUsername *string
	EncryptedSecret []byte
	Strength        *int
}
