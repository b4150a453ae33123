package models

import "time"

// Account is a vault account row. KeyMaterial is the account's encoded
// symmetric key and must never leave the encryption path; PasswordHash and
// KeyMaterial are excluded from every outward view.
type Account struct {
	ID           int64
	Login        string
	PasswordHash string
	KeyMaterial  string
	Contact      string
	Active       bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// AccountView is the account metadata returned to callers.
type AccountView struct {
	ID          int64      `json:"id"`
	Login       string     `json:"login"`
	Contact     string     `json:"contact"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// View strips the password hash and key material from an account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		Login:       a.Login,
		Contact:     a.Contact,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// ProfileUpdate is the structured profile mutation request. Only the
// contact address and the key material may change; nil means unchanged.
type ProfileUpdate struct {
	Contact     *string `json:"contact,omitempty"`
	KeyMaterial *string `json:"key_material,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Contact == nil && u.KeyMaterial == nil
}

// ResetToken is a single-use password reset token, stored hashed.
type ResetToken struct {
	TokenHash string
	AccountID int64
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}
