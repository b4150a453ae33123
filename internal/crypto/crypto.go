// Package crypto implements the vault's key derivation and the
// authenticated encryption of credential secrets.
//
// Keys are Fernet keys: tokens are versioned, carry a timestamp and a
// random IV, and are integrity-protected by an HMAC, so decryption with
// the wrong key or a tampered token fails instead of returning garbage.
package crypto

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// KeySize is the raw key length a Fernet key is built from.
const KeySize = 32

// keyFill pads raw master secrets shorter than KeySize. The predictable
// padding is a documented weakness of the scheme, kept for key
// compatibility with existing vaults.
const keyFill = 0x20

// ErrDecryption is returned when a token fails its MAC check, is
// malformed, or was produced under a different key.
var ErrDecryption = errors.New("decryption failed")

// NormalizeKey maps a raw master secret onto exactly KeySize bytes:
// longer input is truncated, shorter input is padded with keyFill.
func NormalizeKey(raw []byte) []byte {
	norm := make([]byte, KeySize)
	for i := range norm {
		norm[i] = keyFill
	}
	copy(norm, raw)
	return norm
}

// DeriveKey derives the account encryption key from a raw master secret.
// Derivation is deterministic: the same secret always yields the same key.
func DeriveKey(raw []byte) *fernet.Key {
	var k fernet.Key
	copy(k[:], NormalizeKey(raw))
	return &k
}

// KeyString returns the encoded form of a key, suitable for persisting
// as account key material.
func KeyString(k *fernet.Key) string {
	return k.Encode()
}

// ParseKey decodes key material persisted by KeyString.
func ParseKey(material string) (*fernet.Key, error) {
	k, err := fernet.DecodeKey(material)
	if err != nil {
		return nil, fmt.Errorf("decoding key material: %w", err)
	}
	return k, nil
}

// Encrypt seals plaintext into an authenticated token under key.
func Encrypt(key *fernet.Key, plaintext []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encrypting secret: %w", err)
	}
	return tok, nil
}

// Decrypt opens a token produced by Encrypt. Tokens never expire; only
// authenticity is checked.
func Decrypt(key *fernet.Key, token []byte) ([]byte, error) {
	msg := fernet.VerifyAndDecrypt(token, 0, []*fernet.Key{key})
	if msg == nil {
		return nil, ErrDecryption
	}
	return msg, nil
}
