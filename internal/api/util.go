package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/org/credvault/internal/account"
	"github.com/org/credvault/internal/credential"
	"github.com/org/credvault/internal/storage"
)

func newUUID() string {
	b := make([]byte, 16)
	rand.Read(b) //nolint:errcheck
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// result is the uniform response envelope: a success flag, a message,
// and an optional payload.
type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(result{Success: true, Message: msg, Data: data}) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(result{Success: false, Message: msg}) //nolint:errcheck
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unmapped, including storage.Error, is an internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrInvalidResetToken):
		code = http.StatusUnauthorized
	case errors.Is(err, account.ErrAccountDisabled):
		code = http.StatusForbidden
	case errors.Is(err, storage.ErrDuplicateLogin),
		errors.Is(err, storage.ErrDuplicateContact):
		code = http.StatusConflict
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, credential.ErrNotFound),
		errors.Is(err, credential.ErrOwnerNotFound):
		code = http.StatusNotFound
	case errors.Is(err, account.ErrNoFieldsToUpdate),
		errors.Is(err, credential.ErrNoFieldsToUpdate):
		code = http.StatusBadRequest
	case errors.Is(err, credential.ErrDecryptionFailed):
		// Distinct from not-found: the record exists but its ciphertext
		// or key material is unusable.
		decryptionFailuresTotal.Inc()
		code = http.StatusInternalServerError
	}
	writeError(w, code, err.Error())
}
