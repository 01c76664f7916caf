// Package store is the account store adapter: create/read/update
// primitives over the owner-only collections used by the Google login flow.
package store

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/markb/glogin/internal/acl"
	"github.com/markb/glogin/internal/db"
)

// Store executes every operation through the privileged handle, since the
// collections it manages deny public access entirely.
type Store struct {
	h   *db.PrivilegedHandle
	now func() time.Time
}

func New(h *db.PrivilegedHandle) *Store {
	return &Store{
		h:   h,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func generateID() string {
	return uuid.NewString()
}

// RandomSecret returns n random bytes encoded as standard base64.
func RandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// decodeACL parses a stored acl column.
func decodeACL(raw string) (acl.ACL, error) {
	a, err := acl.Parse(raw)
	if err != nil {
		return acl.ACL{}, internalError("failed to decode acl", err)
	}
	return a, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
