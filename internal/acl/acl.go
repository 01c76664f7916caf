// Package acl models the per-object access policy stamped on every row of
// the owner-only collections. Rows are only reachable through the store's
// privileged handle, so the policy is recorded rather than enforced.
package acl

import (
	"encoding/json"
	"fmt"
)

// ACL is the access policy attached to a stored object.
type ACL struct {
	PublicRead  bool `json:"public_read"`
	PublicWrite bool `json:"public_write"`
}

// Restricted returns the owner-only policy: no public read, no public write.
func Restricted() ACL {
	return ACL{}
}

// String encodes the ACL for the acl column.
func (a ACL) String() string {
	b, _ := json.Marshal(a)
	return string(b)
}

// Parse decodes an acl column value. An empty value is treated as restricted.
func Parse(s string) (ACL, error) {
	var a ACL
	if s == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return ACL{}, fmt.Errorf("invalid acl: %w", err)
	}
	return a, nil
}
