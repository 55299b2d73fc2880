// Package profile defines user identities and roles.
package profile

import "time"

// Role is one of the two fixed membership roles.
type Role string

const (
	// RoleCore is the privileged role with access to the journal, log book,
	// and group-level ledger in addition to shared features.
	RoleCore Role = "core"
	// RoleAgency is scoped to one organizational unit's chat and ledger
	// plus shared features.
	RoleAgency Role = "agency"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleCore || r == RoleAgency
}

// Profile is an application user. The ID matches the platform auth
// identity ID.
type Profile struct {
	ID        string    `json:"id,omitempty"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	AgencyID  string    `json:"agency_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
