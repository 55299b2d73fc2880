// Package access implements the role-based capability gate. It is a
// client-side convenience for filtering navigation and page sections; the
// platform's row-level policies remain the security boundary.
package access

import "github.com/groupdesk/groupdesk/internal/app/domain/profile"

// Capability names a gated feature surface.
type Capability string

const (
	CapChat         Capability = "chat"
	CapAgencyChat   Capability = "agency_chat"
	CapJournal      Capability = "journal"
	CapLogbook      Capability = "logbook"
	CapGroupLedger  Capability = "group_ledger"
	CapAgencyLedger Capability = "agency_ledger"
	CapNotices      Capability = "notices"
	CapTodos        Capability = "todos"
	CapProfile      Capability = "profile"
	CapSettings     Capability = "settings"
)

// capabilities is the fixed role→capability table.
var capabilities = map[profile.Role][]Capability{
	profile.RoleCore: {
		CapChat,
		CapJournal,
		CapLogbook,
		CapGroupLedger,
		CapNotices,
		CapTodos,
		CapProfile,
		CapSettings,
	},
	profile.RoleAgency: {
		CapChat,
		CapAgencyChat,
		CapAgencyLedger,
		CapNotices,
		CapTodos,
		CapProfile,
		CapSettings,
	},
}

// Allowed reports whether the user holds the capability. A nil user is
// denied everything.
func Allowed(user *profile.Profile, cap Capability) bool {
	if user == nil {
		return false
	}
	for _, c := range capabilities[user.Role] {
		if c == cap {
			return true
		}
	}
	return false
}

// For returns the exact capability set for the user, in table order.
// A nil user gets an empty set.
func For(user *profile.Profile) []Capability {
	if user == nil {
		return nil
	}
	caps := capabilities[user.Role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
