package access

import (
	"testing"

	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
)

func TestCoreCapabilities(t *testing.T) {
	user := &profile.Profile{ID: "u1", Role: profile.RoleCore}

	for _, cap := range []Capability{CapChat, CapJournal, CapLogbook, CapGroupLedger, CapNotices, CapTodos, CapProfile, CapSettings} {
		if !Allowed(user, cap) {
			t.Fatalf("core must have %s", cap)
		}
	}
	for _, cap := range []Capability{CapAgencyChat, CapAgencyLedger} {
		if Allowed(user, cap) {
			t.Fatalf("core must not have %s", cap)
		}
	}
}

func TestAgencyCapabilities(t *testing.T) {
	user := &profile.Profile{ID: "u2", Role: profile.RoleAgency, AgencyID: "ag-1"}

	for _, cap := range []Capability{CapChat, CapAgencyChat, CapAgencyLedger, CapNotices, CapTodos, CapProfile, CapSettings} {
		if !Allowed(user, cap) {
			t.Fatalf("agency must have %s", cap)
		}
	}
	for _, cap := range []Capability{CapJournal, CapLogbook, CapGroupLedger} {
		if Allowed(user, cap) {
			t.Fatalf("agency must not have %s", cap)
		}
	}
}

func TestNilAndUnknownDenied(t *testing.T) {
	if Allowed(nil, CapChat) {
		t.Fatal("nil user must be denied")
	}
	unknown := &profile.Profile{ID: "u3", Role: "owner"}
	if Allowed(unknown, CapChat) {
		t.Fatal("unknown role must be denied")
	}
	if got := For(unknown); len(got) != 0 {
		t.Fatalf("unknown role must have no capabilities, got %v", got)
	}
}

func TestForReturnsCopy(t *testing.T) {
	user := &profile.Profile{ID: "u1", Role: profile.RoleCore}
	caps := For(user)
	if len(caps) == 0 {
		t.Fatal("expected capabilities")
	}
	caps[0] = "mutated"
	if For(user)[0] == "mutated" {
		t.Fatal("For must return a copy")
	}
}
