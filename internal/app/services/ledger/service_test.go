package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage/memory"
)

var (
	coreUser = profile.Profile{ID: "c1", Role: profile.RoleCore}
	ag1User  = profile.Profile{ID: "a1", Role: profile.RoleAgency, AgencyID: "ag-1"}
)

func TestGroupBooksCoreOnly(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, ag1User, ledger.ScopeGroup, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Record(ctx, ag1User, ledger.Entry{Scope: ledger.ScopeGroup, Type: ledger.TypeIncome, Amount: 100}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Book(ctx, coreUser, ledger.ScopeGroup, ""); err != nil {
		t.Fatalf("core access failed: %v", err)
	}
}

func TestAgencyBooksScopedToOwnAgency(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, ag1User, ledger.ScopeAgency, "ag-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign agency, got %v", err)
	}
	if _, err := svc.Book(ctx, ag1User, ledger.ScopeAgency, "ag-1"); err != nil {
		t.Fatalf("own agency access failed: %v", err)
	}
	if _, err := svc.Book(ctx, coreUser, ledger.ScopeAgency, "ag-2"); err != nil {
		t.Fatalf("core may inspect any agency books: %v", err)
	}
}

func TestBookTotals(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	seed := []ledger.Entry{
		{Scope: ledger.ScopeGroup, Type: ledger.TypeIncome, Amount: 5000, Description: "dues"},
		{Scope: ledger.ScopeGroup, Type: ledger.TypeIncome, Amount: 1200, Description: "donation"},
		{Scope: ledger.ScopeGroup, Type: ledger.TypeExpense, Amount: 800, Description: "venue"},
	}
	for _, e := range seed {
		if _, err := svc.Record(ctx, coreUser, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	book, err := svc.Book(ctx, coreUser, ledger.ScopeGroup, "")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if book.Income != 6200 || book.Expense != 800 || book.Balance != 5400 {
		t.Fatalf("unexpected totals: %+v", book)
	}
	if len(book.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(book.Entries))
	}
}

func TestRecordValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Record(ctx, coreUser, ledger.Entry{Scope: ledger.ScopeGroup, Type: "transfer", Amount: 10}); err == nil {
		t.Fatal("expected error for unknown entry type")
	}
	if _, err := svc.Record(ctx, coreUser, ledger.Entry{Scope: ledger.ScopeGroup, Type: ledger.TypeIncome, Amount: 0}); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
	if _, err := svc.Record(ctx, ag1User, ledger.Entry{Scope: ledger.ScopeAgency, Type: ledger.TypeIncome, Amount: 10}); err == nil {
		t.Fatal("expected error for agency entry without agency")
	}
}

func TestAgencyEntriesDoNotLeakAcrossAgencies(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Record(ctx, ag1User, ledger.Entry{Scope: ledger.ScopeAgency, AgencyID: "ag-1", Type: ledger.TypeIncome, Amount: 300}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := svc.Record(ctx, coreUser, ledger.Entry{Scope: ledger.ScopeAgency, AgencyID: "ag-2", Type: ledger.TypeIncome, Amount: 700}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	book, err := svc.Book(ctx, ag1User, ledger.ScopeAgency, "ag-1")
	if err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if book.Balance != 300 {
		t.Fatalf("foreign agency entry leaked: %+v", book)
	}
}
