// Package ledger provides bookkeeping at two scopes: the group-level
// books, visible to core members, and per-agency books, visible to the
// agency's own members.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// ErrForbidden is returned when a user reads or writes books outside
// their scope.
var ErrForbidden = errors.New("ledger scope not permitted")

// Book is a scoped ledger view: its entries oldest first plus the
// running totals.
type Book struct {
	Entries []ledger.Entry `json:"entries"`
	Income  int64          `json:"income"`
	Expense int64          `json:"expense"`
	Balance int64          `json:"balance"`
}

// Service exposes ledger operations.
type Service struct {
	entries storage.LedgerStore
	log     *logger.Logger
}

// New creates the ledger service.
func New(entries storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{entries: entries, log: log}
}

// allowed reports whether the actor may touch the given books.
func allowed(actor profile.Profile, scope ledger.Scope, agencyID string) bool {
	switch scope {
	case ledger.ScopeGroup:
		return actor.Role == profile.RoleCore
	case ledger.ScopeAgency:
		if actor.Role == profile.RoleCore {
			return true
		}
		return actor.Role == profile.RoleAgency && actor.AgencyID == agencyID
	}
	return false
}

// Book returns the entries and totals for a scope.
func (s *Service) Book(ctx context.Context, actor profile.Profile, scope ledger.Scope, agencyID string) (Book, error) {
	if scope == ledger.ScopeAgency && agencyID == "" {
		return Book{}, errors.New("agency books require an agency")
	}
	if !allowed(actor, scope, agencyID) {
		return Book{}, ErrForbidden
	}

	entries, err := s.entries.ListLedgerEntries(ctx, scope, agencyID)
	if err != nil {
		return Book{}, fmt.Errorf("list ledger entries: %w", err)
	}

	book := Book{Entries: entries}
	for _, e := range entries {
		if e.Type == ledger.TypeExpense {
			book.Expense += e.Amount
		} else {
			book.Income += e.Amount
		}
	}
	book.Balance = ledger.Total(entries)
	return book, nil
}

// Record adds an entry to a scope's books.
func (s *Service) Record(ctx context.Context, actor profile.Profile, e ledger.Entry) (ledger.Entry, error) {
	if e.Scope == ledger.ScopeAgency && e.AgencyID == "" {
		return ledger.Entry{}, errors.New("agency entry requires an agency")
	}
	if e.Scope == ledger.ScopeGroup {
		e.AgencyID = ""
	}
	if !allowed(actor, e.Scope, e.AgencyID) {
		return ledger.Entry{}, ErrForbidden
	}
	if e.Type != ledger.TypeIncome && e.Type != ledger.TypeExpense {
		return ledger.Entry{}, fmt.Errorf("invalid entry type %q", e.Type)
	}
	if e.Amount <= 0 {
		return ledger.Entry{}, errors.New("amount must be positive")
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	e.AuthorID = actor.ID

	saved, err := s.entries.CreateLedgerEntry(ctx, e)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("create ledger entry: %w", err)
	}
	s.log.WithField("entry", saved.ID).WithField("scope", string(saved.Scope)).Info("ledger entry recorded")
	return saved, nil
}
