// Package ledger defines signed financial records at group and agency scope.
package ledger

import "time"

// Scope distinguishes group-level bookkeeping from per-agency books.
type Scope string

const (
	ScopeGroup  Scope = "group"
	ScopeAgency Scope = "agency"
)

// EntryType signs an entry.
type EntryType string

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
)

// Entry is a signed financial record. Amount is stored in minor units
// and is always positive; Type carries the sign.
type Entry struct {
	ID          string    `json:"id,omitempty"`
	Scope       Scope     `json:"scope"`
	AgencyID    string    `json:"agency_id,omitempty"`
	Type        EntryType `json:"entry_type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"entry_date"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Signed returns the entry amount with its sign applied.
func (e Entry) Signed() int64 {
	if e.Type == TypeExpense {
		return -e.Amount
	}
	return e.Amount
}

// Total returns the signed sum of entries (income minus expense).
func Total(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Signed()
	}
	return total
}
