// Package agency defines organizational units.
package agency

import "time"

// Agency is a named organizational unit. It owns one agency channel plus
// agency-scoped ledger entries and todos.
type Agency struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
