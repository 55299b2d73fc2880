// Package journal defines authored free-text records: personal journal
// entries and the shared log book.
package journal

import "time"

// Entry is an authored free-text record.
type Entry struct {
	ID        string    `json:"id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanMutate reports whether the given user may edit or delete the entry.
// Only the author may.
func (e Entry) CanMutate(userID string) bool {
	return userID != "" && e.AuthorID == userID
}
