// Package notice defines announcements.
package notice

import "time"

// Notice is an announcement visible to all members. Mutation is gated to
// the core role.
type Notice struct {
	ID        string    `json:"id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
