// Package channel defines chat streams and their messages.
package channel

import "time"

// Kind distinguishes the singleton group stream from per-agency streams.
type Kind string

const (
	KindGroup  Kind = "group"
	KindAgency Kind = "agency"
)

// Channel is a named chat stream.
type Channel struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	AgencyID  string    `json:"agency_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message belongs to a channel. Immutable once created.
type Message struct {
	ID            string    `json:"id,omitempty"`
	ChannelID     string    `json:"channel_id"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name,omitempty"`
	Content       string    `json:"content"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Pending marks a locally fabricated record awaiting the
	// authoritative row. Never persisted.
	Pending bool `json:"-"`
}
