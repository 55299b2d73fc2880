// Package storage defines persistence interfaces for the application.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProfileStore persists user profiles.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
	ListProfiles(ctx context.Context) ([]profile.Profile, error)
	UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// AgencyStore persists organizational units.
type AgencyStore interface {
	CreateAgency(ctx context.Context, a agency.Agency) (agency.Agency, error)
	GetAgency(ctx context.Context, id string) (agency.Agency, error)
	ListAgencies(ctx context.Context) ([]agency.Agency, error)
}

// ChannelStore persists chat channels and their messages.
type ChannelStore interface {
	FindChannel(ctx context.Context, kind channel.Kind, agencyID string) (channel.Channel, error)
	CreateChannel(ctx context.Context, ch channel.Channel) (channel.Channel, error)
	// ListMessages returns messages ordered by creation time ascending.
	ListMessages(ctx context.Context, channelID string) ([]channel.Message, error)
	CreateMessage(ctx context.Context, m channel.Message) (channel.Message, error)
}

// JournalStore persists personal journal entries.
type JournalStore interface {
	CreateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	GetJournalEntry(ctx context.Context, id string) (journal.Entry, error)
	// ListJournalEntries lists entries by author; empty authorID lists all.
	ListJournalEntries(ctx context.Context, authorID string) ([]journal.Entry, error)
	UpdateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	DeleteJournalEntry(ctx context.Context, id string) error
}

// LogbookStore persists the shared log book.
type LogbookStore interface {
	CreateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	GetLogEntry(ctx context.Context, id string) (journal.Entry, error)
	ListLogEntries(ctx context.Context) ([]journal.Entry, error)
	UpdateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	DeleteLogEntry(ctx context.Context, id string) error
}

// NoticeStore persists announcements.
type NoticeStore interface {
	CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error)
	GetNotice(ctx context.Context, id string) (notice.Notice, error)
	ListNotices(ctx context.Context) ([]notice.Notice, error)
	UpdateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error)
	DeleteNotice(ctx context.Context, id string) error
}

// LedgerStore persists financial records.
type LedgerStore interface {
	CreateLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	// ListLedgerEntries lists entries for a scope; agencyID applies to the
	// agency scope only.
	ListLedgerEntries(ctx context.Context, scope ledger.Scope, agencyID string) ([]ledger.Entry, error)
}

// TodoFilter narrows todo listings. Zero-value fields match everything.
type TodoFilter struct {
	AssigneeID string
	AgencyID   string
	Status     todo.Status
	DueBefore  time.Time
}

// TodoStore persists tracked tasks.
type TodoStore interface {
	CreateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error)
	GetTodo(ctx context.Context, id string) (todo.Todo, error)
	ListTodos(ctx context.Context, f TodoFilter) ([]todo.Todo, error)
	UpdateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error)
}
