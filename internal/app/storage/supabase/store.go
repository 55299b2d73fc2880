// Package supabase implements the storage interfaces on top of the
// platform's PostgREST row API. Row-level security is enforced by the
// platform; the store runs queries under the caller's access token when
// one is attached to the context.
package supabase

import (
	"context"
	"fmt"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	platform "github.com/groupdesk/groupdesk/internal/platform/supabase"
)

const (
	tableProfiles = "profiles"
	tableAgencies = "agencies"
	tableChannels = "channels"
	tableMessages = "messages"
	tableJournal  = "journal_entries"
	tableLogbook  = "logbook_entries"
	tableNotices  = "notices"
	tableLedger   = "ledger_entries"
	tableTodos    = "todos"
)

type tokenKey struct{}

// WithAccessToken returns a context carrying the caller's platform access
// token. Queries run under it so the platform's row policies apply.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Store implements every storage interface over the platform row API.
type Store struct {
	client *platform.Client
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.AgencyStore = (*Store)(nil)
var _ storage.ChannelStore = (*Store)(nil)
var _ storage.JournalStore = (*Store)(nil)
var _ storage.LogbookStore = (*Store)(nil)
var _ storage.NoticeStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.TodoStore = (*Store)(nil)

// New creates a platform-backed store.
func New(client *platform.Client) *Store {
	return &Store{client: client}
}

func (s *Store) query(ctx context.Context, table string) *platform.QueryBuilder {
	q := s.client.Database().From(table)
	if token := accessToken(ctx); token != "" {
		q = q.WithToken(token)
	}
	return q
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if platform.IsNotFound(err) {
		return storage.ErrNotFound
	}
	return err
}

// insertOne inserts a record and decodes the single returned row.
func insertOne[T any](ctx context.Context, q *platform.QueryBuilder, record T) (T, error) {
	var rows []T
	if err := q.Insert(record).ExecuteInto(ctx, &rows); err != nil {
		var zero T
		return zero, mapErr(err)
	}
	if len(rows) == 0 {
		var zero T
		return zero, fmt.Errorf("insert returned no rows")
	}
	return rows[0], nil
}

// updateOne patches rows matching id and decodes the single returned row.
func updateOne[T any](ctx context.Context, q *platform.QueryBuilder, id string, record T) (T, error) {
	var rows []T
	if err := q.Update(record).Eq("id", id).ExecuteInto(ctx, &rows); err != nil {
		var zero T
		return zero, mapErr(err)
	}
	if len(rows) == 0 {
		var zero T
		return zero, storage.ErrNotFound
	}
	return rows[0], nil
}

// deleteOne deletes rows matching id, failing with ErrNotFound when none
// matched.
func deleteOne(ctx context.Context, q *platform.QueryBuilder, id string) error {
	var rows []map[string]any
	if err := q.Delete().Eq("id", id).ExecuteInto(ctx, &rows); err != nil {
		return mapErr(err)
	}
	if len(rows) == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	return insertOne(ctx, s.query(ctx, tableProfiles), p)
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	err := s.query(ctx, tableProfiles).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &p)
	return p, mapErr(err)
}

func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	var out []profile.Profile
	err := s.query(ctx, tableProfiles).Select("*").Order("full_name").ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	return updateOne(ctx, s.query(ctx, tableProfiles), p.ID, p)
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	return deleteOne(ctx, s.query(ctx, tableProfiles), id)
}

// AgencyStore implementation --------------------------------------------------

func (s *Store) CreateAgency(ctx context.Context, a agency.Agency) (agency.Agency, error) {
	return insertOne(ctx, s.query(ctx, tableAgencies), a)
}

func (s *Store) GetAgency(ctx context.Context, id string) (agency.Agency, error) {
	var a agency.Agency
	err := s.query(ctx, tableAgencies).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &a)
	return a, mapErr(err)
}

func (s *Store) ListAgencies(ctx context.Context) ([]agency.Agency, error) {
	var out []agency.Agency
	err := s.query(ctx, tableAgencies).Select("*").Order("name").ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

// ChannelStore implementation -------------------------------------------------

func (s *Store) FindChannel(ctx context.Context, kind channel.Kind, agencyID string) (channel.Channel, error) {
	q := s.query(ctx, tableChannels).Select("*").Eq("kind", string(kind))
	if agencyID != "" {
		q = q.Eq("agency_id", agencyID)
	}
	var ch channel.Channel
	err := q.Single().ExecuteInto(ctx, &ch)
	return ch, mapErr(err)
}

func (s *Store) CreateChannel(ctx context.Context, ch channel.Channel) (channel.Channel, error) {
	return insertOne(ctx, s.query(ctx, tableChannels), ch)
}

func (s *Store) ListMessages(ctx context.Context, channelID string) ([]channel.Message, error) {
	var out []channel.Message
	err := s.query(ctx, tableMessages).Select("*").
		Eq("channel_id", channelID).
		Order("created_at").
		ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) CreateMessage(ctx context.Context, m channel.Message) (channel.Message, error) {
	// The platform assigns the authoritative ID and timestamp.
	m.ID = ""
	return insertOne(ctx, s.query(ctx, tableMessages), m)
}

// JournalStore implementation -------------------------------------------------

func (s *Store) CreateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return insertOne(ctx, s.query(ctx, tableJournal), e)
}

func (s *Store) GetJournalEntry(ctx context.Context, id string) (journal.Entry, error) {
	var e journal.Entry
	err := s.query(ctx, tableJournal).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &e)
	return e, mapErr(err)
}

func (s *Store) ListJournalEntries(ctx context.Context, authorID string) ([]journal.Entry, error) {
	q := s.query(ctx, tableJournal).Select("*").Order("created_at", platform.OrderDesc)
	if authorID != "" {
		q = q.Eq("author_id", authorID)
	}
	var out []journal.Entry
	err := q.ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) UpdateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return updateOne(ctx, s.query(ctx, tableJournal), e.ID, e)
}

func (s *Store) DeleteJournalEntry(ctx context.Context, id string) error {
	return deleteOne(ctx, s.query(ctx, tableJournal), id)
}

// LogbookStore implementation -------------------------------------------------

func (s *Store) CreateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return insertOne(ctx, s.query(ctx, tableLogbook), e)
}

func (s *Store) GetLogEntry(ctx context.Context, id string) (journal.Entry, error) {
	var e journal.Entry
	err := s.query(ctx, tableLogbook).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &e)
	return e, mapErr(err)
}

func (s *Store) ListLogEntries(ctx context.Context) ([]journal.Entry, error) {
	var out []journal.Entry
	err := s.query(ctx, tableLogbook).Select("*").Order("created_at", platform.OrderDesc).ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) UpdateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return updateOne(ctx, s.query(ctx, tableLogbook), e.ID, e)
}

func (s *Store) DeleteLogEntry(ctx context.Context, id string) error {
	return deleteOne(ctx, s.query(ctx, tableLogbook), id)
}

// NoticeStore implementation --------------------------------------------------

func (s *Store) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	return insertOne(ctx, s.query(ctx, tableNotices), n)
}

func (s *Store) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	var n notice.Notice
	err := s.query(ctx, tableNotices).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &n)
	return n, mapErr(err)
}

func (s *Store) ListNotices(ctx context.Context) ([]notice.Notice, error) {
	var out []notice.Notice
	err := s.query(ctx, tableNotices).Select("*").Order("created_at", platform.OrderDesc).ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) UpdateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	return updateOne(ctx, s.query(ctx, tableNotices), n.ID, n)
}

func (s *Store) DeleteNotice(ctx context.Context, id string) error {
	return deleteOne(ctx, s.query(ctx, tableNotices), id)
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	return insertOne(ctx, s.query(ctx, tableLedger), e)
}

func (s *Store) ListLedgerEntries(ctx context.Context, scope ledger.Scope, agencyID string) ([]ledger.Entry, error) {
	q := s.query(ctx, tableLedger).Select("*").Eq("scope", string(scope))
	if scope == ledger.ScopeAgency && agencyID != "" {
		q = q.Eq("agency_id", agencyID)
	}
	var out []ledger.Entry
	err := q.Order("entry_date").ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

// TodoStore implementation ----------------------------------------------------

func (s *Store) CreateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	return insertOne(ctx, s.query(ctx, tableTodos), t)
}

func (s *Store) GetTodo(ctx context.Context, id string) (todo.Todo, error) {
	var t todo.Todo
	err := s.query(ctx, tableTodos).Select("*").Eq("id", id).Single().ExecuteInto(ctx, &t)
	return t, mapErr(err)
}

func (s *Store) ListTodos(ctx context.Context, f storage.TodoFilter) ([]todo.Todo, error) {
	q := s.query(ctx, tableTodos).Select("*")
	if f.AssigneeID != "" {
		q = q.Eq("assignee_id", f.AssigneeID)
	}
	if f.AgencyID != "" {
		q = q.Eq("agency_id", f.AgencyID)
	}
	if f.Status != "" {
		q = q.Eq("status", string(f.Status))
	}
	if !f.DueBefore.IsZero() {
		q = q.Lt("due_date", f.DueBefore.UTC().Format("2006-01-02T15:04:05Z07:00"))
	}
	var out []todo.Todo
	err := q.Order("due_date").ExecuteInto(ctx, &out)
	return out, mapErr(err)
}

func (s *Store) UpdateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	return updateOne(ctx, s.query(ctx, tableTodos), t.ID, t)
}
