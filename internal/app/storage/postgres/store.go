// Package postgres implements the storage interfaces against a directly
// connected PostgreSQL database. It serves deployments that talk to the
// platform's database without going through the row API.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/storage"
)

// Store implements every storage interface over database/sql.
type Store struct {
	db *sql.DB
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.AgencyStore = (*Store)(nil)
var _ storage.ChannelStore = (*Store)(nil)
var _ storage.JournalStore = (*Store)(nil)
var _ storage.LogbookStore = (*Store)(nil)
var _ storage.NoticeStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.TodoStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, email, role, agency_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.FullName, p.Email, string(p.Role), nullable(p.AgencyID), p.CreatedAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, role, COALESCE(agency_id, ''), created_at
		FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, email, role, COALESCE(agency_id, ''), created_at
		FROM profiles ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = $2, email = $3, role = $4, agency_id = $5
		WHERE id = $1`,
		p.ID, p.FullName, p.Email, string(p.Role), nullable(p.AgencyID))
	if err != nil {
		return profile.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.Profile{}, storage.ErrNotFound
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (profile.Profile, error) {
	var p profile.Profile
	var role string
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &role, &p.AgencyID, &p.CreatedAt)
	if err != nil {
		return profile.Profile{}, scanErr(err)
	}
	p.Role = profile.Role(role)
	return p, nil
}

// AgencyStore implementation --------------------------------------------------

func (s *Store) CreateAgency(ctx context.Context, a agency.Agency) (agency.Agency, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO agencies (name, created_at) VALUES ($1, $2) RETURNING id`,
		a.Name, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		return agency.Agency{}, fmt.Errorf("insert agency: %w", err)
	}
	return a, nil
}

func (s *Store) GetAgency(ctx context.Context, id string) (agency.Agency, error) {
	var a agency.Agency
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM agencies WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		return agency.Agency{}, scanErr(err)
	}
	return a, nil
}

func (s *Store) ListAgencies(ctx context.Context) ([]agency.Agency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM agencies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	var out []agency.Agency
	for rows.Next() {
		var a agency.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ChannelStore implementation -------------------------------------------------

func (s *Store) FindChannel(ctx context.Context, kind channel.Kind, agencyID string) (channel.Channel, error) {
	var (
		ch   channel.Channel
		kstr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, COALESCE(agency_id, ''), created_at
		FROM channels WHERE kind = $1 AND COALESCE(agency_id, '') = $2`,
		string(kind), agencyID).
		Scan(&ch.ID, &ch.Name, &kstr, &ch.AgencyID, &ch.CreatedAt)
	if err != nil {
		return channel.Channel{}, scanErr(err)
	}
	ch.Kind = channel.Kind(kstr)
	return ch, nil
}

func (s *Store) CreateChannel(ctx context.Context, ch channel.Channel) (channel.Channel, error) {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO channels (name, kind, agency_id, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		ch.Name, string(ch.Kind), nullable(ch.AgencyID), ch.CreatedAt).Scan(&ch.ID)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("insert channel: %w", err)
	}
	return ch, nil
}

func (s *Store) ListMessages(ctx context.Context, channelID string) ([]channel.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, sender_id, content, COALESCE(attachment_url, ''), created_at
		FROM messages WHERE channel_id = $1 ORDER BY created_at`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []channel.Message
	for rows.Next() {
		var m channel.Message
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.SenderID, &m.Content, &m.AttachmentURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, m channel.Message) (channel.Message, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Pending = false
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (channel_id, sender_id, content, attachment_url, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.ChannelID, m.SenderID, m.Content, nullable(m.AttachmentURL), m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return channel.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// Journal and log book share one schema in two tables -------------------------

func (s *Store) createEntry(ctx context.Context, table string, e journal.Entry) (journal.Entry, error) {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO `+table+` (author_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.AuthorID, e.Title, e.Content, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("insert into %s: %w", table, err)
	}
	return e, nil
}

func (s *Store) getEntry(ctx context.Context, table, id string) (journal.Entry, error) {
	var e journal.Entry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, content, created_at, updated_at
		FROM `+table+` WHERE id = $1`, id).
		Scan(&e.ID, &e.AuthorID, &e.Title, &e.Content, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return journal.Entry{}, scanErr(err)
	}
	return e, nil
}

func (s *Store) listEntries(ctx context.Context, table, authorID string) ([]journal.Entry, error) {
	query := `
		SELECT id, author_id, title, content, created_at, updated_at
		FROM ` + table
	args := []any{}
	if authorID != "" {
		query += ` WHERE author_id = $1`
		args = append(args, authorID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		var e journal.Entry
		if err := rows.Scan(&e.ID, &e.AuthorID, &e.Title, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) updateEntry(ctx context.Context, table string, e journal.Entry) (journal.Entry, error) {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE `+table+` SET title = $2, content = $3, updated_at = $4 WHERE id = $1`,
		e.ID, e.Title, e.Content, e.UpdatedAt)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("update %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return journal.Entry{}, storage.ErrNotFound
	}
	return s.getEntry(ctx, table, e.ID)
}

func (s *Store) deleteEntry(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return s.createEntry(ctx, "journal_entries", e)
}

func (s *Store) GetJournalEntry(ctx context.Context, id string) (journal.Entry, error) {
	return s.getEntry(ctx, "journal_entries", id)
}

func (s *Store) ListJournalEntries(ctx context.Context, authorID string) ([]journal.Entry, error) {
	return s.listEntries(ctx, "journal_entries", authorID)
}

func (s *Store) UpdateJournalEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return s.updateEntry(ctx, "journal_entries", e)
}

func (s *Store) DeleteJournalEntry(ctx context.Context, id string) error {
	return s.deleteEntry(ctx, "journal_entries", id)
}

func (s *Store) CreateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return s.createEntry(ctx, "logbook_entries", e)
}

func (s *Store) GetLogEntry(ctx context.Context, id string) (journal.Entry, error) {
	return s.getEntry(ctx, "logbook_entries", id)
}

func (s *Store) ListLogEntries(ctx context.Context) ([]journal.Entry, error) {
	return s.listEntries(ctx, "logbook_entries", "")
}

func (s *Store) UpdateLogEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	return s.updateEntry(ctx, "logbook_entries", e)
}

func (s *Store) DeleteLogEntry(ctx context.Context, id string) error {
	return s.deleteEntry(ctx, "logbook_entries", id)
}

// NoticeStore implementation --------------------------------------------------

func (s *Store) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notices (author_id, title, content, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		n.AuthorID, n.Title, n.Content, n.CreatedAt).Scan(&n.ID)
	if err != nil {
		return notice.Notice{}, fmt.Errorf("insert notice: %w", err)
	}
	return n, nil
}

func (s *Store) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	var n notice.Notice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, content, created_at FROM notices WHERE id = $1`, id).
		Scan(&n.ID, &n.AuthorID, &n.Title, &n.Content, &n.CreatedAt)
	if err != nil {
		return notice.Notice{}, scanErr(err)
	}
	return n, nil
}

func (s *Store) ListNotices(ctx context.Context) ([]notice.Notice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, title, content, created_at
		FROM notices ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var out []notice.Notice
	for rows.Next() {
		var n notice.Notice
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notices SET title = $2, content = $3 WHERE id = $1`,
		n.ID, n.Title, n.Content)
	if err != nil {
		return notice.Notice{}, fmt.Errorf("update notice: %w", err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return notice.Notice{}, storage.ErrNotFound
	}
	return s.GetNotice(ctx, n.ID)
}

func (s *Store) DeleteNotice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateLedgerEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (scope, agency_id, entry_type, amount, description, entry_date, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		string(e.Scope), nullable(e.AgencyID), string(e.Type), e.Amount,
		e.Description, e.Date, e.AuthorID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return e, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, scope ledger.Scope, agencyID string) ([]ledger.Entry, error) {
	query := `
		SELECT id, scope, COALESCE(agency_id, ''), entry_type, amount, description, entry_date, author_id, created_at
		FROM ledger_entries WHERE scope = $1`
	args := []any{string(scope)}
	if scope == ledger.ScopeAgency && agencyID != "" {
		query += ` AND agency_id = $2`
		args = append(args, agencyID)
	}
	query += ` ORDER BY entry_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e     ledger.Entry
			scp   string
			etype string
		)
		if err := rows.Scan(&e.ID, &scp, &e.AgencyID, &etype, &e.Amount, &e.Description, &e.Date, &e.AuthorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Scope = ledger.Scope(scp)
		e.Type = ledger.EntryType(etype)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TodoStore implementation ----------------------------------------------------

func (s *Store) CreateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = todo.StatusPending
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (title, assignee_id, agency_id, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.Title, t.AssigneeID, nullable(t.AgencyID), t.DueDate, string(t.Status), t.CreatedAt).Scan(&t.ID)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

func (s *Store) GetTodo(ctx context.Context, id string) (todo.Todo, error) {
	var (
		t      todo.Todo
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, assignee_id, COALESCE(agency_id, ''), due_date, status, created_at
		FROM todos WHERE id = $1`, id).
		Scan(&t.ID, &t.Title, &t.AssigneeID, &t.AgencyID, &t.DueDate, &status, &t.CreatedAt)
	if err != nil {
		return todo.Todo{}, scanErr(err)
	}
	t.Status = todo.Status(status)
	return t, nil
}

func (s *Store) ListTodos(ctx context.Context, f storage.TodoFilter) ([]todo.Todo, error) {
	query := `
		SELECT id, title, assignee_id, COALESCE(agency_id, ''), due_date, status, created_at
		FROM todos WHERE 1=1`
	args := []any{}
	if f.AssigneeID != "" {
		args = append(args, f.AssigneeID)
		query += fmt.Sprintf(" AND assignee_id = $%d", len(args))
	}
	if f.AgencyID != "" {
		args = append(args, f.AgencyID)
		query += fmt.Sprintf(" AND agency_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !f.DueBefore.IsZero() {
		args = append(args, f.DueBefore)
		query += fmt.Sprintf(" AND due_date < $%d", len(args))
	}
	query += ` ORDER BY due_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []todo.Todo
	for rows.Next() {
		var (
			t      todo.Todo
			status string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.AgencyID, &t.DueDate, &status, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Status = todo.Status(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE todos SET title = $2, assignee_id = $3, agency_id = $4, due_date = $5, status = $6
		WHERE id = $1`,
		t.ID, t.Title, t.AssigneeID, nullable(t.AgencyID), t.DueDate, string(t.Status))
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return todo.Todo{}, storage.ErrNotFound
	}
	return s.GetTodo(ctx, t.ID)
}
