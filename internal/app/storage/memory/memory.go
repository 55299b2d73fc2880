// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/storage"
)

// Store is an in-memory implementation of every storage interface.
type Store struct {
	mu             sync.RWMutex
	nextID         int64
	profiles       map[string]profile.Profile
	agencies       map[string]agency.Agency
	channels       map[string]channel.Channel
	messages       map[string][]channel.Message
	journalEntries map[string]journal.Entry
	logEntries     map[string]journal.Entry
	notices        map[string]notice.Notice
	ledgerEntries  []ledger.Entry
	todos          map[string]todo.Todo
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.AgencyStore = (*Store)(nil)
var _ storage.ChannelStore = (*Store)(nil)
var _ storage.JournalStore = (*Store)(nil)
var _ storage.LogbookStore = (*Store)(nil)
var _ storage.NoticeStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.TodoStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		profiles:       make(map[string]profile.Profile),
		agencies:       make(map[string]agency.Agency),
		channels:       make(map[string]channel.Channel),
		messages:       make(map[string][]channel.Message),
		journalEntries: make(map[string]journal.Entry),
		logEntries:     make(map[string]journal.Entry),
		notices:        make(map[string]notice.Notice),
		todos:          make(map[string]todo.Todo),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.profiles[p.ID]; exists {
		return profile.Profile{}, fmt.Errorf("profile %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		return profile.Profile{}, storage.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.profiles, id)
	return nil
}

// AgencyStore implementation --------------------------------------------------

func (s *Store) CreateAgency(_ context.Context, a agency.Agency) (agency.Agency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.agencies[a.ID] = a
	return a, nil
}

func (s *Store) GetAgency(_ context.Context, id string) (agency.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agencies[id]
	if !ok {
		return agency.Agency{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAgencies(_ context.Context) ([]agency.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agency.Agency, 0, len(s.agencies))
	for _, a := range s.agencies {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ChannelStore implementation -------------------------------------------------

func (s *Store) FindChannel(_ context.Context, kind channel.Kind, agencyID string) (channel.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.channels {
		if ch.Kind == kind && ch.AgencyID == agencyID {
			return ch, nil
		}
	}
	return channel.Channel{}, storage.ErrNotFound
}

func (s *Store) CreateChannel(_ context.Context, ch channel.Channel) (channel.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.ID == "" {
		ch.ID = s.nextIDLocked()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	s.channels[ch.ID] = ch
	return ch, nil
}

func (s *Store) ListMessages(_ context.Context, channelID string) ([]channel.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[channelID]
	out := make([]channel.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateMessage(_ context.Context, m channel.Message) (channel.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[m.ChannelID]; !ok {
		return channel.Message{}, storage.ErrNotFound
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Pending = false
	s.messages[m.ChannelID] = append(s.messages[m.ChannelID], m)
	return m, nil
}

// JournalStore implementation -------------------------------------------------

func (s *Store) CreateJournalEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	s.journalEntries[e.ID] = e
	return e, nil
}

func (s *Store) GetJournalEntry(_ context.Context, id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.journalEntries[id]
	if !ok {
		return journal.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListJournalEntries(_ context.Context, authorID string) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]journal.Entry, 0)
	for _, e := range s.journalEntries {
		if authorID == "" || e.AuthorID == authorID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) UpdateJournalEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.journalEntries[e.ID]
	if !ok {
		return journal.Entry{}, storage.ErrNotFound
	}
	e.AuthorID = existing.AuthorID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.journalEntries[e.ID] = e
	return e, nil
}

func (s *Store) DeleteJournalEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.journalEntries[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.journalEntries, id)
	return nil
}

// LogbookStore implementation -------------------------------------------------

func (s *Store) CreateLogEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = e.CreatedAt
	s.logEntries[e.ID] = e
	return e, nil
}

func (s *Store) GetLogEntry(_ context.Context, id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.logEntries[id]
	if !ok {
		return journal.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListLogEntries(_ context.Context) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]journal.Entry, 0, len(s.logEntries))
	for _, e := range s.logEntries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) UpdateLogEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.logEntries[e.ID]
	if !ok {
		return journal.Entry{}, storage.ErrNotFound
	}
	e.AuthorID = existing.AuthorID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	s.logEntries[e.ID] = e
	return e, nil
}

func (s *Store) DeleteLogEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logEntries[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.logEntries, id)
	return nil
}

// NoticeStore implementation --------------------------------------------------

func (s *Store) CreateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.notices[n.ID] = n
	return n, nil
}

func (s *Store) GetNotice(_ context.Context, id string) (notice.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notices[id]
	if !ok {
		return notice.Notice{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *Store) ListNotices(_ context.Context) ([]notice.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]notice.Notice, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notices[n.ID]
	if !ok {
		return notice.Notice{}, storage.ErrNotFound
	}
	n.AuthorID = existing.AuthorID
	n.CreatedAt = existing.CreatedAt
	s.notices[n.ID] = n
	return n, nil
}

func (s *Store) DeleteNotice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notices[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.notices, id)
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateLedgerEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.ledgerEntries = append(s.ledgerEntries, e)
	return e, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, scope ledger.Scope, agencyID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Entry, 0)
	for _, e := range s.ledgerEntries {
		if e.Scope != scope {
			continue
		}
		if scope == ledger.ScopeAgency && agencyID != "" && e.AgencyID != agencyID {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// TodoStore implementation ----------------------------------------------------

func (s *Store) CreateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = todo.StatusPending
	}
	s.todos[t.ID] = t
	return t, nil
}

func (s *Store) GetTodo(_ context.Context, id string) (todo.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok {
		return todo.Todo{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTodos(_ context.Context, f storage.TodoFilter) ([]todo.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]todo.Todo, 0)
	for _, t := range s.todos {
		if f.AssigneeID != "" && t.AssigneeID != f.AssigneeID {
			continue
		}
		if f.AgencyID != "" && t.AgencyID != f.AgencyID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.DueBefore.IsZero() && !t.DueDate.Before(f.DueBefore) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) UpdateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.todos[t.ID]
	if !ok {
		return todo.Todo{}, storage.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	s.todos[t.ID] = t
	return t, nil
}

func sortEntries(entries []journal.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
}
