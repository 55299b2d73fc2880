// Package journal provides the personal journal and the shared log book.
// Journal entries are private to their author; log book entries are
// visible to every core member. In both, only the author may edit or
// delete an entry.
package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// ErrForbidden is returned when a user mutates an entry they do not own.
var ErrForbidden = errors.New("not the author")

// Service exposes journal and log book operations.
type Service struct {
	journal storage.JournalStore
	logbook storage.LogbookStore
	log     *logger.Logger
}

// New creates the journal service.
func New(journalStore storage.JournalStore, logbookStore storage.LogbookStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("journal")
	}
	return &Service{journal: journalStore, logbook: logbookStore, log: log}
}

func validateEntry(title, content string) error {
	if title == "" && content == "" {
		return errors.New("empty entry")
	}
	return nil
}

// CreateEntry adds a journal entry for the author.
func (s *Service) CreateEntry(ctx context.Context, authorID, title, content string) (journal.Entry, error) {
	if err := validateEntry(title, content); err != nil {
		return journal.Entry{}, err
	}
	e, err := s.journal.CreateJournalEntry(ctx, journal.Entry{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
	})
	if err != nil {
		return journal.Entry{}, fmt.Errorf("create journal entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the author's own entries, newest first.
func (s *Service) ListEntries(ctx context.Context, authorID string) ([]journal.Entry, error) {
	return s.journal.ListJournalEntries(ctx, authorID)
}

// UpdateEntry edits an entry. Only the author may.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID, title, content string) (journal.Entry, error) {
	existing, err := s.journal.GetJournalEntry(ctx, entryID)
	if err != nil {
		return journal.Entry{}, err
	}
	if !existing.CanMutate(userID) {
		return journal.Entry{}, ErrForbidden
	}
	existing.Title = title
	existing.Content = content
	return s.journal.UpdateJournalEntry(ctx, existing)
}

// DeleteEntry removes an entry. Only the author may.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	existing, err := s.journal.GetJournalEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !existing.CanMutate(userID) {
		return ErrForbidden
	}
	return s.journal.DeleteJournalEntry(ctx, entryID)
}

// CreateLogEntry adds a log book entry.
func (s *Service) CreateLogEntry(ctx context.Context, authorID, title, content string) (journal.Entry, error) {
	if err := validateEntry(title, content); err != nil {
		return journal.Entry{}, err
	}
	e, err := s.logbook.CreateLogEntry(ctx, journal.Entry{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
	})
	if err != nil {
		return journal.Entry{}, fmt.Errorf("create log entry: %w", err)
	}
	return e, nil
}

// ListLogEntries returns every log book entry, newest first.
func (s *Service) ListLogEntries(ctx context.Context) ([]journal.Entry, error) {
	return s.logbook.ListLogEntries(ctx)
}

// UpdateLogEntry edits a log book entry. Only the author may.
func (s *Service) UpdateLogEntry(ctx context.Context, userID, entryID, title, content string) (journal.Entry, error) {
	existing, err := s.logbook.GetLogEntry(ctx, entryID)
	if err != nil {
		return journal.Entry{}, err
	}
	if !existing.CanMutate(userID) {
		return journal.Entry{}, ErrForbidden
	}
	existing.Title = title
	existing.Content = content
	return s.logbook.UpdateLogEntry(ctx, existing)
}

// DeleteLogEntry removes a log book entry. Only the author may.
func (s *Service) DeleteLogEntry(ctx context.Context, userID, entryID string) error {
	existing, err := s.logbook.GetLogEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if !existing.CanMutate(userID) {
		return ErrForbidden
	}
	return s.logbook.DeleteLogEntry(ctx, entryID)
}
