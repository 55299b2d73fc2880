// Package notices provides announcements. Everyone reads them; only core
// members create, edit, or delete them.
package notices

import (
	"context"
	"errors"
	"fmt"

	"github.com/groupdesk/groupdesk/internal/app/domain/notice"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// ErrForbidden is returned when a non-core member mutates a notice.
var ErrForbidden = errors.New("core role required")

// Service exposes notice operations.
type Service struct {
	notices storage.NoticeStore
	log     *logger.Logger
}

// New creates the notices service.
func New(notices storage.NoticeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notices")
	}
	return &Service{notices: notices, log: log}
}

// List returns every notice, newest first. Any signed-in member may read.
func (s *Service) List(ctx context.Context) ([]notice.Notice, error) {
	return s.notices.ListNotices(ctx)
}

// Create publishes a notice. Core only.
func (s *Service) Create(ctx context.Context, author profile.Profile, title, content string) (notice.Notice, error) {
	if author.Role != profile.RoleCore {
		return notice.Notice{}, ErrForbidden
	}
	if title == "" {
		return notice.Notice{}, errors.New("title required")
	}
	n, err := s.notices.CreateNotice(ctx, notice.Notice{
		AuthorID: author.ID,
		Title:    title,
		Content:  content,
	})
	if err != nil {
		return notice.Notice{}, fmt.Errorf("create notice: %w", err)
	}
	s.log.WithField("notice", n.ID).Info("notice published")
	return n, nil
}

// Update edits a notice. Core only.
func (s *Service) Update(ctx context.Context, actor profile.Profile, id, title, content string) (notice.Notice, error) {
	if actor.Role != profile.RoleCore {
		return notice.Notice{}, ErrForbidden
	}
	existing, err := s.notices.GetNotice(ctx, id)
	if err != nil {
		return notice.Notice{}, err
	}
	existing.Title = title
	existing.Content = content
	return s.notices.UpdateNotice(ctx, existing)
}

// Delete removes a notice. Core only.
func (s *Service) Delete(ctx context.Context, actor profile.Profile, id string) error {
	if actor.Role != profile.RoleCore {
		return ErrForbidden
	}
	return s.notices.DeleteNotice(ctx, id)
}
