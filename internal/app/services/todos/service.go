// Package todos provides tracked tasks with a two-state status and a
// scheduled reminder sweep for tasks coming due.
package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// Notifier receives tasks surfaced by the reminder sweep.
type Notifier interface {
	NotifyDue(ctx context.Context, t todo.Todo)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, t todo.Todo)

func (f NotifierFunc) NotifyDue(ctx context.Context, t todo.Todo) { f(ctx, t) }

// Service exposes task operations.
type Service struct {
	todos    storage.TodoStore
	notifier Notifier
	cron     *cron.Cron
	horizon  time.Duration
	log      *logger.Logger
}

// New creates the todos service. notifier may be nil; the sweep then only
// logs.
func New(todos storage.TodoStore, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("todos")
	}
	return &Service{
		todos:    todos,
		notifier: notifier,
		horizon:  24 * time.Hour,
		log:      log,
	}
}

// Create adds a task.
func (s *Service) Create(ctx context.Context, actor profile.Profile, title string, assigneeID string, dueDate time.Time) (todo.Todo, error) {
	if title == "" {
		return todo.Todo{}, errors.New("title required")
	}
	if assigneeID == "" {
		assigneeID = actor.ID
	}
	t, err := s.todos.CreateTodo(ctx, todo.Todo{
		Title:      title,
		AssigneeID: assigneeID,
		AgencyID:   actor.AgencyID,
		DueDate:    dueDate,
		Status:     todo.StatusPending,
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

// List returns the actor's tasks ordered by due date.
func (s *Service) List(ctx context.Context, actor profile.Profile) ([]todo.Todo, error) {
	return s.todos.ListTodos(ctx, storage.TodoFilter{AssigneeID: actor.ID})
}

// Toggle flips a task between its two states. Toggling to the state a
// task is already in is a no-op, so replayed requests are harmless.
func (s *Service) Toggle(ctx context.Context, actor profile.Profile, id string, to todo.Status) (todo.Todo, error) {
	if !to.Valid() {
		return todo.Todo{}, fmt.Errorf("invalid status %q", to)
	}
	t, err := s.todos.GetTodo(ctx, id)
	if err != nil {
		return todo.Todo{}, err
	}
	if t.AssigneeID != actor.ID && actor.Role != profile.RoleCore {
		return todo.Todo{}, errors.New("not the assignee")
	}
	if t.Status == to {
		return t, nil
	}
	t.Status = to
	return s.todos.UpdateTodo(ctx, t)
}

// StartReminders runs the reminder sweep on the given cron schedule until
// the context is canceled. The horizon controls how far ahead a task may
// be due and still be surfaced.
func (s *Service) StartReminders(ctx context.Context, schedule string, horizon time.Duration) error {
	if horizon > 0 {
		s.horizon = horizon
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := s.SweepDue(ctx); err != nil {
			s.log.WithError(err).Warn("reminder sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	s.log.WithField("schedule", schedule).Info("reminder sweep scheduled")
	return nil
}

// SweepDue surfaces pending tasks due within the horizon, including ones
// already overdue.
func (s *Service) SweepDue(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(s.horizon)
	due, err := s.todos.ListTodos(ctx, storage.TodoFilter{
		Status:    todo.StatusPending,
		DueBefore: cutoff,
	})
	if err != nil {
		return fmt.Errorf("list due todos: %w", err)
	}

	for _, t := range due {
		s.log.WithField("todo", t.ID).WithField("due", t.DueDate.Format(time.RFC3339)).Info("task due")
		if s.notifier != nil {
			s.notifier.NotifyDue(ctx, t)
		}
	}
	return nil
}
