// Package app wires the services together and owns the application
// lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/groupdesk/groupdesk/internal/app/services/agencies"
	"github.com/groupdesk/groupdesk/internal/app/services/chat"
	"github.com/groupdesk/groupdesk/internal/app/services/journal"
	"github.com/groupdesk/groupdesk/internal/app/services/ledger"
	"github.com/groupdesk/groupdesk/internal/app/services/notices"
	"github.com/groupdesk/groupdesk/internal/app/services/session"
	"github.com/groupdesk/groupdesk/internal/app/services/todos"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/internal/app/storage/memory"
	"github.com/groupdesk/groupdesk/internal/cache"
	"github.com/groupdesk/groupdesk/internal/config"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// State is the application lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// Stores aggregates the persistence backends. Nil fields fall back to a
// shared in-memory store.
type Stores struct {
	Profiles storage.ProfileStore
	Agencies storage.AgencyStore
	Channels storage.ChannelStore
	Journal  storage.JournalStore
	Logbook  storage.LogbookStore
	Notices  storage.NoticeStore
	Ledger   storage.LedgerStore
	Todos    storage.TodoStore
}

func (s *Stores) fillDefaults() {
	mem := memory.New()
	if s.Profiles == nil {
		s.Profiles = mem
	}
	if s.Agencies == nil {
		s.Agencies = mem
	}
	if s.Channels == nil {
		s.Channels = mem
	}
	if s.Journal == nil {
		s.Journal = mem
	}
	if s.Logbook == nil {
		s.Logbook = mem
	}
	if s.Notices == nil {
		s.Notices = mem
	}
	if s.Ledger == nil {
		s.Ledger = mem
	}
	if s.Todos == nil {
		s.Todos = mem
	}
}

// Options configures a new Application.
type Options struct {
	Config config.Config
	Stores Stores
	Auth   session.AuthAPI       // nil disables session operations
	Tokens session.TokenStore    // nil keeps sessions in memory
	Feed   chat.Feed             // nil disables live chat updates
	Upload chat.Uploader         // nil disables attachments
	Names  cache.Cache           // nil uses an in-process cache
	Notify todos.Notifier        // nil logs due tasks only
	Log    *logger.Logger
}

// Application aggregates the services behind one lifecycle.
type Application struct {
	Session  *session.Service
	Chat     *chat.Service
	Journal  *journal.Service
	Notices  *notices.Service
	Ledger   *ledger.Service
	Todos    *todos.Service
	Agencies *agencies.Service

	cfg config.Config
	log *logger.Logger

	mu      sync.RWMutex
	state   State
	lastErr error
	cancel  context.CancelFunc
}

// New builds an application in the uninitialized state.
func New(opts Options) *Application {
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}
	opts.Stores.fillDefaults()

	var sessionSvc *session.Service
	if opts.Auth != nil {
		sessionSvc = session.New(opts.Auth, opts.Stores.Profiles, opts.Tokens, log.WithField("component", "session"))
	}

	return &Application{
		Session:  sessionSvc,
		Chat:     chat.New(opts.Stores.Channels, opts.Stores.Profiles, opts.Names, opts.Feed, opts.Upload, log.WithField("component", "chat")),
		Journal:  journal.New(opts.Stores.Journal, opts.Stores.Logbook, log.WithField("component", "journal")),
		Notices:  notices.New(opts.Stores.Notices, log.WithField("component", "notices")),
		Ledger:   ledger.New(opts.Stores.Ledger, log.WithField("component", "ledger")),
		Todos:    todos.New(opts.Stores.Todos, opts.Notify, log.WithField("component", "todos")),
		Agencies: agencies.New(opts.Stores.Agencies, log.WithField("component", "agencies")),
		cfg:      opts.Config,
		log:      log,
		state:    StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (a *Application) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Err returns the error that moved the application to the failed state.
func (a *Application) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

func (a *Application) setState(s State, err error) {
	a.mu.Lock()
	a.state = s
	a.lastErr = err
	a.mu.Unlock()
}

// Init moves the application through loading to ready: a persisted
// session is restored and the reminder sweep starts. Init on a ready
// application is a no-op; a failed application may retry.
func (a *Application) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateReady || a.state == StateLoading {
		a.mu.Unlock()
		return nil
	}
	a.state = StateLoading
	a.lastErr = nil
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.mu.Unlock()

	if a.Session != nil {
		if err := a.Session.Init(ctx); err != nil {
			a.setState(StateFailed, err)
			return fmt.Errorf("restore session: %w", err)
		}
	}

	if err := a.Todos.StartReminders(runCtx, a.cfg.Reminder.Schedule, a.cfg.Reminder.Horizon); err != nil {
		a.setState(StateFailed, err)
		return err
	}

	a.setState(StateReady, nil)
	a.log.Info("application ready")
	return nil
}

// Close stops background work and returns the application to the
// uninitialized state.
func (a *Application) Close() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.state = StateUninitialized
	a.lastErr = nil
	a.mu.Unlock()
}
