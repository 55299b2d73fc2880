// Package httpapi exposes the application over HTTP for the web client.
// Authentication is delegated to the platform: clients present the
// platform-issued access token as a bearer token, and the gateway
// verifies it against the shared JWT secret.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groupdesk/groupdesk/internal/app"
	"github.com/groupdesk/groupdesk/internal/app/domain/access"
	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/services/agencies"
	"github.com/groupdesk/groupdesk/internal/app/services/journal"
	ledgersvc "github.com/groupdesk/groupdesk/internal/app/services/ledger"
	"github.com/groupdesk/groupdesk/internal/app/services/notices"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/internal/config"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// maxAttachmentSize caps uploaded attachment bodies.
const maxAttachmentSize = 10 << 20

// Handler serves the gateway API.
type Handler struct {
	app      *app.Application
	profiles storage.ProfileStore
	cfg      config.Config
	log      *logger.Logger
	router   *mux.Router
}

// New builds the router with all routes and middleware attached.
func New(application *app.Application, profiles storage.ProfileStore, cfg config.Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &Handler{app: application, profiles: profiles, cfg: cfg, log: log}

	r := mux.NewRouter()
	r.Use(requestLogging(log))
	r.Use(cors(cfg.Gateway.Origins()))
	r.Use(rateLimit(cfg.Gateway.RateLimit, cfg.Gateway.RateBurst))

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/").Subrouter()
	api.Use(authenticate(cfg.Platform.JWTSecret, profiles))

	api.HandleFunc("/nav", h.handleNav).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.handleProfile).Methods(http.MethodGet)
	api.HandleFunc("/settings/credentials", h.handleUpdateCredentials).Methods(http.MethodPut)
	api.HandleFunc("/settings/account", h.handleDeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/auth/logout", h.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/chat/group/messages", h.handleChatHistory(channel.KindGroup)).Methods(http.MethodGet)
	api.HandleFunc("/chat/group/messages", h.handleChatPost(channel.KindGroup)).Methods(http.MethodPost)
	api.HandleFunc("/chat/agency/messages", h.handleChatHistory(channel.KindAgency)).Methods(http.MethodGet)
	api.HandleFunc("/chat/agency/messages", h.handleChatPost(channel.KindAgency)).Methods(http.MethodPost)
	api.HandleFunc("/chat/attachments", h.handleChatAttachment).Methods(http.MethodPost)

	api.HandleFunc("/journal", h.handleJournalList).Methods(http.MethodGet)
	api.HandleFunc("/journal", h.handleJournalCreate).Methods(http.MethodPost)
	api.HandleFunc("/journal/{id}", h.handleJournalUpdate).Methods(http.MethodPut)
	api.HandleFunc("/journal/{id}", h.handleJournalDelete).Methods(http.MethodDelete)

	api.HandleFunc("/logbook", h.handleLogbookList).Methods(http.MethodGet)
	api.HandleFunc("/logbook", h.handleLogbookCreate).Methods(http.MethodPost)
	api.HandleFunc("/logbook/{id}", h.handleLogbookUpdate).Methods(http.MethodPut)
	api.HandleFunc("/logbook/{id}", h.handleLogbookDelete).Methods(http.MethodDelete)

	api.HandleFunc("/notices", h.handleNoticesList).Methods(http.MethodGet)
	api.HandleFunc("/notices", h.handleNoticesCreate).Methods(http.MethodPost)
	api.HandleFunc("/notices/{id}", h.handleNoticesUpdate).Methods(http.MethodPut)
	api.HandleFunc("/notices/{id}", h.handleNoticesDelete).Methods(http.MethodDelete)

	api.HandleFunc("/ledger/group", h.handleLedgerBook(ledger.ScopeGroup)).Methods(http.MethodGet)
	api.HandleFunc("/ledger/group", h.handleLedgerRecord(ledger.ScopeGroup)).Methods(http.MethodPost)
	api.HandleFunc("/ledger/agencies/{id}", h.handleLedgerBook(ledger.ScopeAgency)).Methods(http.MethodGet)
	api.HandleFunc("/ledger/agencies/{id}", h.handleLedgerRecord(ledger.ScopeAgency)).Methods(http.MethodPost)

	api.HandleFunc("/todos", h.handleTodosList).Methods(http.MethodGet)
	api.HandleFunc("/todos", h.handleTodosCreate).Methods(http.MethodPost)
	api.HandleFunc("/todos/{id}/status", h.handleTodoToggle).Methods(http.MethodPut)

	api.HandleFunc("/agencies", h.handleAgenciesList).Methods(http.MethodGet)
	api.HandleFunc("/agencies", h.handleAgenciesCreate).Methods(http.MethodPost)

	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, journal.ErrForbidden),
		errors.Is(err, notices.ErrForbidden),
		errors.Is(err, ledgersvc.ErrForbidden),
		errors.Is(err, agencies.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(h.app.State()),
	})
}

// Auth --------------------------------------------------------------------

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	AgencyID string `json:"agency_id"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.app.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.app.Session.SignUp(r.Context(), req.Email, req.Password, req.FullName, profile.Role(req.Role), req.AgencyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"access_token":  id.Session.AccessToken,
		"refresh_token": id.Session.RefreshToken,
		"profile":       id.Profile,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.app.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.app.Session.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  id.Session.AccessToken,
		"refresh_token": id.Session.RefreshToken,
		"profile":       id.Profile,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if h.app.Session != nil {
		h.app.Session.Revoke(r.Context(), TokenFrom(r.Context()))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	if h.app.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.app.Session.UpdateCredentialsFor(r.Context(), TokenFrom(r.Context()), *UserFrom(r.Context()), req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if h.app.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	if err := h.app.Session.DeleteAccountFor(r.Context(), UserFrom(r.Context()).ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigation --------------------------------------------------------------

func (h *Handler) handleNav(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"role":         user.Role,
		"capabilities": access.For(user),
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFrom(r.Context()))
}

// Chat --------------------------------------------------------------------

func (h *Handler) chatAccess(w http.ResponseWriter, r *http.Request, kind channel.Kind) (agencyID string, ok bool) {
	user := UserFrom(r.Context())
	if kind == channel.KindGroup {
		if !access.Allowed(user, access.CapChat) {
			writeError(w, http.StatusForbidden, "chat not permitted")
			return "", false
		}
		return "", true
	}
	if !access.Allowed(user, access.CapAgencyChat) {
		writeError(w, http.StatusForbidden, "agency chat not permitted")
		return "", false
	}
	return user.AgencyID, true
}

func (h *Handler) handleChatHistory(kind channel.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agencyID, ok := h.chatAccess(w, r, kind)
		if !ok {
			return
		}
		msgs, err := h.app.Chat.History(r.Context(), kind, agencyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func (h *Handler) handleChatPost(kind channel.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agencyID, ok := h.chatAccess(w, r, kind)
		if !ok {
			return
		}
		var req struct {
			Content       string `json:"content"`
			AttachmentURL string `json:"attachment_url"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		user := UserFrom(r.Context())
		msg, err := h.app.Chat.Post(r.Context(), kind, agencyID, user.ID, req.Content, req.AttachmentURL)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (h *Handler) handleChatAttachment(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapChat) {
		writeError(w, http.StatusForbidden, "chat not permitted")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAttachmentSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(data) > maxAttachmentSize {
		writeError(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}
	url, err := h.app.Chat.UploadAttachment(r.Context(), user.ID, r.URL.Query().Get("filename"), data, r.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Journal and log book ----------------------------------------------------

type entryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) handleJournalList(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapJournal) {
		writeError(w, http.StatusForbidden, "journal not permitted")
		return
	}
	entries, err := h.app.Journal.ListEntries(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleJournalCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapJournal) {
		writeError(w, http.StatusForbidden, "journal not permitted")
		return
	}
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.app.Journal.CreateEntry(r.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleJournalUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapJournal) {
		writeError(w, http.StatusForbidden, "journal not permitted")
		return
	}
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.app.Journal.UpdateEntry(r.Context(), user.ID, mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleJournalDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapJournal) {
		writeError(w, http.StatusForbidden, "journal not permitted")
		return
	}
	if err := h.app.Journal.DeleteEntry(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogbookList(w http.ResponseWriter, r *http.Request) {
	if !access.Allowed(UserFrom(r.Context()), access.CapLogbook) {
		writeError(w, http.StatusForbidden, "log book not permitted")
		return
	}
	entries, err := h.app.Journal.ListLogEntries(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleLogbookCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapLogbook) {
		writeError(w, http.StatusForbidden, "log book not permitted")
		return
	}
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.app.Journal.CreateLogEntry(r.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleLogbookUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapLogbook) {
		writeError(w, http.StatusForbidden, "log book not permitted")
		return
	}
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.app.Journal.UpdateLogEntry(r.Context(), user.ID, mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleLogbookDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !access.Allowed(user, access.CapLogbook) {
		writeError(w, http.StatusForbidden, "log book not permitted")
		return
	}
	if err := h.app.Journal.DeleteLogEntry(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notices -----------------------------------------------------------------

func (h *Handler) handleNoticesList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Notices.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleNoticesCreate(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.app.Notices.Create(r.Context(), *UserFrom(r.Context()), req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleNoticesUpdate(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.app.Notices.Update(r.Context(), *UserFrom(r.Context()), mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) handleNoticesDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Notices.Delete(r.Context(), *UserFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ledger ------------------------------------------------------------------

func (h *Handler) handleLedgerBook(scope ledger.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agencyID := ""
		if scope == ledger.ScopeAgency {
			agencyID = mux.Vars(r)["id"]
		}
		book, err := h.app.Ledger.Book(r.Context(), *UserFrom(r.Context()), scope, agencyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	}
}

func (h *Handler) handleLedgerRecord(scope ledger.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type        string    `json:"entry_type"`
			Amount      int64     `json:"amount"`
			Description string    `json:"description"`
			Date        time.Time `json:"entry_date"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		entry := ledger.Entry{
			Scope:       scope,
			Type:        ledger.EntryType(req.Type),
			Amount:      req.Amount,
			Description: req.Description,
			Date:        req.Date,
		}
		if scope == ledger.ScopeAgency {
			entry.AgencyID = mux.Vars(r)["id"]
		}
		saved, err := h.app.Ledger.Record(r.Context(), *UserFrom(r.Context()), entry)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// Todos -------------------------------------------------------------------

func (h *Handler) handleTodosList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Todos.List(r.Context(), *UserFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleTodosCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string    `json:"title"`
		AssigneeID string    `json:"assignee_id"`
		DueDate    time.Time `json:"due_date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.app.Todos.Create(r.Context(), *UserFrom(r.Context()), req.Title, req.AssigneeID, req.DueDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleTodoToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.app.Todos.Toggle(r.Context(), *UserFrom(r.Context()), mux.Vars(r)["id"], todo.Status(req.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Agencies ----------------------------------------------------------------

func (h *Handler) handleAgenciesList(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Agencies.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleAgenciesCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.app.Agencies.Create(r.Context(), *UserFrom(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

