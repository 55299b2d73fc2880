// Package supabase provides a typed client for the managed backend:
// GoTrue auth, PostgREST row CRUD, and object storage.
package supabase

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config holds client configuration.
type Config struct {
	// ProjectURL is the platform base URL (e.g. https://xxx.supabase.co).
	ProjectURL string

	// AnonKey authenticates unprivileged requests. Row-level security
	// applies on top of it.
	AnonKey string

	// ServiceKey authenticates admin operations that bypass row-level
	// security. Optional.
	ServiceKey string

	// DefaultHeaders are added to every request.
	DefaultHeaders map[string]string

	// Timeout for HTTP requests. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient overrides the transport. Used by tests.
	HTTPClient *http.Client

	// Retry controls retries of idempotent reads. Zero value disables them.
	Retry RetryConfig
}

// User represents a platform auth identity.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud"`
	Role         string         `json:"role"`
	Email        string         `json:"email"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Session represents an auth session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// SignUpRequest for user registration.
type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// FilterOperator for query filters.
type FilterOperator string

const (
	OpEq    FilterOperator = "eq"
	OpNeq   FilterOperator = "neq"
	OpGt    FilterOperator = "gt"
	OpGte   FilterOperator = "gte"
	OpLt    FilterOperator = "lt"
	OpLte   FilterOperator = "lte"
	OpLike  FilterOperator = "like"
	OpILike FilterOperator = "ilike"
	OpIs    FilterOperator = "is"
	OpIn    FilterOperator = "in"
)

// OrderDirection for sorting.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// UploadOptions for file uploads.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// Error represents a platform API error.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Error codes surfaced by PostgREST.
const (
	codeInsufficientPrivilege = "42501"
	codeUndefinedTable        = "42P01"
	codeNoSingleRow           = "PGRST116"
)

// IsPermissionDenied reports whether err is a row-level security or
// privilege failure.
func IsPermissionDenied(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	if perr.Code == codeInsufficientPrivilege || perr.StatusCode == http.StatusForbidden || perr.StatusCode == http.StatusUnauthorized {
		return true
	}
	return strings.Contains(strings.ToLower(perr.Message), "permission")
}

// IsMissingRelation reports whether err indicates a table that does not
// exist, typically a project whose schema has not been provisioned.
func IsMissingRelation(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Code == codeUndefinedTable
}

// IsNotFound reports whether err is a missing-row error. A Single()
// query matching zero rows comes back as 406 with code PGRST116.
func IsNotFound(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	if perr.Code == codeNoSingleRow {
		return true
	}
	return perr.StatusCode == http.StatusNotFound || perr.StatusCode == http.StatusNotAcceptable
}
