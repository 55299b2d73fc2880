// Package session manages the authenticated identity: sign-up, sign-in,
// credential updates, account deletion, and session persistence across
// restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/internal/platform/supabase"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// ErrNotSignedIn is returned when an operation requires an authenticated
// identity and there is none.
var ErrNotSignedIn = errors.New("not signed in")

// signOutTimeout bounds how long a sign-out waits for the platform before
// local state is cleared anyway.
const signOutTimeout = 3 * time.Second

// AuthAPI is the subset of the platform auth surface the service uses.
type AuthAPI interface {
	SignUp(ctx context.Context, req supabase.SignUpRequest) (*supabase.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshToken(ctx context.Context, refreshToken string) (*supabase.Session, error)
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	UpdateUser(ctx context.Context, accessToken string, updates map[string]any) (*supabase.User, error)
	SignOut(ctx context.Context, accessToken string) error
	AdminDeleteUser(ctx context.Context, userID string) error
}

// Identity is the signed-in user: the platform session plus the
// application profile.
type Identity struct {
	Session supabase.Session
	Profile profile.Profile
}

// Service owns the current identity.
type Service struct {
	auth     AuthAPI
	profiles storage.ProfileStore
	tokens   TokenStore
	log      *logger.Logger

	mu      sync.RWMutex
	current *Identity
}

// New creates the session service. tokens may be nil, in which case
// sessions are not persisted across restarts.
func New(auth AuthAPI, profiles storage.ProfileStore, tokens TokenStore, log *logger.Logger) *Service {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Service{
		auth:     auth,
		profiles: profiles,
		tokens:   tokens,
		log:      log,
	}
}

// Init restores a persisted session if one exists. A stale access token
// is refreshed; an unrecoverable session is discarded rather than
// surfaced as an error.
func (s *Service) Init(ctx context.Context) error {
	sess, err := s.tokens.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return fmt.Errorf("load persisted session: %w", err)
	}

	user, err := s.auth.GetUser(ctx, sess.AccessToken)
	if err != nil {
		if sess.RefreshToken == "" {
			s.tokens.Clear()
			return nil
		}
		refreshed, rerr := s.auth.RefreshToken(ctx, sess.RefreshToken)
		if rerr != nil {
			s.log.WithError(rerr).Warn("persisted session could not be refreshed, discarding")
			s.tokens.Clear()
			return nil
		}
		sess = *refreshed
		user, err = s.auth.GetUser(ctx, sess.AccessToken)
		if err != nil {
			s.tokens.Clear()
			return nil
		}
	}

	p, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		s.log.WithError(err).Warn("signed-in identity has no profile, discarding session")
		s.tokens.Clear()
		return nil
	}

	s.setCurrent(&Identity{Session: sess, Profile: p})
	s.tokens.Save(sess)
	s.log.WithField("user_id", user.ID).Info("session restored")
	return nil
}

// SignUp creates the auth identity first and the profile row second. The
// two steps are sequential; a profile failure leaves the auth identity in
// place and is reported to the caller.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string, role profile.Role, agencyID string) (*Identity, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if role == profile.RoleAgency && agencyID == "" {
		return nil, errors.New("agency role requires an agency")
	}

	sess, err := s.auth.SignUp(ctx, supabase.SignUpRequest{
		Email:    email,
		Password: password,
		Data:     map[string]any{"full_name": fullName},
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if sess.User == nil {
		return nil, errors.New("sign up returned no user")
	}

	p, err := s.profiles.CreateProfile(ctx, profile.Profile{
		ID:       sess.User.ID,
		FullName: fullName,
		Email:    email,
		Role:     role,
		AgencyID: agencyID,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	id := &Identity{Session: *sess, Profile: p}
	s.setCurrent(id)
	s.tokens.Save(*sess)
	s.log.WithField("user_id", p.ID).Info("signed up")
	return id, nil
}

// SignIn authenticates and loads the profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if sess.User == nil {
		return nil, errors.New("sign in returned no user")
	}

	p, err := s.profiles.GetProfile(ctx, sess.User.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	id := &Identity{Session: *sess, Profile: p}
	s.setCurrent(id)
	s.tokens.Save(*sess)
	s.log.WithField("user_id", p.ID).Info("signed in")
	return id, nil
}

// SignOut clears the local identity. The platform revocation is bounded:
// if it does not complete within signOutTimeout the local state is
// cleared anyway and the revocation finishes in the background.
func (s *Service) SignOut(ctx context.Context) {
	s.mu.Lock()
	id := s.current
	s.current = nil
	s.mu.Unlock()

	s.tokens.Clear()
	if id == nil {
		return
	}
	s.revoke(ctx, id.Session.AccessToken)
}

// Revoke invalidates the given access token on the platform, with the
// same bounded wait as SignOut. If the token belongs to the locally held
// identity, that identity is cleared too.
func (s *Service) Revoke(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}

	s.mu.Lock()
	owned := s.current != nil && s.current.Session.AccessToken == accessToken
	if owned {
		s.current = nil
	}
	s.mu.Unlock()
	if owned {
		s.tokens.Clear()
	}

	s.revoke(ctx, accessToken)
}

func (s *Service) revoke(ctx context.Context, accessToken string) {
	done := make(chan error, 1)
	go func() {
		done <- s.auth.SignOut(context.WithoutCancel(ctx), accessToken)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.WithError(err).Warn("platform sign-out failed")
		}
	case <-time.After(signOutTimeout):
		s.log.Warn("platform sign-out still in flight, local state cleared")
	case <-ctx.Done():
		s.log.Warn("sign-out canceled, local state cleared")
	}
}

// Current returns the signed-in identity, or nil when signed out.
func (s *Service) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Session.AccessToken
}

// UpdateCredentials changes the email and/or password of the signed-in
// identity. Empty fields are left unchanged.
func (s *Service) UpdateCredentials(ctx context.Context, email, password string) error {
	id := s.Current()
	if id == nil {
		return ErrNotSignedIn
	}
	return s.UpdateCredentialsFor(ctx, id.Session.AccessToken, id.Profile, email, password)
}

// UpdateCredentialsFor changes the email and/or password of the identity
// the access token belongs to. The token decides which identity changes,
// so concurrent callers only ever touch their own account.
func (s *Service) UpdateCredentialsFor(ctx context.Context, accessToken string, p profile.Profile, email, password string) error {
	if accessToken == "" {
		return ErrNotSignedIn
	}

	updates := make(map[string]any)
	if email != "" {
		updates["email"] = email
	}
	if password != "" {
		updates["password"] = password
	}
	if len(updates) == 0 {
		return errors.New("nothing to update")
	}

	if _, err := s.auth.UpdateUser(ctx, accessToken, updates); err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}

	if email != "" {
		p.Email = email
		updated, err := s.profiles.UpdateProfile(ctx, p)
		if err != nil {
			return fmt.Errorf("update profile email: %w", err)
		}
		s.mu.Lock()
		if s.current != nil && s.current.Profile.ID == updated.ID {
			s.current.Profile = updated
		}
		s.mu.Unlock()
	}
	return nil
}

// DeleteAccount removes the signed-in identity's account.
func (s *Service) DeleteAccount(ctx context.Context) error {
	id := s.Current()
	if id == nil {
		return ErrNotSignedIn
	}
	return s.DeleteAccountFor(ctx, id.Profile.ID)
}

// DeleteAccountFor removes the profile row, then the auth identity of the
// given user. The steps run sequentially; a later failure does not roll
// back an earlier step. The locally held identity is cleared only when it
// is the one being deleted.
func (s *Service) DeleteAccountFor(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotSignedIn
	}

	if err := s.profiles.DeleteProfile(ctx, userID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.auth.AdminDeleteUser(ctx, userID); err != nil {
		s.log.WithError(err).Warn("auth identity deletion failed, profile already removed")
		return fmt.Errorf("delete auth identity: %w", err)
	}

	s.mu.Lock()
	owned := s.current != nil && s.current.Profile.ID == userID
	if owned {
		s.current = nil
	}
	s.mu.Unlock()
	if owned {
		s.tokens.Clear()
	}
	s.log.WithField("user_id", userID).Info("account deleted")
	return nil
}

func (s *Service) setCurrent(id *Identity) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}
