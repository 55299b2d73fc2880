package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/groupdesk/groupdesk/internal/platform/supabase"
)

// ErrNoSession is returned by Load when nothing is persisted.
var ErrNoSession = errors.New("no persisted session")

// TokenStore persists the platform session across restarts.
type TokenStore interface {
	Load() (supabase.Session, error)
	Save(sess supabase.Session) error
	Clear() error
}

// MemoryTokenStore keeps the session in process memory only.
type MemoryTokenStore struct {
	mu   sync.Mutex
	sess *supabase.Session
}

var _ TokenStore = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load() (supabase.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return supabase.Session{}, ErrNoSession
	}
	return *m.sess, nil
}

func (m *MemoryTokenStore) Save(sess supabase.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &sess
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

// FileTokenStore persists the session as a JSON file with owner-only
// permissions.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

var _ TokenStore = (*FileTokenStore)(nil)

// NewFileTokenStore persists sessions at the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Load() (supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return supabase.Session{}, ErrNoSession
	}
	if err != nil {
		return supabase.Session{}, fmt.Errorf("read session file: %w", err)
	}

	var sess supabase.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return supabase.Session{}, fmt.Errorf("decode session file: %w", err)
	}
	if sess.AccessToken == "" {
		return supabase.Session{}, ErrNoSession
	}
	return sess, nil
}

func (f *FileTokenStore) Save(sess supabase.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
