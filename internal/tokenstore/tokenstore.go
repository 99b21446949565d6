package tokenstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// tokenFile is the fixed key of the single persisted value: the session
// token. It survives process restart until explicit logout or an
// unauthorized response.
const tokenFile = "session_token"

// Store persists the session token under a state directory. Both the
// explicit login/logout path and the global unauthorized handler write
// through here; last write wins.
type Store struct {
	mu  sync.Mutex
	dir string
}

func New(stateDir string) *Store {
	return &Store{dir: stateDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, tokenFile)
}

// Load returns the persisted token, or "" when none is stored.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the persisted token. Written to a temp file first, then
// renamed, so a crash mid-write cannot leave a truncated token behind.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

// Clear removes the persisted token. Clearing an already-empty store is
// not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
