// Package tokenstore persists the auth token across runs and reports
// changes made to it by other atlas processes.
//
// The token lives under a single fixed key in ~/.config/atlas/session.toml.
package tokenstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	defaultPath          = "~/.config/atlas/session.toml"
	defaultWatchInterval = time.Second
)

type file struct {
	Token string `toml:"token"`
}

// Change describes an external modification of the stored token.
type Change struct {
	Old string
	New string
}

// Removed reports whether the token was deleted.
func (c Change) Removed() bool {
	return c.New == ""
}

// Store is a file-backed token store. The zero value is not usable; call New.
type Store struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	last string // value most recently read or written by this process
}

// DefaultPath returns the default session file location.
func DefaultPath() string {
	return defaultPath
}

// New returns a Store for path (empty uses the default location).
func New(path string, log zerolog.Logger) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: resolved, log: log}, nil
}

// Path returns the resolved file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token, or "" when none is stored.
func (s *Store) Load() (string, error) {
	token, err := s.read()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.last = token
	s.mu.Unlock()
	return token, nil
}

// Save persists token, creating directories as needed.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(token); err != nil {
		return err
	}
	s.last = token
	return nil
}

// Clear removes the stored token. Clearing an absent token is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Errorf("remove session file: %w", err)
	}
	s.last = ""
	return nil
}

// Watch polls the session file every interval and calls onChange when
// another process has written or removed the token. It blocks until ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context, interval time.Duration, onChange func(Change)) {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if change, ok := s.poll(); ok {
			s.log.Info().Bool("removed", change.Removed()).Msg("session token changed externally")
			onChange(change)
		}
	}
}

func (s *Store) poll() (Change, bool) {
	current, err := s.read()
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("read session file")
		return Change{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current == s.last {
		return Change{}, false
	}
	change := Change{Old: s.last, New: current}
	s.last = current
	return change, true
}

func (s *Store) read() (string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errors.Errorf("open session file: %w", err)
	}
	defer func() { _ = f.Close() }()

	bytes, err := io.ReadAll(f)
	if err != nil {
		return "", errors.Errorf("read session file: %w", err)
	}
	var parsed file
	if err := toml.Unmarshal(bytes, &parsed); err != nil {
		return "", errors.Errorf("parse session file: %w", err)
	}
	return strings.TrimSpace(parsed.Token), nil
}

func (s *Store) write(token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Errorf("create session dir: %w", err)
	}
	bytes, err := toml.Marshal(file{Token: token})
	if err != nil {
		return errors.Errorf("marshal session: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return errors.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("close session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("chmod session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("replace session file: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
