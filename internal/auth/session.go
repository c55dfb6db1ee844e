// Package auth stores browser cookie sessions for the map service. A saved
// session carries consent and sign-in cookies so searches are not
// interrupted by the consent wall.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used in the OS keyring
const KeyringService = "leadharvest"

const manifestKey = "_manifest"

// ErrSessionNotFound is returned when no session has the requested name
var ErrSessionNotFound = errors.New("session not found")

// Cookie is a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Expired reports whether the cookie has a past expiry
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires > 0 && now.After(time.Unix(int64(c.Expires), 0))
}

// SessionData is a named set of cookies
type SessionData struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store saves sessions in the OS keyring, or as 0600 files in dir when no
// keyring is reachable (containers, CI).
type Store struct {
	dir string

	once     sync.Once
	useFiles bool
}

// NewStore creates a store whose file fallback lives in dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewFileStore creates a store that never touches the keyring
func NewFileStore(dir string) *Store {
	s := &Store{dir: dir, useFiles: true}
	s.once.Do(func() {})
	return s
}

func (s *Store) files() bool {
	s.once.Do(func() {
		if os.Getenv("CI") != "" || os.Getenv("CODESPACES") != "" {
			s.useFiles = true
			return
		}
		probe := "_probe_"
		if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
			s.useFiles = true
			return
		}
		_ = keyring.Delete(KeyringService, probe)
	})
	return s.useFiles
}

func (s *Store) path(name string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+".json"), nil
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, "_") {
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}

// Save stores session, replacing any session with the same name
func (s *Store) Save(session *SessionData) error {
	if err := validName(session.Name); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if s.files() {
		path, err := s.path(session.Name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, session.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return s.updateManifest(session.Name, true)
}

// Load returns the named session. Expired sessions are reported as errors.
func (s *Store) Load(name string) (*SessionData, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var data []byte
	if s.files() {
		path, err := s.path(name)
		if err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
	} else {
		raw, err := keyring.Get(KeyringService, name)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
		data = []byte(raw)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session %q expired at %s", name, session.ExpiresAt.Format(time.RFC3339))
	}
	return &session, nil
}

// Delete removes the named session
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if s.files() {
		path, err := s.path(name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.updateManifest(name, false)
}

// List returns the names of all saved sessions, sorted
func (s *Store) List() ([]string, error) {
	if s.files() {
		entries, err := os.ReadDir(s.dir)
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		if err != nil {
			return nil, err
		}
		names := []string{}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
				names = append(names, strings.TrimSuffix(e.Name(), ".json"))
			}
		}
		sort.Strings(names)
		return names, nil
	}

	raw, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// the keyring cannot enumerate entries, so names are tracked separately
func (s *Store) updateManifest(name string, add bool) error {
	names, _ := s.List()

	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if add {
		kept = append(kept, name)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

// ParseCookieHeader turns "a=1; b=2" into cookies scoped to domain
func ParseCookieHeader(header, domain string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}

// EarliestExpiry returns the first cookie expiry, or zero when none expire
func EarliestExpiry(cookies []Cookie) time.Time {
	var earliest time.Time
	for _, c := range cookies {
		if c.Expires <= 0 {
			continue
		}
		t := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest
}
