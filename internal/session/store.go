// Package session persists browser-derived Jira session cookies and knows
// how to mint fresh ones through an interactive browser login.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const cookieFileName = "session_cookies.json"

// Cookie is one captured browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// State is the on-disk session file.
type State struct {
	SavedAt time.Time `json:"saved_at"`
	JiraURL string    `json:"jira_url"`
	Cookies []Cookie  `json:"cookies"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore creates a store rooted in the given directory.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, cookieFileName)}
}

// Path returns the session file location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted session. A missing file is not an error condition
// for token users, so it is reported distinctly via os.IsNotExist.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	return &st, nil
}

// Save writes the session with owner-only permissions.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes the session file. Missing file counts as success.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CookieHeader serializes the stored cookies into a Cookie header value.
// The boolean is false when no usable session exists.
func (s *Store) CookieHeader() (string, bool) {
	st, err := s.Load()
	if err != nil || len(st.Cookies) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), true
}
