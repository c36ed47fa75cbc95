// Package session handles the credential artifact that lets the crawl act
// as an authenticated user: a storage-state document holding the cookies
// exported from a logged-in browser.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AuthCookieName is the session-critical cookie. A state document without
// it cannot authenticate and is rejected before any navigation happens.
const AuthCookieName = "auth_token"

var (
	// ErrMissing means no session artifact exists at the given path.
	ErrMissing = errors.New("session not found")
	// ErrInvalid means the artifact exists but lacks the auth cookie.
	ErrInvalid = errors.New("session missing auth cookie")
)

// Cookie is one cookie descriptor in the storage-state document.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite"`
	Expires  float64 `json:"expires"`
}

// State is the storage-state document: cookie descriptors plus an
// auxiliary origins list that is kept but unused here.
type State struct {
	Cookies []Cookie          `json:"cookies"`
	Origins []json.RawMessage `json:"origins"`
}

// Load reads and decodes a storage-state document.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	return &st, nil
}

// Validate checks that the state carries the session-critical cookie.
func (s *State) Validate() error {
	if !s.HasCookie(AuthCookieName) {
		return ErrInvalid
	}
	return nil
}

// HasCookie reports whether a cookie with the given name is present.
func (s *State) HasCookie(name string) bool {
	for _, c := range s.Cookies {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Save writes the state document, creating parent directories as needed.
// The file is written with owner-only permissions since it holds live
// session credentials.
func (s *State) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if s.Origins == nil {
		s.Origins = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}
