package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Key is the fixed record key the credential is stored under.
const Key = "n8n_config"

type Credential struct {
	BaseURL string `json:"url"`
	APIKey  string `json:"apiKey"`
}

type State int

const (
	Unconfigured State = iota
	Configured
)

func (s State) String() string {
	if s == Configured {
		return "configured"
	}
	return "unconfigured"
}

// ValidationError reports credential fields left blank at save time.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required: " + strings.Join(e.Fields, ", ")
}

// Backend persists raw session records. Implementations are scoped to a
// single session.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Store struct {
	backend Backend

	mu   sync.RWMutex
	cred *Credential
}

func New(b Backend) *Store {
	if b == nil {
		b = NewMemoryBackend()
	}
	return &Store{backend: b}
}

func (c Credential) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "apiKey")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Save validates and persists the credential, moving the store to
// Configured. A failed save leaves the previous state untouched.
func (s *Store) Save(ctx context.Context, c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Put(ctx, Key, b); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.cred = &c
	return nil
}

// Load restores the credential saved earlier in this session. A record that
// does not decode to a valid credential counts as absent.
func (s *Store) Load(ctx context.Context) (Credential, bool, error) {
	b, ok, err := s.backend.Get(ctx, Key)
	if err != nil {
		return Credential{}, false, fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	if !ok {
		return Credential{}, false, nil
	}
	var c Credential
	if err := json.Unmarshal(b, &c); err != nil || c.Validate() != nil {
		return Credential{}, false, nil
	}
	s.cred = &c
	return c, true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.cred = nil
	return nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return Unconfigured
	}
	return Configured
}

// Credential returns a copy of the current credential.
func (s *Store) Credential() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return Credential{}, false
	}
	return *s.cred, true
}
