package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential is what survives between runs.
type Credential struct {
	Token   string    `yaml:"token"`
	UserID  int       `yaml:"user_id"`
	SavedAt time.Time `yaml:"saved_at"`
}

func (c Credential) Empty() bool { return c.Token == "" }

// ErrCorruptCredential is returned by Load when the stored credential cannot be decoded.
var ErrCorruptCredential = errors.New("corrupt credential")

// CredentialStore persists the session credential.
type CredentialStore interface {
	Load() (Credential, error)
	Save(Credential) error
	Clear() error
}

// MemoryStore keeps the credential for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	cred Credential
}

func (m *MemoryStore) Load() (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred, nil
}

func (m *MemoryStore) Save(c Credential) error {
	m.mu.Lock()
	m.cred = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Credential{})
}

// FileStore keeps the credential in a YAML file readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (Credential, error) {
	var c Credential
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Credential{}, fmt.Errorf("%w: %s: %v", ErrCorruptCredential, f.Path, err)
	}
	return c, nil
}

func (f FileStore) Save(c Credential) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
