package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
)

// SessionState is the persisted credential bundle. Field names match the
// on-disk format used by earlier versions of the tool, so existing state
// files keep working.
type SessionState struct {
	IdentityToken string    `json:"identity_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	AccessKey     string    `json:"pm_access_key,omitempty"`
	RememberToken string    `json:"verified2fa,omitempty"`
	CapturedAt    time.Time `json:"captured_at,omitempty"`
}

type StorageMode string

const (
	StorageFile     StorageMode = "file"
	StorageKeychain StorageMode = "keychain"

	keychainService = "pmctl"
	keychainUser    = "session"
)

// Store persists a single session either to a JSON file or to the system
// keychain. It is the only type that touches the backing store. A corrupt or
// unreadable store is reported as absent, never as an error: re-authenticating
// is always a valid recovery.
type Store struct {
	Path string
	Mode StorageMode
}

func (s *Store) Load() (SessionState, bool) {
	raw, ok := s.read()
	if !ok {
		return SessionState{}, false
	}
	var state SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return SessionState{}, false
	}
	return state, true
}

func (s *Store) Save(state SessionState) error {
	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if s.Mode == StorageKeychain {
		return keyring.Set(keychainService, keychainUser, string(content))
	}
	return s.writeFile(content)
}

func (s *Store) Delete() error {
	if s.Mode == StorageKeychain {
		err := keyring.Delete(keychainService, keychainUser)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) read() ([]byte, bool) {
	if s.Mode == StorageKeychain {
		content, err := keyring.Get(keychainService, keychainUser)
		if err != nil {
			return nil, false
		}
		return []byte(content), true
	}
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, false
	}
	return content, true
}

// writeFile replaces the state file via a temp file and rename so a crash
// mid-write cannot corrupt the previous save.
func (s *Store) writeFile(content []byte) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
