// Package vault is the key-custody boundary. The core treats key
// acquisition as an opaque capability supplied by the host; the
// file-backed provider here is the default host glue.
package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrKeyUnavailable means no 32-byte key could be obtained.
	ErrKeyUnavailable = errors.New("vault key unavailable")
	// ErrVaultUnavailable means the encrypted store could not be opened.
	ErrVaultUnavailable = errors.New("vault unavailable")
)

// KeyProvider yields the 32-byte symmetric key that opens the store.
type KeyProvider interface {
	GetOrCreateKey() ([32]byte, error)
}

// FileKeyProvider persists the key as hex in a file. Malformed key
// material is discarded and regenerated.
type FileKeyProvider struct {
	path string
}

func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{path: path}
}

func (p *FileKeyProvider) GetOrCreateKey() ([32]byte, error) {
	var key [32]byte

	if raw, err := os.ReadFile(p.path); err == nil {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err == nil && len(decoded) == 32 {
			copy(key[:], decoded)
			return key, nil
		}
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("%w: generate key: %v", ErrKeyUnavailable, err)
	}

	if dir := filepath.Dir(p.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return key, fmt.Errorf("%w: create key directory: %v", ErrKeyUnavailable, err)
		}
	}
	if err := os.WriteFile(p.path, []byte(hex.EncodeToString(key[:])), 0600); err != nil {
		return key, fmt.Errorf("%w: persist key: %v", ErrKeyUnavailable, err)
	}

	return key, nil
}

// StaticKeyProvider returns a fixed key, mainly for tests.
type StaticKeyProvider [32]byte

func (p StaticKeyProvider) GetOrCreateKey() ([32]byte, error) {
	return [32]byte(p), nil
}
