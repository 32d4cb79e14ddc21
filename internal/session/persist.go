package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dvloznov/bankx-client/internal/domain"
)

// ErrNoSession is returned by a Persister when nothing has been saved.
var ErrNoSession = errors.New("no persisted session")

// Snapshot is the persisted form of a session: the token and the user object.
type Snapshot struct {
	Token string           `json:"token"`
	User  *domain.Customer `json:"user,omitempty"`
}

// Persister stores a single session snapshot.
type Persister interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Clear() error
}

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, ErrNoSession
	}
	return *m.snap, nil
}

func (m *MemoryStore) Save(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

// FileStore keeps the snapshot in a JSON file readable only by the owner.
// With a 32-byte key the file content is sealed with AES-GCM.
type FileStore struct {
	path string
	key  []byte
}

// NewFileStore returns a FileStore at path. key may be nil for plaintext.
func NewFileStore(path string, key []byte) (*FileStore, error) {
	if len(key) != 0 && len(key) != 32 {
		return nil, fmt.Errorf("session key must be 32 bytes, got %d", len(key))
	}
	return &FileStore{path: path, key: key}, nil
}

// Path returns the file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSession
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read session file: %w", err)
	}
	if f.key != nil {
		if data, err = open(f.key, data); err != nil {
			return Snapshot{}, fmt.Errorf("decrypt session file: %w", err)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode session file: %w", err)
	}
	if snap.Token == "" {
		return Snapshot{}, ErrNoSession
	}
	return snap, nil
}

func (f *FileStore) Save(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if f.key != nil {
		if data, err = seal(f.key, data); err != nil {
			return fmt.Errorf("encrypt session: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Write to a sibling file and rename so a crash never leaves half a token.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
