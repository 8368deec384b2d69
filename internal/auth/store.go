package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/decentradns/internal/storage"
)

// ErrKeyNotFound is returned for unknown or revoked keys.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is the stored form of an API key. The plaintext key is never kept.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"keyHash"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// KeyStore manages API keys in a single backend key.
type KeyStore struct {
	backend storage.Backend
	mu      sync.Mutex
	now     func() time.Time
}

// NewKeyStore creates a key store on top of backend.
func NewKeyStore(backend storage.Backend) *KeyStore {
	return &KeyStore{backend: backend, now: time.Now}
}

// CreateAPIKey creates a key and returns its plaintext form, which is shown once.
func (s *KeyStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	keys = append(keys, APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   HashAPIKey(key),
		CreatedAt: s.now().UTC(),
	})
	if err := s.save(ctx, keys); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey looks up a plaintext key and records its use.
func (s *KeyStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	if !LooksLikeAPIKey(key) {
		return nil, ErrKeyNotFound
	}
	hash := HashAPIKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].KeyHash != hash {
			continue
		}
		now := s.now().UTC()
		keys[i].LastUsedAt = &now
		// Usage tracking is best effort; a failed write must not reject a valid key.
		_ = s.save(ctx, keys)
		found := keys[i]
		return &found, nil
	}
	return nil, ErrKeyNotFound
}

// ListAPIKeys returns all keys, oldest first.
func (s *KeyStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// RevokeAPIKey removes the key with the given id.
func (s *KeyStore) RevokeAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range keys {
		if keys[i].ID == id {
			keys = append(keys[:i], keys[i+1:]...)
			return s.save(ctx, keys)
		}
	}
	return ErrKeyNotFound
}

func (s *KeyStore) load(ctx context.Context) ([]APIKey, error) {
	data, err := s.backend.Read(ctx, storage.APIKeysKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading api keys: %w", err)
	}
	var keys []APIKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decoding api keys: %w", err)
	}
	return keys, nil
}

func (s *KeyStore) save(ctx context.Context, keys []APIKey) error {
	if keys == nil {
		keys = []APIKey{}
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encoding api keys: %w", err)
	}
	if err := s.backend.Write(ctx, storage.APIKeysKey, data); err != nil {
		return fmt.Errorf("writing api keys: %w", err)
	}
	return nil
}
