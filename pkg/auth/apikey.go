package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyPrefix       = "smk_"
	KeyRandomLength = 32 // bytes of random data
	MinKeyLength    = 24

	// PBKDF2 parameters of DeriveSecret
	SecretIterations = 100000
	SecretSize       = 32
)

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrDuplicateKey  = errors.New("API key already registered")
)

// GenerateAPIKey returns a new random key string.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, KeyRandomLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// DeriveSecret stretches passphrase into an HMAC secret for NewAPIKeyStore
// with PBKDF2-SHA256. Stores built from the same passphrase and salt hash
// keys identically.
func DeriveSecret(passphrase, salt string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), SecretIterations, SecretSize, sha256.New)
}

type apiKey struct {
	name string
	role string
	hash string
}

// APIKeyStore holds the API keys the server accepts. Only HMAC hashes of the
// keys are kept in memory.
type APIKeyStore struct {
	hmacSecret []byte
	mu         sync.RWMutex
	keys       map[string]apiKey // hash -> key
}

// NewAPIKeyStore creates a store hashing with secret, or with a random secret
// when secret is empty.
func NewAPIKeyStore(secret []byte) (*APIKeyStore, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate HMAC secret: %w", err)
		}
	}
	return &APIKeyStore{
		hmacSecret: secret,
		keys:       make(map[string]apiKey),
	}, nil
}

// Add registers key under name with role.
func (s *APIKeyStore) Add(name, key, role string) error {
	if name == "" {
		return ErrEmptySubject
	}
	if len(key) < MinKeyLength {
		return fmt.Errorf("%w: key for %q shorter than %d characters", ErrInvalidAPIKey, name, MinKeyLength)
	}
	if !ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	hash := s.hashAPIKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[hash]; ok {
		return ErrDuplicateKey
	}
	s.keys[hash] = apiKey{name: name, role: role, hash: hash}
	return nil
}

// Len returns the number of registered keys.
func (s *APIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// ValidateToken accepts a registered API key. Implements TokenValidator.
func (s *APIKeyStore) ValidateToken(_ context.Context, token string) (*Claims, error) {
	if len(token) < MinKeyLength {
		return nil, ErrInvalidAPIKey
	}

	hash := s.hashAPIKey(token)
	s.mu.RLock()
	key, ok := s.keys[hash]
	s.mu.RUnlock()
	if !ok || subtle.ConstantTimeCompare([]byte(hash), []byte(key.hash)) != 1 {
		return nil, ErrInvalidAPIKey
	}
	return &Claims{Subject: key.name, Role: key.role}, nil
}

func (s *APIKeyStore) Name() string {
	return "api-key"
}

// hashAPIKey creates an HMAC-SHA256 hash of the key using the store's secret.
func (s *APIKeyStore) hashAPIKey(key string) string {
	mac := hmac.New(sha256.New, s.hmacSecret)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
