// Package auth implements API-key authentication for the stream endpoints.
// Keys are stored hashed; the plaintext exists only in the issuance response.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"
)

// APIKey is the issuance record returned to the caller. Key carries the
// plaintext exactly once; only its hash is retained.
type APIKey struct {
	Key       string
	ClientID  string
	CreatedAt time.Time
}

type keyRecord struct {
	clientID  string
	active    bool
	createdAt time.Time
}

type Manager struct {
	mu   sync.RWMutex
	keys map[string]keyRecord // keyed by hex(sha256(plaintext))
}

func NewManager() *Manager {
	return &Manager{
		keys: make(map[string]keyRecord),
	}
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey issues a new key with 32 bytes of entropy for a client.
func (m *Manager) GenerateAPIKey(clientID string) (APIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return APIKey{}, err
	}
	plaintext := hex.EncodeToString(raw)
	now := time.Now()

	m.mu.Lock()
	m.keys[hashKey(plaintext)] = keyRecord{clientID: clientID, active: true, createdAt: now}
	m.mu.Unlock()

	return APIKey{Key: plaintext, ClientID: clientID, CreatedAt: now}, nil
}

// RevokeKey deactivates a key. Revocation is permanent; issue a new key
// instead of re-activating.
func (m *Manager) RevokeKey(plaintext string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.keys[hashKey(plaintext)]; ok {
		rec.active = false
		m.keys[hashKey(plaintext)] = rec
	}
}

// ValidateKey reports whether the key is known and active.
func (m *Manager) ValidateKey(plaintext string) bool {
	m.mu.RLock()
	rec, ok := m.keys[hashKey(plaintext)]
	m.mu.RUnlock()
	return ok && rec.active
}

// GetClientID resolves the client that owns an active key.
func (m *Manager) GetClientID(plaintext string) (string, error) {
	m.mu.RLock()
	rec, ok := m.keys[hashKey(plaintext)]
	m.mu.RUnlock()

	if !ok || !rec.active {
		return "", errors.New("invalid API key")
	}
	return rec.clientID, nil
}

type contextKey struct{}

// ClientIDFrom returns the client ID the middleware attached to the request
// context, if any.
func ClientIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// Middleware rejects requests without a valid X-API-Key header and attaches
// the resolved client ID to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			http.Error(w, "API key required", http.StatusUnauthorized)
			return
		}

		clientID, err := m.GetClientID(key)
		if err != nil {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
