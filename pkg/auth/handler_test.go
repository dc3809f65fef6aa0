package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateKey(t *testing.T) {
	m := NewManager()

	key, err := m.GenerateAPIKey("client-1")
	require.NoError(t, err)
	assert.Len(t, key.Key, 64)
	assert.True(t, m.ValidateKey(key.Key))

	clientID, err := m.GetClientID(key.Key)
	require.NoError(t, err)
	assert.Equal(t, "client-1", clientID)
}

func TestValidateUnknownKey(t *testing.T) {
	m := NewManager()
	assert.False(t, m.ValidateKey("deadbeef"))

	_, err := m.GetClientID("deadbeef")
	assert.Error(t, err)
}

func TestRevokeKey(t *testing.T) {
	m := NewManager()
	key, err := m.GenerateAPIKey("client-1")
	require.NoError(t, err)

	m.RevokeKey(key.Key)
	assert.False(t, m.ValidateKey(key.Key))

	_, err = m.GetClientID(key.Key)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := NewManager()
	key, err := m.GenerateAPIKey("client-1")
	require.NoError(t, err)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", "bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key.Key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMiddlewareAttachesClientID(t *testing.T) {
	m := NewManager()
	key, err := m.GenerateAPIKey("client-7")
	require.NoError(t, err)

	var got string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClientIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", key.Key)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "client-7", got)
}

func TestPlaintextNotStored(t *testing.T) {
	m := NewManager()
	key, err := m.GenerateAPIKey("client-1")
	require.NoError(t, err)

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, storedRaw := m.keys[key.Key]
	assert.False(t, storedRaw, "only the key hash may be retained")
}
