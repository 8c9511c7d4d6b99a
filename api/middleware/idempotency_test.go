package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func idempotentPost(t *testing.T, h http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotentRequiresKey(t *testing.T) {
	called := false
	h := Idempotent(newMemoryStore(), MoneyIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := idempotentPost(t, h, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	rec = idempotentPost(t, h, strings.Repeat("k", maxKeyLen+1), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotentReplaysFinishedResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotent(store, MoneyIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_number":"ORD-1"}`))
	}))

	first := idempotentPost(t, h, "abc", `{"items":[]}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	second := idempotentPost(t, h, "abc", `{"items":[]}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"order_number":"ORD-1"}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		if strings.HasSuffix(key, ":abc") {
			assert.Equal(t, MoneyIdempotencyTTL, ttl)
		}
	}
}

func TestIdempotentRejectsDifferentBody(t *testing.T) {
	h := Idempotent(newMemoryStore(), StandardIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	idempotentPost(t, h, "xyz", `{"a":1}`)
	rec := idempotentPost(t, h, "xyz", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotentRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemoryStore()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotent(store, StandardIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a retry arriving while the first request is still running
		inner = idempotentPost(t, h, "dup", `{}`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := idempotentPost(t, h, "dup", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, inner))
}

func TestIdempotentReleasesKeyAfterServerError(t *testing.T) {
	calls := 0
	h := Idempotent(newMemoryStore(), MoneyIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	assert.Equal(t, http.StatusServiceUnavailable, idempotentPost(t, h, "retry", `{}`).Code)
	assert.Equal(t, http.StatusCreated, idempotentPost(t, h, "retry", `{}`).Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotentKeysAreScopedPerUser(t *testing.T) {
	calls := 0
	h := Idempotent(newMemoryStore(), MoneyIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	idempotentPost(t, h, "shared", `{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req = req.WithContext(WithUserID(req.Context(), "user-2"))
	req.Header.Set(IdempotencyHeader, "shared")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}
