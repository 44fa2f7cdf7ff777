package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{
		data: map[string]string{},
		ttls: map[string]time.Duration{},
	}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "gs:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func idempotentHandler(store *memoryIdempotencyStore, calls *int) http.Handler {
	return Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"data":{"call":%d}}`, *calls)))
	}))
}

func checkoutRequestWith(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequestWith("key-1", `{"credits":50}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequestWith("key-1", `{"credits":50}`))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequestWith("key-1", `{"credits":50}`))
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequestWith("key-1", `{"credits":25}`))
	require.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, 1, calls)
	require.Contains(t, second.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotency_MissingKeyRejected(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequestWith("", `{"credits":50}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, calls)
}

func TestIdempotency_DistinctKeysExecuteSeparately(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequestWith("key-1", `{"credits":50}`))
	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequestWith("key-2", `{"credits":50}`))
	require.Equal(t, 2, calls)
}

func TestIdempotency_UncoveredRoutePassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-payment", strings.NewReader(`{"orderId":"ord_1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, 1, calls)
	require.Empty(t, store.data)
}

// Mounts the middleware inside a nested route group the way the server
// router does, where the route pattern is not yet resolved when the
// middleware runs.
func TestIdempotency_EngagesInsideNestedRouter(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0

	root := chi.NewRouter()
	root.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Post("/checkout", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"data":{"call":%d}}`, calls)))
		})
	})

	first := httptest.NewRecorder()
	root.ServeHTTP(first, checkoutRequestWith("key-1", `{"credits":50}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)
	require.Len(t, store.data, 1)

	second := httptest.NewRecorder()
	root.ServeHTTP(second, checkoutRequestWith("key-1", `{"credits":50}`))
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, first.Body.String(), second.Body.String())
}

func TestIdempotency_CheckoutGetsLongTTL(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := idempotentHandler(store, &calls)

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequestWith("key-1", `{"credits":50}`))
	require.Len(t, store.ttls, 1)
	for _, ttl := range store.ttls {
		require.Equal(t, criticalIdempotencyTTL, ttl)
	}
}
