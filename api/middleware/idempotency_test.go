package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.Nop()
}

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "cvx:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func idempotencyHandler(calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls atomic.Int64
	handler := Idempotency(store, testLogger())(idempotencyHandler(&calls))

	// A read endpoint never requires an idempotency key.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, got %d", calls.Load())
	}
}

func TestIdempotencyRequiresKeyOnMutations(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls atomic.Int64
	handler := Idempotency(store, testLogger())(idempotencyHandler(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", rec.Code)
	}
	if calls.Load() != 0 {
		t.Fatalf("handler must not run without a key, ran %d times", calls.Load())
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls atomic.Int64
	handler := Idempotency(store, testLogger())(idempotencyHandler(&calls))

	body := `{"plan_id":"abc"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first request, got %d", first.Code)
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected replayed content type, got %q", ct)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run exactly once, ran %d times", calls.Load())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls atomic.Int64
	handler := Idempotency(store, testLogger())(idempotencyHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/payments", strings.NewReader(`{"amount":"711.50"}`))
	first.Header.Set("Idempotency-Key", "pay-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-1/payments", strings.NewReader(`{"amount":"1.00"}`))
	second.Header.Set("Idempotency-Key", "pay-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on body mismatch, got %d", rec.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run exactly once, ran %d times", calls.Load())
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls atomic.Int64
	handler := Idempotency(store, testLogger())(idempotencyHandler(&calls))

	send := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/proposals", strings.NewReader(`{}`))
		req = req.WithContext(WithUserID(req.Context(), userID))
		req.Header.Set("Idempotency-Key", "shared-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("user-a"); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for first user, got %d", rec.Code)
	}
	if rec := send("user-b"); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for second user, got %d", rec.Code)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected both users to reach the handler, ran %d times", calls.Load())
	}
}
