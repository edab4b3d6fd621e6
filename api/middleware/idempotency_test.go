package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"import create", http.MethodPost, "/api/v1/imports", criticalIdempotencyTTL, true},
		{"import rollback", http.MethodPost, "/api/v1/imports/123/rollback", criticalIdempotencyTTL, true},
		{"media presign", http.MethodPost, "/api/v1/media/presign", defaultIdempotencyTTL, true},
		{"product create", http.MethodPost, "/api/v1/products", defaultIdempotencyTTL, true},
		{"constraint create", http.MethodPost, "/api/v1/products/abc/constraints", defaultIdempotencyTTL, true},
		{"non idempotent", http.MethodPost, "/api/v1/auth/login", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

// Mounts the middleware the way the app router does, with r.Use inside a
// route group, so enforcement happens before chi resolves the leaf route.
func TestIdempotencyEnforcedThroughNestedRouter(t *testing.T) {
	store := newFakeStore()
	handlerCalled := false

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, _ *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusCreated)
			})
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"csv_media_id":"abc"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatal("handler should not run without idempotency key")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"csv_media_id":"abc"}`))
	req.Header.Set("Idempotency-Key", "key-nested")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 with idempotency key got %d", resp.Code)
	}
	if !handlerCalled {
		t.Fatal("expected handler to run with idempotency key")
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"foo":"bar"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"job-1"}}`))
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"csv_media_id":"abc"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)

		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "job-1") {
			t.Fatalf("attempt %d: unexpected body %s", i, resp.Body.String())
		}
	}

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareRejectsBodyMismatch(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"csv_media_id":"abc"}`))
	first.Header.Set("Idempotency-Key", "key-2")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(`{"csv_media_id":"other"}`))
	second.Header.Set("Idempotency-Key", "key-2")
	resp = httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if !handlerCalled {
		t.Fatal("expected handler to run")
	}
	if len(store.data) != 0 {
		t.Fatalf("expected no records, got %d", len(store.data))
	}
}
