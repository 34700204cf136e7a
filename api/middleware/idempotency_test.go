package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key], _ = value.(string)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

const checkoutPath = "/api/v1/checkout"

func checkoutRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, checkoutPath, strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "buyer-1"))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"checkout", http.MethodPost, "/api/v1/checkout", criticalIdempotencyTTL, true},
		{"order status", http.MethodPatch, "/api/v1/orders/123/status", criticalIdempotencyTTL, true},
		{"milestone complete", http.MethodPost, "/api/v1/orders/123/milestones/456/complete", criticalIdempotencyTTL, true},
		{"raise dispute", http.MethodPost, "/api/v1/disputes", criticalIdempotencyTTL, true},
		{"resolve dispute", http.MethodPatch, "/api/v1/admin/disputes/abc", criticalIdempotencyTTL, true},
		{"withdrawal", http.MethodPost, "/api/v1/withdrawals", criticalIdempotencyTTL, true},
		{"process withdrawal", http.MethodPatch, "/api/v1/admin/withdrawals/abc", criticalIdempotencyTTL, true},
		{"review", http.MethodPost, "/api/v1/reviews", defaultIdempotencyTTL, true},
		{"mark read", http.MethodPost, "/api/v1/notifications/abc/read", defaultIdempotencyTTL, true},
		{"raise dispute trailing slash", http.MethodPost, "/api/v1/disputes/", criticalIdempotencyTTL, true},
		{"read all", http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, true},
		{"nested status", http.MethodPatch, "/api/v1/orders/123/extra/status", 0, false},
		{"coupon preview", http.MethodPost, "/api/v1/coupons/apply", 0, false},
		{"read", http.MethodGet, "/api/v1/checkout", 0, false},
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

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(handler).ServeHTTP(resp, checkoutRequest("", `{"foo":"bar"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest("abc", `{"foo":"bar"}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, checkoutRequest("abc", `{"foo":"bar"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if resp.Header().Get(ReplayedHeader) != "" || rec.Header().Get(ReplayedHeader) != "true" {
		t.Fatalf("only the replay should carry %s", ReplayedHeader)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest("xyz", `{"foo":"bar"}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest("xyz", `{"foo":"diff"}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, code)
	}
}

func TestIdempotencyMiddlewareRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)

	var inner *httptest.ResponseRecorder
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A duplicate arriving while the first request is still running.
		inner = httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("duplicate must not reach the handler")
		})).ServeHTTP(inner, checkoutRequest("dup", `{"a":1}`))
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest("dup", `{"a":1}`))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first request to succeed, got %d", resp.Code)
	}
	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409")
	}
}

func TestIdempotencyMiddlewareReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, checkoutRequest("retry", `{}`))
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", first.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected key released after server error, got %v", store.data)
	}

	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, checkoutRequest("retry", `{}`))
	if second.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run the handler again, status=%d calls=%d", second.Code, calls)
	}
}

func TestIdempotencyMiddlewareScopesKeysByUser(t *testing.T) {
	mw := Idempotency(newFakeStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	mw(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest("shared", `{}`))
	other := checkoutRequest("shared", `{}`)
	other = other.WithContext(WithUserID(other.Context(), "buyer-2"))
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("expected distinct users to run independently, calls=%d", calls)
	}
}

func TestIdempotencyMiddlewareReleasesKeyOnPanic(t *testing.T) {
	store := newFakeStore()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger exploded")
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate to the recoverer")
			}
		}()
		Idempotency(store, nil)(handler).ServeHTTP(httptest.NewRecorder(), checkoutRequest("boom", `{}`))
	}()
	if len(store.data) != 0 {
		t.Fatalf("expected key released after panic, got %v", store.data)
	}
}

func TestIdempotencyMiddlewareRejectsOversizedKey(t *testing.T) {
	resp := httptest.NewRecorder()
	Idempotency(newFakeStore(), nil)(okHandler()).ServeHTTP(resp, checkoutRequest(strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
