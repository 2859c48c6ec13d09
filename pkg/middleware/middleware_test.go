package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient("redis://"+mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err := store.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "lock"))
	_, err = store.Get(ctx, "lock")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, store.Ping(ctx))
}

func TestIdempotencyMiddleware(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	h := IdempotencyMiddleware(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"acknowledged":true}`))
	}))

	post := func(key, authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bookedTest", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		req.Header.Set("Authorization", authz)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := post("abc", "Bearer one")
	second := post("abc", "Bearer one")
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	post("abc", "Bearer two")
	assert.Equal(t, 2, calls, "keys are scoped per caller")

	post("", "Bearer one")
	post("", "Bearer one")
	assert.Equal(t, 4, calls, "no key, no caching")
}

func TestIdempotencyMiddleware_SkipsFailures(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	h := IdempotencyMiddleware(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("Idempotency-Key", "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_RejectsDifferentBody(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	h := IdempotencyMiddleware(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte(`{"clientSecret":"secret-for-` + string(body) + `"}`))
	}))

	post := func(body, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "checkout-1")
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := post(`{"price":10}`, "198.51.100.1:4000")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `{"price":10}`, "handler sees the original body")

	second := post(`{"price":500}`, "198.51.100.1:4000")
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Contains(t, second.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, calls)

	same := post(`{"price":10}`, "198.51.100.1:4000")
	assert.Equal(t, first.Body.String(), same.Body.String())
	assert.Equal(t, 1, calls)

	post(`{"price":10}`, "198.51.100.2:4000")
	assert.Equal(t, 2, calls, "anonymous keys are scoped per client address")
}

func TestIdempotencyMiddleware_InFlightDuplicate(t *testing.T) {
	store, _ := newRedisStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	h := IdempotencyMiddleware(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"acknowledged":true}`))
	}))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/bookedTest", strings.NewReader(`{"testId":"t1"}`))
		req.Header.Set("Idempotency-Key", "book-1")
		req.Header.Set("Authorization", "Bearer one")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() { firstDone <- post() }()
	<-entered

	concurrent := post()
	assert.Equal(t, http.StatusConflict, concurrent.Code)
	assert.Contains(t, concurrent.Body.String(), "IDEMPOTENCY_IN_PROGRESS")

	close(release)
	first := <-firstDone
	assert.Equal(t, http.StatusCreated, first.Code)

	replayed := post()
	assert.Equal(t, http.StatusCreated, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(logger.RequestIDKey).(string)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "given", seen)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	ok := Health(map[string]Pinger{"db": pingFunc(func(context.Context) error { return nil })})(next)
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	down := Health(map[string]Pinger{"db": pingFunc(func(context.Context) error { return errors.New("refused") })})(next)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")

	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tests", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/tests/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tests/abc", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `elevro_http_requests_total{method="GET",route="/tests/{id}",status="404"} 1`)
}

func TestRateLimiter(t *testing.T) {
	store, _ := newRedisStore(t)
	rl := NewRateLimiter(store.client, RateLimitConfig{Requests: 2, Window: time.Hour})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		req.RemoteAddr = ip + ":51000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("203.0.113.7"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, hit("203.0.113.7"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.8"))
}

func TestRateLimiter_ForwardedHeaders(t *testing.T) {
	store, _ := newRedisStore(t)
	limited := func(trust bool) http.Handler {
		rl := NewRateLimiter(store.client, RateLimitConfig{Requests: 1, Window: time.Hour})
		return TrustedProxy(trust)(rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	}

	hit := func(h http.Handler, remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/jwt", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := limited(false)
	assert.Equal(t, http.StatusOK, hit(direct, "203.0.113.20:1000", "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit(direct, "203.0.113.20:1000", "2.2.2.2"),
		"a spoofed header does not earn a fresh window")

	proxied := limited(true)
	assert.Equal(t, http.StatusOK, hit(proxied, "10.0.0.1:1000", "198.51.100.30"))
	assert.Equal(t, http.StatusOK, hit(proxied, "10.0.0.1:1000", "198.51.100.31"))
	assert.Equal(t, http.StatusTooManyRequests, hit(proxied, "10.0.0.1:1000", "198.51.100.30"))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	store, mr := newRedisStore(t)
	rl := NewRateLimiter(store.client, RateLimitConfig{Requests: 1, Window: time.Hour})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jwt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
