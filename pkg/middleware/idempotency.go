package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by an IdempotencyStore when the key is unknown.
var ErrMiss = errors.New("idempotency key not found")

// IdempotencyStore caches responses to POST requests by key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses a redis:// URL and applies password and db overrides.
func NewRedisClient(url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// cachedResponse is the stored record for a key. Status 0 marks a request
// that is still running.
type cachedResponse struct {
	Status   int    `json:"status"`
	Body     string `json:"body"`
	BodyHash string `json:"body_hash"`
}

// pendingTTL bounds how long a crashed request can hold its key.
const pendingTTL = 30 * time.Second

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key on POST. Keys are scoped to the path and the caller: the
// Authorization header, or the client address on anonymous routes. A key
// reused with a different body is rejected with 422, and a key whose first
// request is still running gets 409. Only 2xx responses are stored.
func IdempotencyMiddleware(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	lockTTL := pendingTTL
	if ttl < lockTTL {
		lockTTL = ttl
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": "could not read request body",
					"code":  "INVALID_INPUT",
				})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			bodyHash := fmt.Sprintf("%x", sha256.Sum256(body))

			scope := r.Header.Get("Authorization")
			if scope == "" {
				scope = "ip:" + clientIP(r)
			}
			hasher := sha256.New()
			hasher.Write([]byte(key + "\x00" + r.URL.Path + "\x00" + scope))
			hashedKey := fmt.Sprintf("idempotency:%x", hasher.Sum(nil))

			pending, _ := json.Marshal(cachedResponse{BodyHash: bodyHash})
			owned, err := store.SetNX(r.Context(), hashedKey, string(pending), lockTTL)
			if err != nil {
				logger.WarnContext(r.Context(), "Idempotency claim failed", "error", err)
				owned = true
			}
			if !owned {
				replay(w, r, store, hashedKey, bodyHash)
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode < 200 || recorder.statusCode >= 300 {
				if err := store.Delete(r.Context(), hashedKey); err != nil {
					logger.WarnContext(r.Context(), "Idempotency release failed", "error", err)
				}
				return
			}
			payload, _ := json.Marshal(cachedResponse{
				Status:   recorder.statusCode,
				Body:     string(recorder.body),
				BodyHash: bodyHash,
			})
			if err := store.Set(r.Context(), hashedKey, string(payload), ttl); err != nil {
				logger.WarnContext(r.Context(), "Idempotency store failed", "error", err)
			}
		})
	}
}

// replay answers a request whose key is already taken.
func replay(w http.ResponseWriter, r *http.Request, store IdempotencyStore, hashedKey, bodyHash string) {
	existing, err := store.Get(r.Context(), hashedKey)
	var cached cachedResponse
	if err != nil || json.Unmarshal([]byte(existing), &cached) != nil {
		if err != nil && !errors.Is(err, ErrMiss) {
			logger.WarnContext(r.Context(), "Idempotency lookup failed", "error", err)
		}
		inProgress(w)
		return
	}

	switch {
	case cached.BodyHash != bodyHash:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "Idempotency-Key was already used with a different request body",
			"code":  "IDEMPOTENCY_KEY_REUSED",
		})
	case cached.Status == 0:
		inProgress(w)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(cached.Status)
		w.Write([]byte(cached.Body))
	}
}

func inProgress(w http.ResponseWriter) {
	writeJSON(w, http.StatusConflict, map[string]string{
		"error": "a request with this Idempotency-Key is still in progress",
		"code":  "IDEMPOTENCY_IN_PROGRESS",
	})
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
