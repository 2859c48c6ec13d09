package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int           // Max requests per window
	Window   time.Duration // Time window duration
	KeyFunc  func(r *http.Request) []string
}

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKey
	}
	return &RateLimiter{client: client, config: config}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, key := range rl.config.KeyFunc(r) {
			if !rl.allow(r.Context(), key) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.config.Window.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests. Try again later.",
					"code":  "RATE_LIMITED",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// allow increments the window counter for key. Redis errors let the request
// through.
func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	hasher := sha256.New()
	hasher.Write([]byte(key))
	window := time.Now().UnixNano() / int64(rl.config.Window)
	hashedKey := fmt.Sprintf("ratelimit:%x:%d", hasher.Sum(nil), window)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, hashedKey)
	pipe.Expire(ctx, hashedKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.WarnContext(ctx, "Rate limit check failed", "error", err)
		return true
	}
	return incr.Val() <= int64(rl.config.Requests)
}

// ClientIPKey rate limits by the caller's address.
func ClientIPKey(r *http.Request) []string {
	if ip := clientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

// clientIP is the connection's peer address. Forwarded headers only count
// once TrustedProxy has rewritten RemoteAddr from them.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// TrustedProxy takes the client address from True-Client-IP, X-Real-IP or
// X-Forwarded-For when enabled. Enable it only behind a proxy that overwrites
// those headers; otherwise any caller can pick its own rate-limit key.
func TrustedProxy(enabled bool) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RealIP
}
