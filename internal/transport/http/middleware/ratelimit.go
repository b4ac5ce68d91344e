package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/shared"
)

// maxPeekBytes bounds how much of a JSON body is read to derive a rate-limit key.
const maxPeekBytes = 64 * 1024

// sweepThreshold is the bucket count above which expired buckets are dropped.
const sweepThreshold = 4096

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type rateBucket struct {
	count int
	reset time.Time
}

// rateLimiter is a fixed-window counter per key.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	keyFn   RateLimitKeyFunc
	now     func() time.Time
	buckets map[string]*rateBucket
}

func withClock(now func() time.Time) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.now = now
	}
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, actorOrIPKey, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies tighter per-actor budgets to clock punches and
// to manager actions that fan out over many anomalies.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	punches := newRateLimiter(max(baseLimit/4, 1), window, ShiftOrActorKey("shiftId"), opts...)
	managers := newRateLimiter(max(baseLimit/2, 1), window, actorOrIPKey, opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var rl *rateLimiter
			switch sensitiveRateScope(r) {
			case sensitiveScopePunch:
				rl = punches
			case sensitiveScopeManager:
				rl = managers
			}
			if rl != nil && !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ShiftOrActorKey buckets punches by the acting user and the shift named in the
// JSON body, so double-taps on one shift throttle without starving other shifts.
func ShiftOrActorKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "shiftId"
	}
	return func(r *http.Request) string {
		actor := actorOrIPKey(r)
		shiftID := peekJSONString(r, field)
		if shiftID == "" {
			return actor
		}
		return actor + ":shift:" + strings.ToLower(shiftID)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

func newRateLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc, opts ...RateLimitOption) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: map[string]*rateBucket{},
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.keyFn == nil {
		rl.keyFn = actorOrIPKey
	}
	return rl
}

// take counts one hit against key and reports whether it is within the limit,
// along with the remaining budget and the seconds until the window resets.
func (rl *rateLimiter) take(key string) (allowed bool, remaining, resetIn int) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.buckets) > sweepThreshold {
		for k, b := range rl.buckets {
			if now.After(b.reset) {
				delete(rl.buckets, k)
			}
		}
	}

	bucket, ok := rl.buckets[key]
	if !ok || now.After(bucket.reset) {
		bucket = &rateBucket{reset: now.Add(rl.window)}
		rl.buckets[key] = bucket
	}
	bucket.count++
	return bucket.count <= rl.limit, max(rl.limit-bucket.count, 0), ceilSeconds(bucket.reset.Sub(now))
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}
	key := rl.keyFn(r)
	if key == "" {
		key = "ip:" + shared.ClientIP(r)
	}

	allowed, remaining, resetIn := rl.take(key)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if allowed {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	slog.Warn("rate limit exceeded",
		"key", key,
		"path", r.URL.Path,
		"method", r.Method,
		"limit", rl.limit,
		"windowSec", int(rl.window.Seconds()),
		"requestId", GetRequestID(r.Context()),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// peekJSONString reads a top-level string field from a JSON body and restores
// the body for the handler.
func peekJSONString(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if len(raw) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type sensitiveScope int

const (
	sensitiveScopeNone sensitiveScope = iota
	sensitiveScopePunch
	sensitiveScopeManager
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil || r.Method != http.MethodPost {
		return sensitiveScopeNone
	}

	path := strings.TrimPrefix(strings.TrimSpace(r.URL.Path), "/api/v1")
	switch path {
	case "/attendance/check-in", "/attendance/check-out":
		return sensitiveScopePunch
	case "/attendance/auto-validate", "/attendance/batch-approve", "/attendance/missing-punches/detect":
		return sensitiveScopeManager
	}
	if strings.HasPrefix(path, "/attendance/anomalies/") && strings.HasSuffix(path, "/resolve") {
		return sensitiveScopeManager
	}
	return sensitiveScopeNone
}
