package transport

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

const rateLimitPrefix = "oncall:ratelimit:"

// RateLimiter is a per-client fixed-window limiter backed by Redis.
type RateLimiter struct {
	redis       redis.Cmdable
	maxRequests int64
	window      time.Duration
	trusted     []netip.Prefix
	logger      *slog.Logger
}

// NewRateLimiter creates a limiter allowing maxRequests per window per client.
func NewRateLimiter(client redis.Cmdable, maxRequests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{redis: client, maxRequests: int64(maxRequests), window: window, logger: logger}
}

// TrustProxies sets the proxies whose X-Forwarded-For header is honoured.
// Entries are IP addresses or CIDR prefixes. With none set the limiter keys
// on the connection's remote address only.
func (rl *RateLimiter) TrustProxies(entries []string) error {
	trusted := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			trusted = append(trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	rl.trusted = trusted
	return nil
}

// Allow counts one request for client and reports whether it is within the
// limit, and if not, how long until the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, client string) (bool, time.Duration, error) {
	key := rateLimitPrefix + client
	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	if count <= rl.maxRequests {
		return true, 0, nil
	}
	ttl, err := rl.redis.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit ttl: %w", err)
	}
	if ttl < 0 {
		ttl = rl.window
	}
	return false, ttl, nil
}

// Middleware rejects clients over the limit with 429. Redis failures let the
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter, err := rl.Allow(r.Context(), rl.clientIP(r))
		if err != nil {
			if rl.logger != nil {
				rl.logger.Warn("rate limiter unavailable", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// concurrencyLimit caps in-flight requests process-wide.
func concurrencyLimit(max int64) func(http.Handler) http.Handler {
	sema := semaphore.NewWeighted(max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sema.Acquire(r.Context(), 1); err != nil {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			defer sema.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the remote address of the connection. When that address is
// a trusted proxy, X-Forwarded-For is walked from the right and the first hop
// that is not itself trusted is used.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	client, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		client = r.RemoteAddr
	}
	if !rl.isTrusted(client) {
		return client
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !rl.isTrusted(hop) {
			break
		}
	}
	return client
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range rl.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
