// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/identity"
	"github.com/kazz187/taskdesk/internal/metrics"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Limiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewLimiter connects to Redis. Without an address, or when Redis does not
// answer, the limiter lets every request through.
func NewLimiter(ctx context.Context, env *config.RedisEnv) *Limiter {
	l := &Limiter{maxRequests: env.RateLimit, window: env.RateLimitWindow}
	if env.Addr == "" {
		return l
	}
	client := redis.NewClient(&redis.Options{Addr: env.Addr, Password: env.Password, DB: env.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, rate limiting disabled", "addr", env.Addr, "error", err)
		_ = client.Close()
		return l
	}
	l.client = client
	return l
}

func NewLimiterWithClient(client *redis.Client, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{client: client, maxRequests: maxRequests, window: window}
}

func (l *Limiter) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// Allow counts one request for ident and reports whether it is within the
// limit. Redis errors are returned with allowed set to true.
func (l *Limiter) Allow(ctx context.Context, ident string) (bool, error) {
	if l.client == nil || l.maxRequests <= 0 {
		return true, nil
	}
	key := "rl:" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ident
	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if val == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return val <= int64(l.maxRequests), nil
}

// Middleware limits per actor, or per client address for anonymous
// requests. It must run inside the cerr and identity middlewares.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			allowed, err := l.Allow(ctx, requestIdent(r))
			if err != nil {
				slog.WarnContext(ctx, "rate limiter failed open", "error", err)
				w.Header().Set("X-RateLimit-Error", "redis-error")
			}
			if !allowed {
				metrics.RateLimitBlocked.WithLabelValues(r.Method).Inc()
				retryAfter := strconv.Itoa(int(l.window.Seconds()))
				w.Header().Set("Retry-After", retryAfter)
				cerr.SetJSONError(ctx, cerr.NewError(cerr.ResourceExhausted, "Rate limit exceeded", nil).
					AddDetailMessage("retry after "+retryAfter+"s"))
				return
			}
			metrics.RateLimitRequests.WithLabelValues(r.Method).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func requestIdent(r *http.Request) string {
	if actor := identity.ActorFromContext(r.Context()); actor.Authenticated() {
		return "user:" + actor.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
