package interceptors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client's bucket is remembered.
const limiterIdleTTL = 10 * time.Minute

// KeyedLimiter hands out one token bucket per client key. Buckets are
// dropped after limiterIdleTTL without traffic.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets *gocache.Cache
	limit   rate.Limit
	burst   int
}

func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		buckets: gocache.New(limiterIdleTTL, limiterIdleTTL/2),
		limit:   limit,
		burst:   burst,
	}
}

// Allow reports whether key may make one more call now.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	var l *rate.Limiter
	if v, ok := k.buckets.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(k.limit, k.burst)
	}
	k.buckets.Set(key, l, gocache.DefaultExpiration)
	return l.Allow()
}

// RateLimitKey identifies the caller: the authenticated user when known,
// otherwise the client address.
func RateLimitKey(ctx context.Context, header http.Header, peerAddr string) string {
	if id, ok := GetUserIDFromContext(ctx); ok {
		return "user:" + id
	}
	return "ip:" + ClientIP(header, peerAddr)
}

// ClientIP prefers the first X-Forwarded-For hop, then the peer address.
func ClientIP(header http.Header, peerAddr string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if peerAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(peerAddr); err == nil {
		return host
	}
	return peerAddr
}

// NewRateLimitInterceptor rejects calls once the caller's bucket is exhausted.
// Place it after the auth interceptor so signed-in users are keyed by id.
func NewRateLimitInterceptor(limiter *KeyedLimiter) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !limiter.Allow(RateLimitKey(ctx, req.Header(), req.Peer().Addr)) {
				return nil, connect.NewError(connect.CodeResourceExhausted, errors.New("rate limit exceeded"))
			}
			return next(ctx, req)
		}
	}
}
