package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// timeoutInterceptor bounds every call by d. A zero d leaves the context
// untouched.
func timeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// pruneInterval is how often get sweeps out buckets that have refilled.
const pruneInterval = time.Minute

// peerLimiter keeps one token bucket per remote host. Buckets that are full
// again behave like fresh ones, so get drops them lazily.
type peerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*rate.Limiter
	lastPrune time.Time
	now       func() time.Time
}

func newPeerLimiter(rps float64, burst int) *peerLimiter {
	return &peerLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (p *peerLimiter) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastPrune) >= pruneInterval {
		p.pruneLocked(now)
	}

	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[key] = l
	}
	return l
}

func (p *peerLimiter) pruneLocked(now time.Time) {
	for k, l := range p.limiters {
		if l.TokensAt(now) >= float64(p.burst) {
			delete(p.limiters, k)
		}
	}
	p.lastPrune = now
}

func (p *peerLimiter) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

func peerKey(ctx context.Context) string {
	pr, ok := peer.FromContext(ctx)
	if !ok || pr.Addr == nil {
		return "unknown"
	}
	addr := pr.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (p *peerLimiter) interceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	now := p.now()
	if !p.get(peerKey(ctx), now).AllowN(now, 1) {
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}
