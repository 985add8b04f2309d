package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestTimeoutInterceptor(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := func(ctx context.Context, req any) (any, error) {
		deadline, ok = ctx.Deadline()
		return nil, nil
	}

	start := time.Now()
	_, err := timeoutInterceptor(time.Second)(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, start.Add(time.Second), deadline, 500*time.Millisecond)

	_, err = timeoutInterceptor(0)(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	assert.False(t, ok)
}

func withPeer(addr string) context.Context {
	tcp, _ := net.ResolveTCPAddr("tcp", addr)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcp})
}

func TestPeerLimiter_PerHost(t *testing.T) {
	l := newPeerLimiter(0.001, 1)
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{}

	_, err := l.interceptor(withPeer("10.0.0.1:5000"), nil, info, handler)
	require.NoError(t, err)

	// Same host, different port shares the bucket.
	_, err = l.interceptor(withPeer("10.0.0.1:5001"), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = l.interceptor(withPeer("10.0.0.2:5000"), nil, info, handler)
	require.NoError(t, err)
}

func TestPeerLimiter_PrunesRefilledBuckets(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newPeerLimiter(1, 1)
	l.now = func() time.Time { return clock }
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{}

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		_, err := l.interceptor(withPeer(addr), nil, info, handler)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.size())

	// Within the interval nothing is swept, and the drained bucket still limits.
	clock = clock.Add(500 * time.Millisecond)
	_, err := l.interceptor(withPeer("10.0.0.1:2"), nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, 3, l.size())

	clock = clock.Add(pruneInterval)
	_, err = l.interceptor(withPeer("10.0.0.4:1"), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())
}

func TestPeerKey_NoPeer(t *testing.T) {
	assert.Equal(t, "unknown", peerKey(context.Background()))
}
