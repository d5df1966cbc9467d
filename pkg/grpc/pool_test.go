package grpc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/test/bufconn"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	c1, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	c2, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	c3, err := pool.GetConnection("localhost:50052")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, 2, pool.Len())
}

func TestPool_ConcurrentGetConnection(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	var wg sync.WaitGroup
	conns := make([]*grpc.ClientConn, 50)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := pool.GetConnection("localhost:50051")
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	for _, conn := range conns {
		assert.Same(t, conns[0], conn)
	}
	assert.Equal(t, 1, pool.Len())
}

func TestPool_ReplacesShutdownConnection(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	c1, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, c1.Close())
	assert.Equal(t, connectivity.Shutdown, c1.GetState())

	c2, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
}

func TestPool_Close(t *testing.T) {
	called := false
	pool := NewPool(WithInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		called = true
		return invoker(ctx, method, req, reply, cc, opts...)
	}))

	conn, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, connectivity.Shutdown, conn.GetState())
	assert.False(t, called)
}

func TestPool_AppliesOptionsToNewConnections(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	params := keepalive.ClientParameters{Time: 30 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}
	var intercepted atomic.Int32
	pool := NewPool(
		WithKeepalive(params),
		// 只有套用了 dialer 才連得到 bufconn
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
		WithInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			intercepted.Add(1)
			return invoker(ctx, method, req, reply, cc, opts...)
		}),
	)
	t.Cleanup(func() { _ = pool.Close() })
	assert.Equal(t, params, pool.keepalive)

	conn, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Equal(t, int32(1), intercepted.Load())
}

func TestPool_DefaultKeepalive(t *testing.T) {
	pool := NewPool()
	assert.Equal(t, 10*time.Second, pool.keepalive.Time)
	assert.True(t, pool.keepalive.PermitWithoutStream)
}
