package health

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/logger/noop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

func startHealth(t *testing.T, ownerDone <-chan struct{}) (healthpb.HealthClient, context.CancelFunc, *sync.WaitGroup) {
	t.Helper()

	lis := bufconn.Listen(bufSize)
	svc := New(Config{
		Logger:    logger.New(noop.NewLogger()),
		OwnerDone: ownerDone,
	})

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go svc.Serve(ctx, wg, lis)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()

	conn, err := grpc.DialContext(dialCtx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		wg.Wait()
	})

	return healthpb.NewHealthClient(conn), cancel, wg
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)

	return resp.GetStatus()
}

func TestHealth_Serving(t *testing.T) {
	client, _, _ := startHealth(t, make(chan struct{}))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServiceName))
}

func TestHealth_OwnerStopped(t *testing.T) {
	ownerDone := make(chan struct{})
	client, _, _ := startHealth(t, ownerDone)

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ServiceName))

	close(ownerDone)

	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealth_Shutdown(t *testing.T) {
	_, cancel, wg := startHealth(t, make(chan struct{}))

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("health service shutdown timeout")
	}
}

func TestHealth_InitError(t *testing.T) {
	svc := New(Config{
		Logger:  logger.New(noop.NewLogger()),
		Address: "127.0.0.1:-1",
	})

	require.ErrorIs(t, svc.Init(), ErrListen)
	assert.Nil(t, svc.Addr())
}
