package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/logger/noop"
	"github.com/adwski/counterd/internal/owner"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingCounter struct{}

func (blockingCounter) Increment(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingCounter) Value(ctx context.Context) (uint64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type zeroStats struct{}

func (zeroStats) Increments() uint64 { return 0 }
func (zeroStats) Reads() uint64      { return 0 }

func testLogger() logger.Logger {
	return logger.New(noop.NewLogger())
}

func startOwner(t *testing.T) (*owner.Owner, context.CancelFunc, *sync.WaitGroup) {
	t.Helper()

	o := owner.New(owner.Config{Logger: testLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go o.Run(ctx, wg)

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	return o, cancel, wg
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()

	if cfg.Counter == nil {
		o, _, _ := startOwner(t)
		cfg.Counter = o.Handle()
		cfg.Stats = o.Stats()
	}
	cfg.Logger = testLogger()

	srv := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func doGet(t *testing.T, url string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(url) //nolint:noctx // test
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func getCount(t *testing.T, srv *httptest.Server) uint64 {
	t.Helper()

	status, body := doGet(t, srv.URL+"/get")
	require.Equal(t, http.StatusOK, status)

	var resp countResponse
	require.NoError(t, json.Unmarshal(body, &resp))

	return resp.Count
}

func TestGateway_GetBeforeUp(t *testing.T) {
	srv := newTestServer(t, Config{})

	status, body := doGet(t, srv.URL+"/get")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count": 0}`, string(body))
}

func TestGateway_UpThenGet(t *testing.T) {
	srv := newTestServer(t, Config{})

	for i := 0; i < 3; i++ {
		status, body := doGet(t, srv.URL+"/up")
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, body)
	}

	status, body := doGet(t, srv.URL+"/get")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count": 3}`, string(body))
}

func TestGateway_ConcurrentUp(t *testing.T) {
	const n = 100

	srv := newTestServer(t, Config{})

	wg := sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			resp, err := http.Get(srv.URL + "/up") //nolint:noctx // test
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(n), getCount(t, srv))
}

func TestGateway_Routing(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "post up", method: http.MethodPost, path: "/up", want: http.StatusMethodNotAllowed},
		{name: "head up", method: http.MethodHead, path: "/up", want: http.StatusMethodNotAllowed},
		{name: "head get", method: http.MethodHead, path: "/get", want: http.StatusOK},
		{name: "put get", method: http.MethodPut, path: "/get", want: http.StatusMethodNotAllowed},
		{name: "unknown", method: http.MethodGet, path: "/down", want: http.StatusNotFound},
		{name: "stats", method: http.MethodGet, path: "/stats", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil) //nolint:noctx // test
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	// rejected requests must not reach the owner
	assert.Equal(t, uint64(0), getCount(t, srv))
}

func TestGateway_OwnerGone(t *testing.T) {
	o, cancel, wg := startOwner(t)
	srv := newTestServer(t, Config{Counter: o.Handle(), Stats: o.Stats()})

	cancel()
	wg.Wait()

	for _, path := range []string{"/up", "/get"} {
		status, body := doGet(t, srv.URL+path)
		assert.Equal(t, http.StatusServiceUnavailable, status, path)
		assert.Contains(t, string(body), "counter owner is gone", path)
	}
}

func TestGateway_RequestTimeout(t *testing.T) {
	srv := newTestServer(t, Config{
		Counter:        blockingCounter{},
		Stats:          zeroStats{},
		RequestTimeout: 50 * time.Millisecond,
	})

	for _, path := range []string{"/up", "/get"} {
		status, _ := doGet(t, srv.URL+path)
		assert.Equal(t, http.StatusGatewayTimeout, status, path)
	}
}

func TestGateway_RequestID(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/get") //nolint:noctx // test
	require.NoError(t, err)
	_ = resp.Body.Close()

	_, err = uuid.Parse(resp.Header.Get(requestIDHeader))
	require.NoError(t, err)

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/get", nil) //nolint:noctx // test
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, id)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(requestIDHeader))

	req.Header.Set(requestIDHeader, "not-an-uuid")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEqual(t, "not-an-uuid", resp.Header.Get(requestIDHeader))
}

func TestGateway_CORS(t *testing.T) {
	const allowed = "http://localhost:5173"

	srv := newTestServer(t, Config{AllowedOrigins: []string{allowed}})

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "allowed", origin: allowed, want: allowed},
		{name: "denied", origin: "http://evil.example", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/get", nil) //nolint:noctx // test
			require.NoError(t, err)
			req.Header.Set("Origin", tt.origin)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, tt.want, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestGateway_Stats(t *testing.T) {
	srv := newTestServer(t, Config{})

	doGet(t, srv.URL+"/up")
	doGet(t, srv.URL+"/up")
	getCount(t, srv)

	var resp statsResponse
	// owner records a read right after the handoff
	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/stats") //nolint:noctx // test
		if err != nil {
			return false
		}
		defer func() {
			_ = r.Body.Close()
		}()
		if err = json.NewDecoder(r.Body).Decode(&resp); err != nil {
			return false
		}
		return resp.Reads == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, uint64(2), resp.Increments)
	assert.Equal(t, int64(0), resp.Waiting)
	assert.False(t, resp.Congested)
}

func TestGateway_Congestion(t *testing.T) {
	g := New(Config{
		Logger:         testLogger(),
		Counter:        blockingCounter{},
		Stats:          zeroStats{},
		CongestionHigh: 2,
		CongestionLow:  0,
	})

	g.enter()
	assert.False(t, g.congested.Get())
	g.enter()
	assert.True(t, g.congested.Get())
	g.leave()
	assert.True(t, g.congested.Get())
	g.leave()
	assert.False(t, g.congested.Get())
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestGateway_Websocket(t *testing.T) {
	srv := newTestServer(t, Config{})

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() {
		_ = conn.Close()
	}()

	command := func(msgType int, cmd string) wsResponse {
		t.Helper()
		require.NoError(t, conn.WriteMessage(msgType, []byte(cmd)))
		var r wsResponse
		require.NoError(t, conn.ReadJSON(&r))
		return r
	}

	r := command(websocket.TextMessage, "get")
	require.NotNil(t, r.Count)
	assert.Equal(t, uint64(0), *r.Count)

	r = command(websocket.TextMessage, "up")
	require.NotNil(t, r.Count)
	assert.Equal(t, uint64(1), *r.Count)

	r = command(websocket.TextMessage, " up\n")
	require.NotNil(t, r.Count)
	assert.Equal(t, uint64(2), *r.Count)

	r = command(websocket.TextMessage, "down")
	assert.Nil(t, r.Count)
	assert.Contains(t, r.Error, "unknown command")

	r = command(websocket.BinaryMessage, "up")
	assert.Nil(t, r.Count)
	assert.NotEmpty(t, r.Error)

	// websocket and http share the same owner
	assert.Equal(t, uint64(2), getCount(t, srv))
}

func TestGateway_WebsocketOrigin(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

	header := http.Header{}
	header.Set("Origin", "http://evil.example")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGateway_InitError(t *testing.T) {
	g := New(Config{Logger: testLogger(), Address: "127.0.0.1:-1"})

	err := g.Init()
	require.ErrorIs(t, err, ErrListen)
	assert.Nil(t, g.Addr())
}

func TestGateway_Run(t *testing.T) {
	o, _, _ := startOwner(t)

	g := New(Config{
		Logger:  testLogger(),
		Counter: o.Handle(),
		Stats:   o.Stats(),
		Address: "127.0.0.1:0",
	})
	require.NoError(t, g.Init())

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go g.Run(ctx, wg)

	base := "http://" + g.Addr().String()

	status, _ := doGet(t, base+"/up")
	require.Equal(t, http.StatusOK, status)

	status, body := doGet(t, base+"/get")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count": 1}`, string(body))

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+g.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() {
		_ = conn.Close()
	}()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("gateway shutdown timeout")
	}

	// websocket is closed by server on shutdown
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
}
