package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend 按次数注入错误的 backend
type fakeBackend struct {
	mu       sync.Mutex
	failures []error
	calls    int
	closed   bool
}

func (f *fakeBackend) next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	if err := f.next(); err != nil {
		return 0, err
	}
	return 42, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return []types.Log{{BlockNumber: q.FromBlock.Uint64()}}, nil
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func testConfig() *Config {
	return &Config{
		Retry:  fastRetry(3),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEthClient_RetriesTransparently(t *testing.T) {
	fb := &fakeBackend{failures: []error{
		errors.New("429 too many requests"),
		errors.New("header not found"),
	}}

	var hooked int
	config := testConfig()
	config.Retry.OnRetry = func(int, error) { hooked++ }
	c := newEthClient(fb, config)

	head, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), head)
	assert.Equal(t, 3, fb.calls)
	assert.Equal(t, 2, hooked, "应调用用户的重试回调")
}

func TestEthClient_Exhausted(t *testing.T) {
	fb := &fakeBackend{failures: []error{
		errors.New("EOF"), errors.New("EOF"), errors.New("EOF"), errors.New("EOF"),
	}}
	c := newEthClient(fb, testConfig())

	to := common.HexToAddress("0x1000000000000000000000000000000000000001")
	_, err := c.CallContract(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{1}}, big.NewInt(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, 4, fb.calls)
}

func TestEthClient_PassThrough(t *testing.T) {
	fb := &fakeBackend{}
	c := newEthClient(fb, testConfig())

	out, err := c.CallContract(context.Background(), ethereum.CallMsg{Data: []byte{0xde, 0xad}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, out)

	logs, err := c.FilterLogs(context.Background(), ethereum.FilterQuery{FromBlock: big.NewInt(7), ToBlock: big.NewInt(9)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(7), logs[0].BlockNumber)

	require.NoError(t, c.Close())
	assert.True(t, fb.closed)
}

func TestEthClient_RateLimiter(t *testing.T) {
	config := testConfig()
	assert.Nil(t, newEthClient(&fakeBackend{}, config).limiter)

	config.RequestsPerSecond = 25
	c := newEthClient(&fakeBackend{}, config)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
	assert.InDelta(t, 25.0, float64(c.limiter.Limit()), 1e-9)

	// 取消的上下文在限流等待处失败，不会调用 backend
	fb := &fakeBackend{}
	c = newEthClient(fb, config)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.BlockNumber(ctx)
	require.Error(t, err)
	assert.Zero(t, fb.calls)
}

func TestNewClient_UnsupportedProtocol(t *testing.T) {
	_, err := NewClient(&Config{Endpoint: "http://localhost:8545", Protocol: "grpc"})
	require.Error(t, err)

	var clientErr *Error
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrCodeNotSupported, clientErr.Code)
}

func TestNewHTTPClient_InvalidEndpoint(t *testing.T) {
	_, err := NewHTTPClient(&Config{Endpoint: ""})
	assert.Error(t, err)

	_, err = NewHTTPClient(&Config{Endpoint: "ws://localhost:8546"})
	assert.Error(t, err)
}

// jsonRPCServer 响应 eth_blockNumber，前 failFirst 次请求返回 503
func jsonRPCServer(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if n <= failFirst {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}

		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_blockNumber":
			resp["result"] = "0x1234"
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewHTTPClient_BlockNumber(t *testing.T) {
	server, requests := jsonRPCServer(t, 2)

	config := testConfig()
	config.Endpoint = server.URL
	c, err := NewClient(config)
	require.NoError(t, err)
	defer c.Close()

	head, err := c.BlockNumber(context.Background())
	require.NoError(t, err, "503 应被重试")
	assert.Equal(t, uint64(0x1234), head)
	assert.Equal(t, int32(3), requests.Load())
}

func TestNewHTTPClient_RPCError(t *testing.T) {
	server, requests := jsonRPCServer(t, 0)

	config := testConfig()
	config.Endpoint = server.URL
	c, err := NewHTTPClient(config)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.FilterLogs(context.Background(), ethereum.FilterQuery{FromBlock: big.NewInt(1), ToBlock: big.NewInt(2)})
	require.Error(t, err)

	var clientErr *Error
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrCodeRPCError, clientErr.Code)
	assert.Equal(t, int32(1), requests.Load(), "JSON-RPC 错误不应重试")
}

func TestWebsocketEndpoint(t *testing.T) {
	tests := map[string]string{
		"":                        "",
		"ws://localhost:8546":     "ws://localhost:8546",
		"wss://rpc.example/ws":    "wss://rpc.example/ws",
		"http://localhost:8546":   "ws://localhost:8546",
		"https://rpc.example/key": "wss://rpc.example/key",
		"localhost:8546":          "ws://localhost:8546",
	}
	for in, want := range tests {
		assert.Equal(t, want, websocketEndpoint(in), in)
	}
}

func TestConfigTimeout(t *testing.T) {
	assert.Equal(t, float64(30), (&Config{}).timeout().Seconds())
	assert.Equal(t, float64(5), (&Config{Timeout: 5}).timeout().Seconds())
}
