package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
)

// NewWebSocketClient 创建 WebSocket JSON-RPC 客户端
//
// 只用于请求/响应式读取，不提供订阅
func NewWebSocketClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := websocketEndpoint(strings.TrimSpace(config.Endpoint))
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint required")
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.timeout(),
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	if config.TLS != nil && config.TLS.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // 仅用于开发环境
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.timeout())
	defer cancel()

	rpcClient, err := rpc.DialOptions(ctx, endpoint, rpc.WithWebsocketDialer(dialer))
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("dial websocket %s: %w", endpoint, err))
	}

	return newEthClient(ethclient.NewClient(rpcClient), config), nil
}

// websocketEndpoint 将 http:// 或 https:// 转换为 ws:// 或 wss://
func websocketEndpoint(endpoint string) string {
	switch {
	case endpoint == "":
		return ""
	case strings.HasPrefix(endpoint, "ws://"), strings.HasPrefix(endpoint, "wss://"):
		return endpoint
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	default:
		return "ws://" + endpoint
	}
}
