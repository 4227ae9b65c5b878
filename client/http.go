package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// NewHTTPClient 创建 HTTP JSON-RPC 客户端
func NewHTTPClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	endpoint := strings.TrimSpace(config.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("http endpoint must start with http:// or https://, got %q", endpoint)
	}

	// 创建HTTP客户端
	httpCli := &http.Client{
		Timeout: config.timeout(),
	}
	if config.TLS != nil && config.TLS.Insecure {
		httpCli.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // 仅用于开发环境
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.timeout())
	defer cancel()

	rpcClient, err := rpc.DialOptions(ctx, endpoint,
		rpc.WithHTTPClient(httpCli),
		rpc.WithHeader("Accept", "application/json"),
	)
	if err != nil {
		return nil, NewNetworkError(fmt.Errorf("dial %s: %w", endpoint, err))
	}

	return newEthClient(ethclient.NewClient(rpcClient), config), nil
}
