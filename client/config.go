package client

import "time"

// Config 客户端配置
type Config struct {
	// Endpoint 节点端点地址（http(s):// 或 ws(s)://）
	Endpoint string

	// Protocol 协议类型
	Protocol Protocol

	// Timeout 超时时间（秒），同时用于拨号与单次 HTTP 请求
	Timeout int

	// TLS 配置
	TLS *TLSConfig

	// Retry 重试配置（nil 使用 DefaultRetryConfig）
	Retry *RetryConfig

	// RequestsPerSecond 对节点的请求速率上限（<=0 表示不限流）
	RequestsPerSecond float64

	// Burst 令牌桶容量（<=0 时取 1）
	Burst int

	// 调试模式
	Debug bool

	// 日志器（可选，nil 时使用 slog.Default()）
	Logger Logger
}

// Protocol 协议类型
type Protocol string

const (
	ProtocolHTTP      Protocol = "http"
	ProtocolWebSocket Protocol = "websocket"
)

// TLSConfig TLS 配置
type TLSConfig struct {
	Insecure bool // 跳过 TLS 验证（仅用于开发）
}

// Logger 日志接口
//
// *slog.Logger 满足该接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8545",
		Protocol: ProtocolHTTP,
		Timeout:  30,
		Retry:    DefaultRetryConfig(),
		Debug:    false,
	}
}

// timeout 返回超时时间，未设置时为 30 秒
func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
