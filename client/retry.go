package client

import (
	"context"
	"errors"
	"math"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// MaxRetries 最大重试次数
	MaxRetries int
	// InitialDelay 初始延迟（毫秒）
	InitialDelay int
	// MaxDelay 最大延迟（毫秒）
	MaxDelay int
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// Retryable 判断错误是否可重试的函数
	Retryable func(error) bool
	// OnRetry 重试前的回调函数
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      1000,
		MaxDelay:          10000,
		BackoffMultiplier: 2.0,
		Retryable:         isRetryableError,
		OnRetry:           nil,
	}
}

// retryableMessages 节点/服务商返回的可重试错误片段
var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"timeout",
	"EOF",
	"rate limit",
	"too many requests",
	"limit exceeded",
	"header not found",
	"ECONNREFUSED",
	"ENOTFOUND",
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 调用方取消或超时不重试
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// HTTP 错误（5xx / 429）
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTPError(httpErr.StatusCode)
	}

	// 网络错误（连接失败、超时等）
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// DNS 错误
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// 其余情况通过错误消息判断
	errMsg := strings.ToLower(err.Error())
	for _, fragment := range retryableMessages {
		if strings.Contains(errMsg, strings.ToLower(fragment)) {
			return true
		}
	}

	return false
}

// isRetryableHTTPError 判断 HTTP 响应错误是否可重试
func isRetryableHTTPError(statusCode int) bool {
	// HTTP 5xx 错误（服务器错误）
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	// HTTP 429 错误（请求过多）
	return statusCode == 429
}

// calculateBackoffDelay 计算退避延迟
func calculateBackoffDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if maxDelay := float64(config.MaxDelay); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return time.Duration(delay) * time.Millisecond
}

// withRetry 带重试的函数执行器
//
// 不可重试的错误立即返回；重试耗尽时返回 ErrCodeRetriesExhausted 包装的最后一个错误
func withRetry(ctx context.Context, fn func() error, config *RetryConfig) error {
	if config == nil {
		return fn()
	}

	retryable := config.Retryable
	if retryable == nil {
		retryable = isRetryableError
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		// 如果是最后一次尝试，直接退出
		if attempt >= config.MaxRetries {
			break
		}

		delay := calculateBackoffDelay(attempt, config)

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return NewRetriesExhaustedError(config.MaxRetries+1, lastErr)
}
