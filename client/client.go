package client

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/weisyn/integration-sdk-go/metrics"
)

const tracerName = "github.com/weisyn/integration-sdk-go/client"

// Client EVM 链读取客户端接口
//
// 所有方法都是只读且幂等的，重试对调用方透明
type Client interface {
	// BlockNumber 返回当前链头高度
	BlockNumber(ctx context.Context) (uint64, error)

	// CallContract 在指定区块执行只读调用（blockNumber 为 nil 表示最新区块）
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// FilterLogs 查询历史日志（FromBlock/ToBlock 均为闭区间）
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// Close 关闭连接
	Close() error
}

// backend go-ethereum ethclient.Client 的子集
type backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

// NewClient 创建新的客户端
func NewClient(config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Protocol {
	case ProtocolHTTP, "":
		return NewHTTPClient(config)
	case ProtocolWebSocket:
		return NewWebSocketClient(config)
	default:
		return nil, NewNotSupportedError(fmt.Sprintf("protocol %s", config.Protocol))
	}
}

// ethClient 在 go-ethereum 客户端之上增加重试、限流、指标与追踪
type ethClient struct {
	backend backend
	retry   *RetryConfig
	limiter *rate.Limiter
	logger  Logger
	debug   bool
	metrics *metrics.ClientMetrics
	tracer  trace.Tracer
}

// newEthClient 包装底层 backend
func newEthClient(b backend, config *Config) *ethClient {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryConfig := config.Retry
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &ethClient{
		backend: b,
		retry:   retryConfig,
		limiter: limiter,
		logger:  logger,
		debug:   config.Debug,
		metrics: metrics.Client(),
		tracer:  otel.Tracer(tracerName),
	}
}

// BlockNumber 返回当前链头高度
func (c *ethClient) BlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.do(ctx, "eth_blockNumber", nil, func(ctx context.Context) error {
		var err error
		head, err = c.backend.BlockNumber(ctx)
		return err
	})
	return head, err
}

// CallContract 在指定区块执行只读调用
func (c *ethClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	attrs := []attribute.KeyValue{attribute.String("eth.block", blockLabel(blockNumber))}
	if msg.To != nil {
		attrs = append(attrs, attribute.String("eth.to", msg.To.Hex()))
	}

	var out []byte
	err := c.do(ctx, "eth_call", attrs, func(ctx context.Context) error {
		var err error
		out, err = c.backend.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}

// FilterLogs 查询历史日志
func (c *ethClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	attrs := []attribute.KeyValue{
		attribute.String("eth.from_block", blockLabel(query.FromBlock)),
		attribute.String("eth.to_block", blockLabel(query.ToBlock)),
	}

	var logs []types.Log
	err := c.do(ctx, "eth_getLogs", attrs, func(ctx context.Context) error {
		var err error
		logs, err = c.backend.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

// Close 关闭连接
func (c *ethClient) Close() error {
	c.backend.Close()
	return nil
}

// do 执行一次带重试的 RPC 调用
func (c *ethClient) do(ctx context.Context, method string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, method, trace.WithAttributes(attrs...))
	defer span.End()

	retryConfig := *c.retry
	retryConfig.OnRetry = func(attempt int, err error) {
		c.metrics.ObserveRetry(method)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		c.logger.Warn("Retrying request", "method", method, "attempt", attempt, "error", err)
		if c.retry.OnRetry != nil {
			c.retry.OnRetry(attempt, err)
		}
	}

	start := time.Now()
	err := withRetry(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn(ctx)
	}, &retryConfig)
	err = wrapRPCError(method, err)

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.ObserveRequest(method, result, time.Since(start))

	if c.debug {
		c.logger.Debug("JSON-RPC request", "method", method, "result", result, "duration", time.Since(start))
	}
	return err
}

// blockLabel 区块号的可读形式
func blockLabel(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return n.String()
}
