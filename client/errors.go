package client

import (
	"errors"
	"fmt"
	"net"

	"github.com/ethereum/go-ethereum/rpc"
)

// Error 客户端错误
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("client error [%d]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("client error [%d]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is(err, ErrRetriesExhausted)
func (e *Error) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Code == ErrCodeRetriesExhausted
}

// ErrRetriesExhausted 重试次数耗尽（对当前调用致命）
var ErrRetriesExhausted = errors.New("retries exhausted")

// 错误码定义
const (
	ErrCodeNetwork          = 1000 // 网络错误
	ErrCodeTimeout          = 1001 // 超时错误
	ErrCodeInvalidResponse  = 1002 // 无效响应
	ErrCodeRPCError         = 1003 // JSON-RPC错误
	ErrCodeNotSupported     = 1004 // 不支持的操作
	ErrCodeRetriesExhausted = 1005 // 重试耗尽
)

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "network error",
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError() *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request timeout",
	}
}

// NewInvalidResponseError 创建无效响应错误
func NewInvalidResponseError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: message,
	}
}

// NewRPCError 创建JSON-RPC错误
func NewRPCError(code int, message string, err error) *Error {
	return &Error{
		Code:    ErrCodeRPCError,
		Message: fmt.Sprintf("RPC error [%d]: %s", code, message),
		Err:     err,
	}
}

// NewNotSupportedError 创建不支持的操作错误
func NewNotSupportedError(operation string) *Error {
	return &Error{
		Code:    ErrCodeNotSupported,
		Message: fmt.Sprintf("operation not supported: %s", operation),
	}
}

// NewRetriesExhaustedError 创建重试耗尽错误
func NewRetriesExhaustedError(attempts int, lastErr error) *Error {
	return &Error{
		Code:    ErrCodeRetriesExhausted,
		Message: fmt.Sprintf("retry failed after %d attempts", attempts),
		Err:     lastErr,
	}
}

// wrapRPCError 将底层错误归类为 *Error
func wrapRPCError(method string, err error) error {
	if err == nil {
		return nil
	}

	// 已经是客户端错误（避免重复包装）
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return err
	}

	// JSON-RPC 错误（节点返回的 error 对象）
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return NewRPCError(rpcErr.ErrorCode(), fmt.Sprintf("%s: %s", method, rpcErr.Error()), err)
	}

	// 网络错误
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Code: ErrCodeTimeout, Message: fmt.Sprintf("timeout calling %s", method), Err: err}
		}
		return &Error{Code: ErrCodeNetwork, Message: fmt.Sprintf("network error calling %s", method), Err: err}
	}

	// 其他错误保持原状
	return err
}
