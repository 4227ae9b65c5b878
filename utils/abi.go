package utils

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AddressAt 取解码输出中第 index 个值并断言为 address
func AddressAt(values []interface{}, index int) (common.Address, error) {
	if index < 0 || index >= len(values) {
		return common.Address{}, fmt.Errorf("output index %d out of range (%d outputs)", index, len(values))
	}
	addr, ok := values[index].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("output %d: expected address, got %T", index, values[index])
	}
	return addr, nil
}

// BigIntAt 取解码输出中第 index 个值并断言为 uint256/int256
func BigIntAt(values []interface{}, index int) (*big.Int, error) {
	if index < 0 || index >= len(values) {
		return nil, fmt.Errorf("output index %d out of range (%d outputs)", index, len(values))
	}
	n, ok := values[index].(*big.Int)
	if !ok || n == nil {
		return nil, fmt.Errorf("output %d: expected uint256, got %T", index, values[index])
	}
	return n, nil
}

// ArgAddress 从事件参数中按名称读取 address
func ArgAddress(args map[string]interface{}, name string) (common.Address, error) {
	raw, ok := args[name]
	if !ok {
		return common.Address{}, fmt.Errorf("event argument %q missing", name)
	}
	addr, ok := raw.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("event argument %q: expected address, got %T", name, raw)
	}
	return addr, nil
}
