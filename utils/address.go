package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress 解析十六进制 EVM 地址
//
// **规则**：
// - 必须带 0x 前缀，40 个十六进制字符（20字节）
// - 全小写或全大写直接接受
// - 大小写混合时按 EIP-55 校验和验证
// - 拒绝零地址
func ParseAddress(hexAddr string) (common.Address, error) {
	hexAddr = strings.TrimSpace(hexAddr)
	if !strings.HasPrefix(hexAddr, "0x") && !strings.HasPrefix(hexAddr, "0X") {
		return common.Address{}, fmt.Errorf("invalid address %q: missing 0x prefix", hexAddr)
	}
	if !common.IsHexAddress(hexAddr) {
		return common.Address{}, fmt.Errorf("invalid address %q: expected 40 hex characters", hexAddr)
	}

	addr := common.HexToAddress(hexAddr)
	body := hexAddr[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex() != "0x"+body {
			return common.Address{}, fmt.Errorf("invalid address %q: checksum mismatch", hexAddr)
		}
	}

	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("invalid address %q: zero address", hexAddr)
	}
	return addr, nil
}

// MustParseAddress 解析地址，失败时 panic（仅用于常量）
func MustParseAddress(hexAddr string) common.Address {
	addr, err := ParseAddress(hexAddr)
	if err != nil {
		panic(err)
	}
	return addr
}

// ParseAddresses 批量解析地址，保持顺序并去重
func ParseAddresses(hexAddrs []string) ([]common.Address, error) {
	seen := make(map[common.Address]struct{}, len(hexAddrs))
	out := make([]common.Address, 0, len(hexAddrs))
	for i, raw := range hexAddrs {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("address #%d: %w", i, err)
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}
