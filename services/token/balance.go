package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// balanceOf 查询余额实现
func (s *tokenService) balanceOf(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error) {
	// 1. 验证地址
	if token == (common.Address{}) {
		return nil, fmt.Errorf("token address required")
	}

	// 2. 在指定区块调用 balanceOf(holder)
	balance, err := s.contracts.CallUint(ctx, token, s.iface, "balanceOf", block, holder)
	if err != nil {
		return nil, fmt.Errorf("query balanceOf(%s) on %s failed: %w", holder.Hex(), token.Hex(), err)
	}

	return balance, nil
}

// totalSupply 查询总供应量实现
func (s *tokenService) totalSupply(ctx context.Context, token common.Address, block uint64) (*big.Int, error) {
	if token == (common.Address{}) {
		return nil, fmt.Errorf("token address required")
	}

	supply, err := s.contracts.CallUint(ctx, token, s.iface, "totalSupply", block)
	if err != nil {
		return nil, fmt.Errorf("query totalSupply on %s failed: %w", token.Hex(), err)
	}

	return supply, nil
}
