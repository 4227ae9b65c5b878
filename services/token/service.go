package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/integration-sdk-go/services/contract"
)

// Service ERC-20 只读服务接口
//
// 所有查询都针对显式的历史区块
type Service interface {
	// BalanceOf 查询 holder 在 block 时持有的 token 数量（链上最小单位）
	BalanceOf(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error)

	// TotalSupply 查询 token 在 block 时的总供应量（链上最小单位）
	TotalSupply(ctx context.Context, token common.Address, block uint64) (*big.Int, error)
}

// tokenService Token 服务实现
type tokenService struct {
	contracts contract.Service
	iface     *contract.Interface
}

// NewService 创建 Token 服务（使用内嵌 ERC-20 接口描述）
func NewService(contracts contract.Service) Service {
	return NewServiceWithInterface(contracts, contract.ERC20())
}

// NewServiceWithInterface 使用自定义接口描述创建 Token 服务
func NewServiceWithInterface(contracts contract.Service, iface *contract.Interface) Service {
	if iface == nil {
		iface = contract.ERC20()
	}
	return &tokenService{
		contracts: contracts,
		iface:     iface,
	}
}

// BalanceOf 查询余额（实现在balance.go）
func (s *tokenService) BalanceOf(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error) {
	return s.balanceOf(ctx, token, holder, block)
}

// TotalSupply 查询总供应量（实现在balance.go）
func (s *tokenService) TotalSupply(ctx context.Context, token common.Address, block uint64) (*big.Int, error) {
	return s.totalSupply(ctx, token, block)
}
