package stakedao

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/integration-sdk-go/utils"
)

// 余额查询结果分类（指标标签）
const (
	outcomeOK    = "ok"
	outcomeZero  = "zero"
	outcomeError = "error"
)

// lockerShareDecimals locker 份额的舍入位数
const lockerShareDecimals = 4

// wrapperUnit SY 的 18 位小数单位
var wrapperUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// GetBalance 计算 user 在 block 时对应的 SY 数量（人类可读单位）
//
// 所有读取都在同一个 block 上进行；SY 余额、locker active 份额、
// active 总供应量或 gauge 总供应量为 0 时返回 0
func (s *Integration) GetBalance(ctx context.Context, user common.Address, block uint64) (float64, error) {
	balance, outcome, err := s.computeBalance(ctx, user, block)
	s.metrics.ObserveBalance(s.GetColName(), outcome)
	if err != nil {
		return 0, fmt.Errorf("[%s] balance of %s at block %d: %w", s.GetDescription(), user.Hex(), block, err)
	}
	return balance, nil
}

// computeBalance 五跳链式读取
func (s *Integration) computeBalance(ctx context.Context, user common.Address, block uint64) (float64, string, error) {
	vault := s.opts.Vault

	// 1. vault 对应的 Pendle 市场（LP token）地址
	pool, err := s.contracts.CallAddress(ctx, vault, s.opts.VaultInterface, "token", block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read vault token: %w", err)
	}

	// 2. 市场的组成代币，第一个为 SY
	tokens, err := s.contracts.Call(ctx, pool, s.opts.MarketInterface, "readTokens", block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read market tokens: %w", err)
	}
	sy, err := utils.AddressAt(tokens, 0)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read market tokens: %w", err)
	}

	// 3. 市场持有的 SY 余额
	syBalance, err := s.tokens.BalanceOf(ctx, sy, pool, block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read SY balance of market: %w", err)
	}
	if syBalance.Sign() == 0 {
		return 0, outcomeZero, nil
	}

	// 4. locker 的 active LP 份额
	lockerActive, err := s.contracts.CallUint(ctx, pool, s.opts.MarketInterface, "activeBalance", block, s.opts.Locker)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read locker active balance: %w", err)
	}
	if lockerActive.Sign() == 0 {
		return 0, outcomeZero, nil
	}

	// 5. active 总供应量
	totalActive, err := s.contracts.CallUint(ctx, pool, s.opts.MarketInterface, "totalActiveSupply", block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read total active supply: %w", err)
	}
	if totalActive.Sign() == 0 {
		s.logger.Warn("Total active supply is 0", "integration", s.GetDescription(), "market", pool.Hex(), "block", block)
		return 0, outcomeZero, nil
	}

	// 6. locker 在市场 SY 中的份额
	lockerShare := lockerShareOfWrapper(syBalance, lockerActive, totalActive)

	// 7. vault 对应的 gauge
	gauge, err := s.contracts.CallAddress(ctx, vault, s.opts.VaultInterface, "liquidityGauge", block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read vault gauge: %w", err)
	}

	// 8. gauge 总供应量与用户余额
	gaugeSupply, err := s.tokens.TotalSupply(ctx, gauge, block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read gauge total supply: %w", err)
	}
	userGauge, err := s.tokens.BalanceOf(ctx, gauge, user, block)
	if err != nil {
		return 0, outcomeError, fmt.Errorf("read gauge balance: %w", err)
	}
	if gaugeSupply.Sign() == 0 {
		s.logger.Warn("Gauge total supply is 0", "integration", s.GetDescription(), "gauge", gauge.Hex(), "block", block)
		return 0, outcomeZero, nil
	}

	// 9. 用户占 gauge 的百分比
	userSharePct := ratio(new(big.Int).Mul(userGauge, big.NewInt(100)), gaugeSupply)

	// 10. 用户对应的 SY 数量
	balance := userSharePct * lockerShare / 100

	s.logger.Debug("Computed balance", "integration", s.GetDescription(), "user", user.Hex(), "block", block,
		"locker_share", lockerShare, "user_share_pct", userSharePct, "balance", balance)
	return balance, outcomeOK, nil
}

// lockerShareOfWrapper round((wrapperBalance / 1e18) * lockerActive / totalActive, 4)
func lockerShareOfWrapper(wrapperBalance, lockerActive, totalActive *big.Int) float64 {
	wrapper := ratio(wrapperBalance, wrapperUnit)
	share := wrapper * toFloat(lockerActive) / toFloat(totalActive)
	return roundTo(share, lockerShareDecimals)
}

// ratio num/den 的最近 float64
func ratio(num, den *big.Int) float64 {
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}

// toFloat 整数的最近 float64
func toFloat(n *big.Int) float64 {
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

// roundTo 按十进制小数位舍入（对精确二进制值做四舍六入五成双）
func roundTo(x float64, decimals int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', decimals, 64), 64)
	if err != nil {
		return x
	}
	return rounded
}
