package integration

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// RewardMultiplierFunc 按区块计算奖励倍数（可选，设置后优先于固定倍数）
type RewardMultiplierFunc func(block uint64) int

// Config 集成配置，构造后不可变
type Config struct {
	ID    ID
	Chain Chain

	// StartBlock 起始区块（含）
	StartBlock uint64
	// EndBlock 结束区块（可选，nil 表示不设上限）
	EndBlock *uint64

	RewardMultiplierFunc RewardMultiplierFunc
	RewardMultiplier     int
	BalanceMultiplier    int

	// ExcludedAddresses 不计入统计的地址（如协议自身的 locker）
	ExcludedAddresses []common.Address
	// SummaryColumns 汇总报表附加列（可选）
	SummaryColumns []SummaryColumn
}

// Validate 检查配置
func (c *Config) Validate() error {
	if err := c.ID.Validate(); err != nil {
		return err
	}
	if c.Chain == "" {
		return fmt.Errorf("integration %s: chain required", c.ID)
	}
	if c.EndBlock != nil && *c.EndBlock < c.StartBlock {
		return fmt.Errorf("integration %s: end block %d before start block %d", c.ID, *c.EndBlock, c.StartBlock)
	}
	if c.BalanceMultiplier < 0 || c.RewardMultiplier < 0 {
		return fmt.Errorf("integration %s: multipliers must not be negative", c.ID)
	}
	return nil
}

// Base 通用访问器实现，供各协议集成嵌入
type Base struct {
	cfg      Config
	excluded map[common.Address]struct{}
}

// NewBase 校验并复制配置
func NewBase(cfg Config) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 复制可变字段，保证构造后不可变
	if cfg.EndBlock != nil {
		end := *cfg.EndBlock
		cfg.EndBlock = &end
	}
	cfg.ExcludedAddresses = append([]common.Address(nil), cfg.ExcludedAddresses...)
	cfg.SummaryColumns = append([]SummaryColumn(nil), cfg.SummaryColumns...)

	excluded := make(map[common.Address]struct{}, len(cfg.ExcludedAddresses))
	for _, addr := range cfg.ExcludedAddresses {
		excluded[addr] = struct{}{}
	}

	return &Base{cfg: cfg, excluded: excluded}, nil
}

func (b *Base) GetID() ID {
	return b.cfg.ID
}

func (b *Base) GetToken() Token {
	return b.cfg.ID.Token
}

func (b *Base) GetDescription() string {
	return b.cfg.ID.Description
}

func (b *Base) GetColName() string {
	return b.cfg.ID.Column
}

func (b *Base) GetChain() Chain {
	return b.cfg.Chain
}

// GetSummaryCols 返回汇总列副本
func (b *Base) GetSummaryCols() []SummaryColumn {
	return append([]SummaryColumn(nil), b.cfg.SummaryColumns...)
}

// GetRewardMultiplier 设置了倍数函数时按区块计算，否则返回固定倍数
func (b *Base) GetRewardMultiplier(block uint64) int {
	if b.cfg.RewardMultiplierFunc != nil {
		return b.cfg.RewardMultiplierFunc(block)
	}
	return b.cfg.RewardMultiplier
}

func (b *Base) GetBalanceMultiplier() int {
	return b.cfg.BalanceMultiplier
}

func (b *Base) GetStartBlock() uint64 {
	return b.cfg.StartBlock
}

// GetEndBlock 未配置结束区块时返回 MaxEndBlock
func (b *Base) GetEndBlock() uint64 {
	if b.cfg.EndBlock == nil {
		return MaxEndBlock
	}
	return *b.cfg.EndBlock
}

// GetExcludedAddresses 返回排除地址副本
func (b *Base) GetExcludedAddresses() []common.Address {
	return append([]common.Address(nil), b.cfg.ExcludedAddresses...)
}

func (b *Base) IsExcluded(addr common.Address) bool {
	_, ok := b.excluded[addr]
	return ok
}
