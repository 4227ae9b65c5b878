// Package stakedao 实现 Stake DAO Pendle LP vault 的积分集成
//
// 持仓路径：vault → Pendle LP（市场）→ SY（收益包装代币）→ Stake DAO gauge。
// 用户在 gauge 中的份额换算为 locker 在 Pendle 市场中 SY 的对应数量。
package stakedao

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/integration-sdk-go/client"
	"github.com/weisyn/integration-sdk-go/integration"
	"github.com/weisyn/integration-sdk-go/metrics"
	"github.com/weisyn/integration-sdk-go/services/contract"
	"github.com/weisyn/integration-sdk-go/services/event"
	"github.com/weisyn/integration-sdk-go/services/token"
	"github.com/weisyn/integration-sdk-go/utils"
)

const (
	// DefaultRewardMultiplier 默认奖励倍数
	DefaultRewardMultiplier = 20
	// DefaultBalanceMultiplier 默认余额倍数
	DefaultBalanceMultiplier = 1

	// DepositEvent vault 存款事件名
	DepositEvent = "Deposit"
	// DepositorArg 存款事件中的存款人参数名
	DepositorArg = "_depositor"
)

// PendleLocker Stake DAO 在 Pendle 上持有锁仓 LP 的 locker 地址
var PendleLocker = utils.MustParseAddress("0xd8fa8dc5adec503acc5e026a98f32ca5c1fa289a")

// Options Stake DAO 集成专属参数
type Options struct {
	// Vault Stake DAO vault 合约地址（必填）
	Vault common.Address
	// Locker 在 Pendle 市场中持有 active 份额的地址（默认 PendleLocker）
	Locker common.Address
	// PageSize 参与者扫描窗口宽度（默认 event.DefaultPageSize）
	PageSize uint64

	// 接口描述覆盖（默认使用内嵌 ABI）
	VaultInterface  *contract.Interface
	MarketInterface *contract.Interface
	TokenInterface  *contract.Interface
}

// withDefaults 填充默认值
func (o Options) withDefaults() Options {
	if o.Locker == (common.Address{}) {
		o.Locker = PendleLocker
	}
	if o.PageSize == 0 {
		o.PageSize = event.DefaultPageSize
	}
	if o.VaultInterface == nil {
		o.VaultInterface = contract.Vault()
	}
	if o.MarketInterface == nil {
		o.MarketInterface = contract.PendleMarket()
	}
	if o.TokenInterface == nil {
		o.TokenInterface = contract.ERC20()
	}
	return o
}

// DefaultConfig 返回 Stake DAO 集成的默认通用配置
//
// 链为以太坊，奖励倍数 20，余额倍数 1，排除 PendleLocker
func DefaultConfig(id integration.ID, startBlock uint64) integration.Config {
	return integration.Config{
		ID:                id,
		Chain:             integration.ChainEthereum,
		StartBlock:        startBlock,
		RewardMultiplier:  DefaultRewardMultiplier,
		BalanceMultiplier: DefaultBalanceMultiplier,
		ExcludedAddresses: []common.Address{PendleLocker},
	}
}

// Integration Stake DAO 集成实现
//
// GetBalance 无状态，可并发调用；参与者集合在首次成功发现后缓存，之后不再刷新
type Integration struct {
	*integration.Base

	opts      Options
	client    client.Client
	contracts contract.Service
	tokens    token.Service
	events    event.Service
	logger    client.Logger
	metrics   *metrics.IntegrationMetrics

	mu           sync.Mutex
	participants integration.ParticipantSet // nil 表示尚未成功发现
}

var _ integration.Integration = (*Integration)(nil)

// New 创建 Stake DAO 集成
func New(c client.Client, cfg integration.Config, opts Options, logger client.Logger) (*Integration, error) {
	if c == nil {
		return nil, fmt.Errorf("client required")
	}
	if opts.Vault == (common.Address{}) {
		return nil, fmt.Errorf("integration %s: vault address required", cfg.ID)
	}

	base, err := integration.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	opts = opts.withDefaults()
	contracts := contract.NewService(c, logger)

	return &Integration{
		Base:      base,
		opts:      opts,
		client:    c,
		contracts: contracts,
		tokens:    token.NewServiceWithInterface(contracts, opts.TokenInterface),
		events:    event.NewService(contracts),
		logger:    logger,
		metrics:   metrics.Integrations(),
	}, nil
}

// Vault vault 合约地址
func (s *Integration) Vault() common.Address {
	return s.opts.Vault
}

// Client 集成使用的链读取客户端
func (s *Integration) Client() client.Client {
	return s.client
}

// Locker locker 地址
func (s *Integration) Locker() common.Address {
	return s.opts.Locker
}

// GetBalances 并发查询多个用户在同一区块的余额，结果顺序与 users 一致
//
// 任意一个查询失败即返回错误
func (s *Integration) GetBalances(ctx context.Context, users []common.Address, block uint64, concurrency int) ([]float64, error) {
	return utils.ParallelExecute(ctx, users, func(ctx context.Context, user common.Address) (float64, error) {
		return s.GetBalance(ctx, user, block)
	}, concurrency)
}
