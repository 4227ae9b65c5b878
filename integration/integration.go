// Package integration 定义各协议集成共享的通用接口：
// 身份、区块范围、倍数、参与者与余额
package integration

import (
	"context"
	"math"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// MaxEndBlock 未配置结束区块时 GetEndBlock 的返回值（2^31-1）
const MaxEndBlock uint64 = math.MaxInt32

// Integration 协议集成接口（每个协议一个实现）
type Integration interface {
	GetID() ID
	GetToken() Token
	GetDescription() string
	GetColName() string
	GetChain() Chain
	GetSummaryCols() []SummaryColumn
	GetRewardMultiplier(block uint64) int
	GetBalanceMultiplier() int
	GetStartBlock() uint64
	GetEndBlock() uint64
	IsExcluded(addr common.Address) bool

	// GetParticipants 返回曾与该集成交互过的全部账户
	// 首次成功的结果会被缓存
	GetParticipants(ctx context.Context) (ParticipantSet, error)

	// IsParticipant 首次调用时触发参与者发现
	IsParticipant(ctx context.Context, user common.Address) (bool, error)

	// GetBalance 返回用户在 block 时的余额（人类可读单位）
	GetBalance(ctx context.Context, user common.Address, block uint64) (float64, error)
}

// ParticipantSet 无序账户集合
type ParticipantSet map[common.Address]struct{}

// NewParticipantSet 由地址列表构建集合（自动去重）
func NewParticipantSet(addrs ...common.Address) ParticipantSet {
	set := make(ParticipantSet, len(addrs))
	for _, addr := range addrs {
		set.Add(addr)
	}
	return set
}

func (s ParticipantSet) Add(addr common.Address) {
	s[addr] = struct{}{}
}

func (s ParticipantSet) Contains(addr common.Address) bool {
	_, ok := s[addr]
	return ok
}

func (s ParticipantSet) Len() int {
	return len(s)
}

// Addresses 按字节序返回成员
func (s ParticipantSet) Addresses() []common.Address {
	out := make([]common.Address, 0, len(s))
	for addr := range s {
		out = append(out, addr)
	}
	slices.SortFunc(out, common.Address.Cmp)
	return out
}
