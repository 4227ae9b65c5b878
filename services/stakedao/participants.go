package stakedao

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/weisyn/integration-sdk-go/integration"
	"github.com/weisyn/integration-sdk-go/services/contract"
	"github.com/weisyn/integration-sdk-go/services/event"
	"github.com/weisyn/integration-sdk-go/utils"
)

// GetParticipants 返回曾向 vault 存款的全部地址
//
// 首次成功后缓存，返回的集合只读；发现失败时不缓存，下次调用重新扫描
func (s *Integration) GetParticipants(ctx context.Context) (integration.ParticipantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.participants != nil {
		return s.participants, nil
	}

	s.logger.Info("Getting participants...", "integration", s.GetDescription())
	participants, err := s.discoverParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("[%s] discover participants: %w", s.GetDescription(), err)
	}
	s.participants = participants

	s.logger.Info("Found participants", "integration", s.GetDescription(), "count", participants.Len())
	s.metrics.SetParticipants(s.GetColName(), participants.Len())
	return participants, nil
}

// IsParticipant 判断 user 是否为参与者（首次调用时触发发现）
func (s *Integration) IsParticipant(ctx context.Context, user common.Address) (bool, error) {
	participants, err := s.GetParticipants(ctx)
	if err != nil {
		return false, err
	}
	return participants.Contains(user), nil
}

// discoverParticipants 分页扫描 vault 的 Deposit 事件
//
// 目标区块在扫描开始时取一次链头，扫描期间新产生的存款不计入
func (s *Integration) discoverParticipants(ctx context.Context) (integration.ParticipantSet, error) {
	scanID := uuid.NewString()

	targetBlock, err := s.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}

	participants := integration.NewParticipantSet()
	req := &event.ScanRequest{
		Label:     fmt.Sprintf("Stake DAO users %s", s.opts.Vault.Hex()),
		Contract:  s.opts.Vault,
		Interface: s.opts.VaultInterface,
		Event:     DepositEvent,
		FromBlock: s.GetStartBlock(),
		ToBlock:   targetBlock,
		PageSize:  s.opts.PageSize,
	}

	s.logger.Debug("Scanning deposits", "scan_id", scanID, "vault", s.opts.Vault.Hex(),
		"from", req.FromBlock, "target", targetBlock, "page_size", req.PageSize)

	result, err := s.events.Scan(ctx, req, func(window event.BlockRange, logs []*contract.Log) error {
		s.metrics.ObserveScanWindow(s.GetColName())
		for _, log := range logs {
			depositor, err := utils.ArgAddress(log.Args, DepositorArg)
			if err != nil {
				return fmt.Errorf("deposit in tx %s: %w", log.TxHash.Hex(), err)
			}
			participants.Add(depositor)
		}
		s.logger.Debug("Scanned window", "scan_id", scanID, "from", window.From, "to", window.Last(), "deposits", len(logs))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Scan finished", "scan_id", scanID, "windows", result.Windows, "deposits", result.Logs, "participants", participants.Len())
	return participants, nil
}
