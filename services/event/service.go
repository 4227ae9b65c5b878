package event

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/integration-sdk-go/services/contract"
)

// DefaultPageSize 默认扫描窗口宽度（区块数）
//
// 多数节点服务商对 eth_getLogs 的区块跨度限制在 2000 左右
const DefaultPageSize uint64 = 1900

// Service Event 历史日志扫描服务接口
type Service interface {
	// Scan 以固定宽度窗口分页扫描 [FromBlock, ToBlock) 内的事件日志
	//
	// 每个窗口的日志按顺序交给 fn；fn 或日志查询出错时立即中止
	Scan(ctx context.Context, req *ScanRequest, fn WindowFunc) (*ScanResult, error)
}

// WindowFunc 处理单个窗口的日志
type WindowFunc func(window BlockRange, logs []*contract.Log) error

// BlockRange 半开区块区间 [From, To)
type BlockRange struct {
	From uint64
	To   uint64
}

// Last 区间内最后一个区块（闭区间上界）
func (r BlockRange) Last() uint64 {
	return r.To - 1
}

// Len 区间宽度
func (r BlockRange) Len() uint64 {
	return r.To - r.From
}

// ScanRequest 扫描请求
type ScanRequest struct {
	Label     string // 日志标签
	Contract  common.Address
	Interface *contract.Interface
	Event     string
	FromBlock uint64 // 起始区块（含）
	ToBlock   uint64 // 结束区块（不含）
	PageSize  uint64 // 窗口宽度（0 使用 DefaultPageSize）
}

// ScanResult 扫描统计
type ScanResult struct {
	Windows int
	Logs    int
}

// eventService Event 服务实现
type eventService struct {
	contracts contract.Service
}

// NewService 创建 Event 服务
func NewService(contracts contract.Service) Service {
	return &eventService{
		contracts: contracts,
	}
}

// Windows 将 [from, to) 划分为连续、不重叠、宽度为 pageSize 的窗口
//
// 最后一个窗口可能更窄；from >= to 时返回空
func Windows(from, to, pageSize uint64) ([]BlockRange, error) {
	if pageSize == 0 {
		return nil, fmt.Errorf("page size must be positive")
	}
	var windows []BlockRange
	for start := from; start < to; {
		end := to
		if to-start > pageSize {
			end = start + pageSize
		}
		windows = append(windows, BlockRange{From: start, To: end})
		start = end
	}
	return windows, nil
}

// Scan 分页扫描事件日志
func (s *eventService) Scan(ctx context.Context, req *ScanRequest, fn WindowFunc) (*ScanResult, error) {
	if req == nil || req.Interface == nil {
		return nil, fmt.Errorf("scan request with interface required")
	}
	if fn == nil {
		return nil, fmt.Errorf("window callback required")
	}

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	windows, err := Windows(req.FromBlock, req.ToBlock, pageSize)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// eth_getLogs 的区间为闭区间
		logs, err := s.contracts.FetchLogs(ctx, req.Label, req.Contract, req.Interface, req.Event, window.From, window.Last())
		if err != nil {
			return nil, err
		}

		if err := fn(window, logs); err != nil {
			return nil, fmt.Errorf("handle window %d-%d: %w", window.From, window.Last(), err)
		}
		result.Windows++
		result.Logs += len(logs)
	}

	return result, nil
}
