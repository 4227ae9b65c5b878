package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/integration-sdk-go/client"
	"github.com/weisyn/integration-sdk-go/utils"
)

var (
	// ErrUnknownMethod 接口描述中不存在该方法
	ErrUnknownMethod = errors.New("unknown contract method")
	// ErrUnknownEvent 接口描述中不存在该事件
	ErrUnknownEvent = errors.New("unknown contract event")
	// ErrDecodeFailed 返回值或日志解码失败
	ErrDecodeFailed = errors.New("decode failed")
	// ErrEmptyResult 调用返回空数据（该区块上合约不存在或方法未实现）
	ErrEmptyResult = errors.New("empty call result")
)

// Service Contract 只读服务接口
type Service interface {
	// Call 在指定区块调用合约只读方法，返回解码后的输出列表
	Call(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) ([]interface{}, error)

	// CallAddress 调用返回 address 的方法（取第一个输出）
	CallAddress(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) (common.Address, error)

	// CallUint 调用返回 uint256 的方法（取第一个输出）
	CallUint(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) (*big.Int, error)

	// FetchLogs 查询 [fromBlock, toBlock]（闭区间）内的事件日志并解码参数
	FetchLogs(ctx context.Context, label string, contract common.Address, iface *Interface, event string, fromBlock, toBlock uint64) ([]*Log, error)
}

// Log 解码后的事件日志
type Log struct {
	Address     common.Address
	BlockNumber uint64
	TxHash      common.Hash
	Index       uint
	// Args 按参数名索引的事件参数（包含 indexed 参数）
	Args map[string]interface{}
}

// contractService Contract 服务实现
type contractService struct {
	client client.Client
	logger client.Logger
}

// NewService 创建 Contract 服务
func NewService(c client.Client, logger client.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &contractService{
		client: c,
		logger: logger,
	}
}

// Call 在指定区块调用合约只读方法
func (s *contractService) Call(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	// 1. 编码调用数据
	data, err := iface.pack(method, args...)
	if err != nil {
		return nil, err
	}

	// 2. 在指定区块执行 eth_call
	msg := ethereum.CallMsg{To: &contract, Data: data}
	out, err := s.client.CallContract(ctx, msg, new(big.Int).SetUint64(block))
	if err != nil {
		return nil, fmt.Errorf("call %s.%s at %s (block %d) failed: %w", iface.Name(), method, contract.Hex(), block, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s.%s at %s (block %d)", ErrEmptyResult, iface.Name(), method, contract.Hex(), block)
	}

	// 3. 解码返回值
	return iface.unpack(method, out)
}

// CallAddress 调用返回 address 的方法
func (s *contractService) CallAddress(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) (common.Address, error) {
	values, err := s.Call(ctx, contract, iface, method, block, args...)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := utils.AddressAt(values, 0)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s.%s: %v", ErrDecodeFailed, iface.Name(), method, err)
	}
	return addr, nil
}

// CallUint 调用返回 uint256 的方法
func (s *contractService) CallUint(ctx context.Context, contract common.Address, iface *Interface, method string, block uint64, args ...interface{}) (*big.Int, error) {
	values, err := s.Call(ctx, contract, iface, method, block, args...)
	if err != nil {
		return nil, err
	}
	n, err := utils.BigIntAt(values, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrDecodeFailed, iface.Name(), method, err)
	}
	return n, nil
}

// FetchLogs 查询并解码事件日志
func (s *contractService) FetchLogs(ctx context.Context, label string, contract common.Address, iface *Interface, event string, fromBlock, toBlock uint64) ([]*Log, error) {
	ev, err := iface.Event(event)
	if err != nil {
		return nil, err
	}
	if fromBlock > toBlock {
		return nil, fmt.Errorf("invalid block range: from %d > to %d", fromBlock, toBlock)
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{ev.ID}},
	}

	raw, err := s.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("[%s] fetch %s logs %d-%d failed: %w", label, event, fromBlock, toBlock, err)
	}

	indexed := indexedArguments(ev.Inputs)
	logs := make([]*Log, 0, len(raw))
	for i := range raw {
		entry := &raw[i]
		// 跳过链重组移除的日志以及不匹配的事件
		if entry.Removed || len(entry.Topics) == 0 || entry.Topics[0] != ev.ID {
			continue
		}

		args := make(map[string]interface{}, len(ev.Inputs))
		if err := iface.abi.UnpackIntoMap(args, event, entry.Data); err != nil {
			return nil, fmt.Errorf("%w: [%s] %s data in tx %s: %v", ErrDecodeFailed, label, event, entry.TxHash.Hex(), err)
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, entry.Topics[1:]); err != nil {
			return nil, fmt.Errorf("%w: [%s] %s topics in tx %s: %v", ErrDecodeFailed, label, event, entry.TxHash.Hex(), err)
		}

		logs = append(logs, &Log{
			Address:     entry.Address,
			BlockNumber: entry.BlockNumber,
			TxHash:      entry.TxHash,
			Index:       entry.Index,
			Args:        args,
		})
	}

	s.logger.Debug("Fetched logs", "label", label, "event", event, "from", fromBlock, "to", toBlock, "count", len(logs))
	return logs, nil
}

// indexedArguments 过滤出 indexed 参数（对应 topics[1:]）
func indexedArguments(inputs abi.Arguments) abi.Arguments {
	var indexed abi.Arguments
	for _, arg := range inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
