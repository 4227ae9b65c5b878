// Package clienttest provides an in-memory client.Client for tests.
//
// Contract calls are answered by handlers registered per (address, method);
// calldata is decoded and return values encoded with the real ABI, so code
// under test exercises the same packing it would against a node.
package clienttest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallHandler answers one decoded contract call.
type CallHandler func(args []interface{}, block *big.Int) ([]interface{}, error)

// Call is a recorded contract call.
type Call struct {
	To     common.Address
	Method string
	Args   []interface{}
	Block  *big.Int
}

type callKey struct {
	to       common.Address
	selector [4]byte
}

type handlerEntry struct {
	method abi.Method
	fn     CallHandler
}

// Backend is a programmable chain. The zero value is not usable; call NewBackend.
type Backend struct {
	mu sync.Mutex

	head    uint64
	headErr error

	handlers map[callKey]handlerEntry
	logs     []types.Log
	logsErr  func(query ethereum.FilterQuery) error

	calls            []Call
	logQueries       []ethereum.FilterQuery
	blockNumberCalls int
	closed           bool
}

// NewBackend returns an empty chain with head 0.
func NewBackend() *Backend {
	return &Backend{handlers: make(map[callKey]handlerEntry)}
}

// SetHead sets the block number returned by BlockNumber.
func (b *Backend) SetHead(head uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = head
}

// FailHead makes BlockNumber return err.
func (b *Backend) FailHead(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headErr = err
}

// Handle registers fn for calls of method on contract at addr.
func (b *Backend) Handle(addr common.Address, parsed abi.ABI, method string, fn CallHandler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("clienttest: method %s not in abi", method))
	}
	var selector [4]byte
	copy(selector[:], m.ID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[callKey{to: addr, selector: selector}] = handlerEntry{method: m, fn: fn}
}

// Return registers fixed outputs for method on addr, whatever the block.
func (b *Backend) Return(addr common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	b.Handle(addr, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return outputs, nil
	})
}

// Fail makes calls of method on addr return err.
func (b *Backend) Fail(addr common.Address, parsed abi.ABI, method string, err error) {
	b.Handle(addr, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return nil, err
	})
}

// AddLogs appends logs served by FilterLogs.
func (b *Backend) AddLogs(logs ...types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs = append(b.logs, logs...)
}

// FailLogs makes FilterLogs consult fn before answering; a non-nil result is returned as the error.
func (b *Backend) FailLogs(fn func(query ethereum.FilterQuery) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logsErr = fn
}

// Calls returns the recorded contract calls in order.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// LogQueries returns the recorded FilterLogs queries in order.
func (b *Backend) LogQueries() []ethereum.FilterQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ethereum.FilterQuery(nil), b.logQueries...)
}

// BlockNumberCalls returns how many times BlockNumber was called.
func (b *Backend) BlockNumberCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockNumberCalls
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// BlockNumber implements client.Client.
func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockNumberCalls++
	if b.headErr != nil {
		return 0, b.headErr
	}
	return b.head, nil
}

// CallContract implements client.Client.
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, fmt.Errorf("clienttest: call without target")
	}
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("clienttest: calldata too short")
	}

	var selector [4]byte
	copy(selector[:], msg.Data[:4])

	b.mu.Lock()
	entry, ok := b.handlers[callKey{to: *msg.To, selector: selector}]
	b.mu.Unlock()

	// 未注册的方法返回空数据，与调用不存在的合约一致
	if !ok {
		b.record(Call{To: *msg.To, Method: fmt.Sprintf("0x%x", selector), Block: copyBlock(blockNumber)})
		return nil, nil
	}

	args, err := entry.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("clienttest: decode %s args: %w", entry.method.Name, err)
	}
	b.record(Call{To: *msg.To, Method: entry.method.Name, Args: args, Block: copyBlock(blockNumber)})

	outputs, err := entry.fn(args, blockNumber)
	if err != nil {
		return nil, err
	}
	return entry.method.Outputs.Pack(outputs...)
}

// FilterLogs implements client.Client. Ranges are inclusive on both ends.
func (b *Backend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.logQueries = append(b.logQueries, query)
	if b.logsErr != nil {
		if err := b.logsErr(query); err != nil {
			return nil, err
		}
	}

	var out []types.Log
	for _, l := range b.logs {
		if matches(query, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Close implements client.Client.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) record(c Call) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
}

func matches(q ethereum.FilterQuery, l types.Log) bool {
	if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func copyBlock(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}

// EventLog builds a log for event emitted by addr at block. args follow the
// event's input order; indexed ones become topics.
func EventLog(addr common.Address, ev abi.Event, block uint64, args ...interface{}) (types.Log, error) {
	if len(args) != len(ev.Inputs) {
		return types.Log{}, fmt.Errorf("clienttest: %s takes %d args, got %d", ev.Name, len(ev.Inputs), len(args))
	}

	topics := []common.Hash{ev.ID}
	var data []interface{}
	for i, input := range ev.Inputs {
		if !input.Indexed {
			data = append(data, args[i])
			continue
		}
		encoded, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			return types.Log{}, fmt.Errorf("clienttest: topic %s: %w", input.Name, err)
		}
		topics = append(topics, encoded[0][0])
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return types.Log{}, fmt.Errorf("clienttest: pack %s data: %w", ev.Name, err)
	}

	return types.Log{
		Address:     addr,
		Topics:      topics,
		Data:        packed,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	}, nil
}
