package stakedao

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/integration-sdk-go/client/clienttest"
	"github.com/weisyn/integration-sdk-go/integration"
)

// TestGetParticipants_Basic 跨窗口去重，目标区块之后的存款不计入
func TestGetParticipants_Basic(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(120)
	addDeposit(t, backend, 101, userA)
	addDeposit(t, backend, 115, userA)
	addDeposit(t, backend, 119, userB)
	addDeposit(t, backend, 120, userC) // 链头区块，不在 [start, head) 内
	addDeposit(t, backend, 99, userC)  // 早于起始区块

	s := newTestIntegration(t, backend, 100, 10)

	participants, err := s.GetParticipants(context.Background())
	require.NoError(t, err, "发现参与者失败")
	assert.Equal(t, 2, participants.Len())
	assert.Equal(t, []common.Address{userA, userB}, participants.Addresses())

	// 两个不重叠的闭区间查询
	queries := backend.LogQueries()
	require.Len(t, queries, 2)
	assert.Equal(t, uint64(100), queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(109), queries[0].ToBlock.Uint64())
	assert.Equal(t, uint64(110), queries[1].FromBlock.Uint64())
	assert.Equal(t, uint64(119), queries[1].ToBlock.Uint64())
	for _, q := range queries {
		assert.Equal(t, []common.Address{testVault}, q.Addresses)
	}
}

// TestGetParticipants_Cached 成功发现后不再扫描
func TestGetParticipants_Cached(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(50)
	addDeposit(t, backend, 10, userA)

	s := newTestIntegration(t, backend, 0, 0)

	first, err := s.GetParticipants(context.Background())
	require.NoError(t, err)
	queries := len(backend.LogQueries())

	// 新存款不影响已缓存的集合
	backend.SetHead(100)
	addDeposit(t, backend, 60, userB)

	second, err := s.GetParticipants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Addresses(), second.Addresses())
	assert.Equal(t, 1, backend.BlockNumberCalls(), "链头只应读取一次")
	assert.Equal(t, queries, len(backend.LogQueries()), "不应再次扫描")
}

// TestGetParticipants_Concurrent 并发调用只触发一次发现
func TestGetParticipants_Concurrent(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(5000)
	addDeposit(t, backend, 42, userA)

	s := newTestIntegration(t, backend, 0, 1000)

	var wg sync.WaitGroup
	results := make([]integration.ParticipantSet, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.GetParticipants(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Contains(userA))
	}
	assert.Equal(t, 1, backend.BlockNumberCalls())
	assert.Len(t, backend.LogQueries(), 5)
}

// TestGetParticipants_FailureNotCached 发现失败时不缓存，下次调用重新扫描
func TestGetParticipants_FailureNotCached(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(30)
	addDeposit(t, backend, 5, userA)
	addDeposit(t, backend, 25, userB)

	boom := errors.New("query returned more than 10000 results")
	backend.FailLogs(func(q ethereum.FilterQuery) error {
		if q.FromBlock.Uint64() >= 20 {
			return boom
		}
		return nil
	})

	s := newTestIntegration(t, backend, 0, 10)

	_, err := s.GetParticipants(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "discover participants")

	backend.FailLogs(nil)

	participants, err := s.GetParticipants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{userA, userB}, participants.Addresses())
	assert.Equal(t, 2, backend.BlockNumberCalls(), "应重新读取链头")
}

// TestGetParticipants_HeadError 读取链头失败
func TestGetParticipants_HeadError(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.FailHead(errors.New("connection refused"))

	s := newTestIntegration(t, backend, 0, 0)

	_, err := s.GetParticipants(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chain head")
	assert.Empty(t, backend.LogQueries())
}

// TestGetParticipants_EmptyRange 起始区块不早于链头时集合为空
func TestGetParticipants_EmptyRange(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(100)

	s := newTestIntegration(t, backend, 100, 0)

	participants, err := s.GetParticipants(context.Background())
	require.NoError(t, err)
	assert.Zero(t, participants.Len())
	assert.Empty(t, backend.LogQueries())
}

// TestGetParticipants_Canceled 取消的上下文中止扫描
func TestGetParticipants_Canceled(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(100)

	s := newTestIntegration(t, backend, 0, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetParticipants(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsParticipant(t *testing.T) {
	backend := clienttest.NewBackend()
	backend.SetHead(100)
	addDeposit(t, backend, 50, userA)

	s := newTestIntegration(t, backend, 0, 0)

	ok, err := s.IsParticipant(context.Background(), userA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsParticipant(context.Background(), userC)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, backend.BlockNumberCalls())
}
