package stakedao

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/integration-sdk-go/client/clienttest"
	"github.com/weisyn/integration-sdk-go/integration"
	"github.com/weisyn/integration-sdk-go/services/contract"
)

const testBlock uint64 = 19_000_000

var (
	testVault = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testPool  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testSY    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testPT    = common.HexToAddress("0x3000000000000000000000000000000000000004")
	testYT    = common.HexToAddress("0x3000000000000000000000000000000000000005")
	testGauge = common.HexToAddress("0x4000000000000000000000000000000000000004")

	userA = common.HexToAddress("0xa00000000000000000000000000000000000000a")
	userB = common.HexToAddress("0xb00000000000000000000000000000000000000b")
	userC = common.HexToAddress("0xc00000000000000000000000000000000000000c")
)

func testID() integration.ID {
	return integration.ID{
		Column:      "stakedao_pendle_usde_lp",
		Description: "Stake DAO Pendle USDe LP",
		Token:       integration.TokenUSDe,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chainState 一个区块上的链上状态
type chainState struct {
	marketSY     *big.Int
	lockerActive *big.Int
	totalActive  *big.Int
	gaugeSupply  *big.Int
	gaugeBalance map[common.Address]*big.Int
}

// newTestIntegration 创建基于内存链的集成
func newTestIntegration(t *testing.T, backend *clienttest.Backend, startBlock uint64, pageSize uint64) *Integration {
	t.Helper()

	s, err := New(backend, DefaultConfig(testID(), startBlock), Options{
		Vault:    testVault,
		PageSize: pageSize,
	}, discardLogger())
	require.NoError(t, err, "创建集成失败")
	return s
}

// installState 注册五跳读取所需的合约应答
func installState(backend *clienttest.Backend, state chainState) {
	vault := contract.Vault().ABI()
	market := contract.PendleMarket().ABI()
	erc20 := contract.ERC20().ABI()

	backend.Return(testVault, vault, "token", testPool)
	backend.Return(testVault, vault, "liquidityGauge", testGauge)
	backend.Return(testPool, market, "readTokens", testSY, testPT, testYT)

	backend.Handle(testSY, erc20, "balanceOf", func(args []interface{}, _ *big.Int) ([]interface{}, error) {
		if args[0].(common.Address) == testPool {
			return []interface{}{state.marketSY}, nil
		}
		return []interface{}{new(big.Int)}, nil
	})
	backend.Handle(testPool, market, "activeBalance", func(args []interface{}, _ *big.Int) ([]interface{}, error) {
		if args[0].(common.Address) == PendleLocker {
			return []interface{}{state.lockerActive}, nil
		}
		return []interface{}{new(big.Int)}, nil
	})
	backend.Return(testPool, market, "totalActiveSupply", state.totalActive)

	backend.Return(testGauge, erc20, "totalSupply", state.gaugeSupply)
	backend.Handle(testGauge, erc20, "balanceOf", func(args []interface{}, _ *big.Int) ([]interface{}, error) {
		if balance, ok := state.gaugeBalance[args[0].(common.Address)]; ok {
			return []interface{}{balance}, nil
		}
		return []interface{}{new(big.Int)}, nil
	})
}

// addDeposit 添加 vault 的 Deposit 日志
func addDeposit(t *testing.T, backend *clienttest.Backend, block uint64, depositor common.Address) {
	t.Helper()

	ev, err := contract.Vault().Event(DepositEvent)
	require.NoError(t, err)
	log, err := clienttest.EventLog(testVault, ev, block, depositor, big.NewInt(1))
	require.NoError(t, err)
	backend.AddLogs(log)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}
