// Package contract provides contract service implementation.
//
// ABI Helper 统一封装合约接口描述（ABI）的加载
// 默认描述随 SDK 内嵌（abi/*.json），也可以从外部 JSON 文件加载以覆盖

package contract

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/*.json
var embeddedABI embed.FS

// 内嵌接口描述名称
const (
	VaultInterfaceName        = "stakedao_vault"
	PendleMarketInterfaceName = "pendle_lpt"
	ERC20InterfaceName        = "erc20"
)

var (
	vaultInterface        = mustLoadEmbedded(VaultInterfaceName)
	pendleMarketInterface = mustLoadEmbedded(PendleMarketInterfaceName)
	erc20Interface        = mustLoadEmbedded(ERC20InterfaceName)
)

// Interface 合约接口描述
type Interface struct {
	name string
	abi  abi.ABI
}

// Vault Stake DAO vault 接口（token / liquidityGauge / Deposit 事件）
func Vault() *Interface { return vaultInterface }

// PendleMarket Pendle LP 市场接口（readTokens / activeBalance / totalActiveSupply）
func PendleMarket() *Interface { return pendleMarketInterface }

// ERC20 通用同质化代币接口
func ERC20() *Interface { return erc20Interface }

// LoadInterface 从 JSON ABI 加载接口描述
func LoadInterface(name string, r io.Reader) (*Interface, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return nil, fmt.Errorf("parse abi %s: %w", name, err)
	}
	return &Interface{name: name, abi: parsed}, nil
}

// LoadInterfaceFile 从 JSON ABI 文件加载接口描述
func LoadInterfaceFile(name, path string) (*Interface, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abi %s: %w", name, err)
	}
	return LoadInterface(name, bytes.NewReader(raw))
}

func mustLoadEmbedded(name string) *Interface {
	raw, err := embeddedABI.ReadFile("abi/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("embedded abi %s missing: %v", name, err))
	}
	iface, err := LoadInterface(name, bytes.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return iface
}

// Name 接口名称（用于日志与错误信息）
func (i *Interface) Name() string {
	return i.name
}

// ABI 底层 go-ethereum ABI
func (i *Interface) ABI() abi.ABI {
	return i.abi
}

// Method 按名称查找方法
func (i *Interface) Method(name string) (abi.Method, error) {
	method, ok := i.abi.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, i.name, name)
	}
	return method, nil
}

// Event 按名称查找事件
func (i *Interface) Event(name string) (abi.Event, error) {
	event, ok := i.abi.Events[name]
	if !ok {
		return abi.Event{}, fmt.Errorf("%w: %s.%s", ErrUnknownEvent, i.name, name)
	}
	return event, nil
}

// pack 编码调用数据
func (i *Interface) pack(method string, args ...interface{}) ([]byte, error) {
	if _, err := i.Method(method); err != nil {
		return nil, err
	}
	data, err := i.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", i.name, method, err)
	}
	return data, nil
}

// unpack 解码返回值
func (i *Interface) unpack(method string, data []byte) ([]interface{}, error) {
	values, err := i.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s.%s: %v", ErrDecodeFailed, i.name, method, err)
	}
	return values, nil
}
