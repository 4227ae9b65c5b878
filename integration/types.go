package integration

import "fmt"

// Chain 链标识
type Chain string

const (
	ChainEthereum  Chain = "ethereum"
	ChainArbitrum  Chain = "arbitrum"
	ChainBase      Chain = "base"
	ChainOptimism  Chain = "optimism"
	ChainBlast     Chain = "blast"
	ChainMantle    Chain = "mantle"
	ChainFraxtal   Chain = "fraxtal"
	ChainSolana    Chain = "solana"
	ChainSwell     Chain = "swell"
	ChainSonic     Chain = "sonic"
	ChainHyperEVM  Chain = "hyperevm"
	ChainZircuit   Chain = "zircuit"
	ChainBinance   Chain = "binance"
	ChainLinea     Chain = "linea"
	ChainPolygon   Chain = "polygon"
	ChainScroll    Chain = "scroll"
	ChainAvalanche Chain = "avalanche"
)

var knownChains = map[Chain]struct{}{
	ChainEthereum: {}, ChainArbitrum: {}, ChainBase: {}, ChainOptimism: {},
	ChainBlast: {}, ChainMantle: {}, ChainFraxtal: {}, ChainSolana: {},
	ChainSwell: {}, ChainSonic: {}, ChainHyperEVM: {}, ChainZircuit: {},
	ChainBinance: {}, ChainLinea: {}, ChainPolygon: {}, ChainScroll: {},
	ChainAvalanche: {},
}

// ParseChain 解析链名称
func ParseChain(name string) (Chain, error) {
	chain := Chain(name)
	if _, ok := knownChains[chain]; !ok {
		return "", fmt.Errorf("unknown chain %q", name)
	}
	return chain, nil
}

// Token 集成计量所用的代币
type Token string

const (
	TokenUSDe   Token = "USDe"
	TokenSUSDe  Token = "sUSDe"
	TokenENA    Token = "ENA"
	TokenSENA   Token = "sENA"
	TokenUSDtb  Token = "USDtb"
	TokenPTUSDe Token = "PT-USDe"
)

// SummaryColumn 汇总报表的附加列名
type SummaryColumn string

// ID 集成身份：列名、描述、计量代币
//
// 列名在所有集成中唯一
type ID struct {
	Column      string
	Description string
	Token       Token
}

// String 返回列名
func (id ID) String() string {
	return id.Column
}

// Validate 检查身份字段
func (id ID) Validate() error {
	if id.Column == "" {
		return fmt.Errorf("integration column name required")
	}
	if id.Description == "" {
		return fmt.Errorf("integration %s: description required", id.Column)
	}
	if id.Token == "" {
		return fmt.Errorf("integration %s: token required", id.Column)
	}
	return nil
}
