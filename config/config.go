// Package config 加载 YAML 配置文件：节点连接、日志以及各 Stake DAO 集成
package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/weisyn/integration-sdk-go/client"
	"github.com/weisyn/integration-sdk-go/integration"
	"github.com/weisyn/integration-sdk-go/services/contract"
	"github.com/weisyn/integration-sdk-go/services/stakedao"
	"github.com/weisyn/integration-sdk-go/utils"
)

// Duration 支持 "1500ms"、"30s" 形式的 YAML 时长
type Duration struct {
	time.Duration
}

// UnmarshalYAML 解析可读时长字符串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must not be negative", raw)
	}
	d.Duration = parsed
	return nil
}

// Config 配置文件根结构
type Config struct {
	Logging      LoggingConfig       `yaml:"logging"`
	Client       ClientConfig        `yaml:"client"`
	ABI          ABIConfig           `yaml:"abi"`
	Integrations []IntegrationConfig `yaml:"integrations"`
}

// LoggingConfig 日志配置（见 logging.Setup）
type LoggingConfig struct {
	Service string `yaml:"service"`
	Env     string `yaml:"env"`
	Level   string `yaml:"level"`
}

// ClientConfig 节点连接配置
type ClientConfig struct {
	Endpoint          string      `yaml:"endpoint"`
	Protocol          string      `yaml:"protocol"`
	Timeout           Duration    `yaml:"timeout"`
	InsecureTLS       bool        `yaml:"insecure_tls"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	Burst             int         `yaml:"burst"`
	Debug             bool        `yaml:"debug"`
	Retry             RetryConfig `yaml:"retry"`
}

// RetryConfig 重试配置，未填写的字段取 client.DefaultRetryConfig
type RetryConfig struct {
	MaxRetries        *int     `yaml:"max_retries"`
	InitialDelay      Duration `yaml:"initial_delay"`
	MaxDelay          Duration `yaml:"max_delay"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
}

// ABIConfig 覆盖内嵌接口描述的 JSON ABI 文件路径
type ABIConfig struct {
	Vault  string `yaml:"vault"`
	Market string `yaml:"market"`
	Token  string `yaml:"token"`
}

// IntegrationConfig 单个 Stake DAO vault 集成
type IntegrationConfig struct {
	Column      string `yaml:"column"`
	Description string `yaml:"description"`
	Token       string `yaml:"token"`
	Chain       string `yaml:"chain"`

	Vault  string `yaml:"vault"`
	Locker string `yaml:"locker"`

	StartBlock uint64  `yaml:"start_block"`
	EndBlock   *uint64 `yaml:"end_block"`
	PageSize   uint64  `yaml:"page_size"`

	RewardMultiplier  *int `yaml:"reward_multiplier"`
	BalanceMultiplier *int `yaml:"balance_multiplier"`

	// Excluded 为空时排除 locker
	Excluded       []string `yaml:"excluded"`
	SummaryColumns []string `yaml:"summary_columns"`
}

// Load 读取并校验配置文件
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse 解析并校验 YAML 配置
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Service == "" {
		cfg.Logging.Service = "stakedao-integration"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Client.Protocol == "" {
		cfg.Client.Protocol = string(client.ProtocolHTTP)
	}
	if cfg.Client.Timeout.Duration == 0 {
		cfg.Client.Timeout.Duration = 30 * time.Second
	}
	for i := range cfg.Integrations {
		if cfg.Integrations[i].Chain == "" {
			cfg.Integrations[i].Chain = string(integration.ChainEthereum)
		}
	}
}

// Validate 检查连接参数与每个集成
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.Endpoint) == "" {
		return fmt.Errorf("client endpoint must be configured")
	}
	switch client.Protocol(c.Client.Protocol) {
	case client.ProtocolHTTP, client.ProtocolWebSocket:
	default:
		return fmt.Errorf("client protocol %q not supported", c.Client.Protocol)
	}
	if c.Client.RequestsPerSecond < 0 {
		return fmt.Errorf("client requests_per_second must not be negative")
	}
	if r := c.Client.Retry; r.MaxRetries != nil && *r.MaxRetries < 0 {
		return fmt.Errorf("client retry max_retries must not be negative")
	}

	columns := make(map[string]struct{}, len(c.Integrations))
	for i := range c.Integrations {
		entry := &c.Integrations[i]
		if _, _, err := entry.Build(); err != nil {
			return fmt.Errorf("integration #%d: %w", i, err)
		}
		if _, dup := columns[entry.Column]; dup {
			return fmt.Errorf("integration #%d: duplicate column %q", i, entry.Column)
		}
		columns[entry.Column] = struct{}{}
	}
	return nil
}

// ClientConfig 转换为 client.Config
func (c *Config) ClientConfig(logger client.Logger) *client.Config {
	retry := client.DefaultRetryConfig()
	if r := c.Client.Retry; r.MaxRetries != nil {
		retry.MaxRetries = *r.MaxRetries
	}
	if d := c.Client.Retry.InitialDelay.Duration; d > 0 {
		retry.InitialDelay = int(d / time.Millisecond)
	}
	if d := c.Client.Retry.MaxDelay.Duration; d > 0 {
		retry.MaxDelay = int(d / time.Millisecond)
	}
	if m := c.Client.Retry.BackoffMultiplier; m > 0 {
		retry.BackoffMultiplier = m
	}

	cfg := &client.Config{
		Endpoint:          strings.TrimSpace(c.Client.Endpoint),
		Protocol:          client.Protocol(c.Client.Protocol),
		Timeout:           int(math.Ceil(c.Client.Timeout.Seconds())),
		Retry:             retry,
		RequestsPerSecond: c.Client.RequestsPerSecond,
		Burst:             c.Client.Burst,
		Debug:             c.Client.Debug,
		Logger:            logger,
	}
	if c.Client.InsecureTLS {
		cfg.TLS = &client.TLSConfig{Insecure: true}
	}
	return cfg
}

// Interfaces 加载 ABI 覆盖，未配置的使用内嵌描述
func (c *Config) Interfaces() (vault, market, token *contract.Interface, err error) {
	load := func(path string, name string, fallback *contract.Interface) (*contract.Interface, error) {
		if strings.TrimSpace(path) == "" {
			return fallback, nil
		}
		return contract.LoadInterfaceFile(name, path)
	}

	if vault, err = load(c.ABI.Vault, contract.VaultInterfaceName, contract.Vault()); err != nil {
		return nil, nil, nil, err
	}
	if market, err = load(c.ABI.Market, contract.PendleMarketInterfaceName, contract.PendleMarket()); err != nil {
		return nil, nil, nil, err
	}
	if token, err = load(c.ABI.Token, contract.ERC20InterfaceName, contract.ERC20()); err != nil {
		return nil, nil, nil, err
	}
	return vault, market, token, nil
}

// NewIntegrations 按配置顺序创建全部集成
func (c *Config) NewIntegrations(cl client.Client, logger client.Logger) ([]*stakedao.Integration, error) {
	vault, market, token, err := c.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]*stakedao.Integration, 0, len(c.Integrations))
	for i := range c.Integrations {
		cfg, opts, err := c.Integrations[i].Build()
		if err != nil {
			return nil, fmt.Errorf("integration #%d: %w", i, err)
		}
		opts.VaultInterface = vault
		opts.MarketInterface = market
		opts.TokenInterface = token

		s, err := stakedao.New(cl, cfg, opts, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Build 转换为 integration.Config 与 stakedao.Options
func (e *IntegrationConfig) Build() (integration.Config, stakedao.Options, error) {
	var opts stakedao.Options

	id := integration.ID{
		Column:      strings.TrimSpace(e.Column),
		Description: strings.TrimSpace(e.Description),
		Token:       integration.Token(strings.TrimSpace(e.Token)),
	}
	if err := id.Validate(); err != nil {
		return integration.Config{}, opts, err
	}

	chain, err := integration.ParseChain(e.Chain)
	if err != nil {
		return integration.Config{}, opts, fmt.Errorf("integration %s: %w", id, err)
	}

	vault, err := utils.ParseAddress(e.Vault)
	if err != nil {
		return integration.Config{}, opts, fmt.Errorf("integration %s: vault: %w", id, err)
	}
	opts.Vault = vault
	opts.Locker = stakedao.PendleLocker
	if strings.TrimSpace(e.Locker) != "" {
		if opts.Locker, err = utils.ParseAddress(e.Locker); err != nil {
			return integration.Config{}, opts, fmt.Errorf("integration %s: locker: %w", id, err)
		}
	}
	opts.PageSize = e.PageSize

	cfg := stakedao.DefaultConfig(id, e.StartBlock)
	cfg.Chain = chain
	cfg.ExcludedAddresses = []common.Address{opts.Locker}
	if e.EndBlock != nil {
		end := *e.EndBlock
		cfg.EndBlock = &end
	}
	if e.RewardMultiplier != nil {
		cfg.RewardMultiplier = *e.RewardMultiplier
	}
	if e.BalanceMultiplier != nil {
		cfg.BalanceMultiplier = *e.BalanceMultiplier
	}
	if len(e.Excluded) > 0 {
		if cfg.ExcludedAddresses, err = utils.ParseAddresses(e.Excluded); err != nil {
			return integration.Config{}, opts, fmt.Errorf("integration %s: excluded: %w", id, err)
		}
	}
	for _, col := range e.SummaryColumns {
		cfg.SummaryColumns = append(cfg.SummaryColumns, integration.SummaryColumn(col))
	}

	if err := cfg.Validate(); err != nil {
		return integration.Config{}, opts, err
	}
	return cfg, opts, nil
}
