// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rovshanmuradov/lp-sniper/internal/detector"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
	"github.com/rovshanmuradov/lp-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/lp-sniper/internal/gateway"
	"github.com/rovshanmuradov/lp-sniper/internal/position"
	"github.com/rovshanmuradov/lp-sniper/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const EnvPrefix = "SNIPER"

type Config struct {
	RPCList              []string               `mapstructure:"rpc_list"`
	WebSocketURL         string                 `mapstructure:"websocket_url"`
	ProgramID            string                 `mapstructure:"program_id"`
	PoolMarker           string                 `mapstructure:"pool_marker"`
	Commitment           string                 `mapstructure:"commitment"`
	BaseMint             string                 `mapstructure:"base_mint"`
	OpenAmount           string                 `mapstructure:"open_amount"`
	SellThreshold        string                 `mapstructure:"sell_threshold"`
	ThresholdMode        string                 `mapstructure:"threshold_mode"`
	SellFraction         string                 `mapstructure:"sell_fraction"`
	EvaluationIntervalMs int                    `mapstructure:"evaluation_interval_ms"`
	ExtractWorkers       int                    `mapstructure:"extract_workers"`
	EventBuffer          int                    `mapstructure:"event_buffer"`
	Slippage             gateway.SlippageConfig `mapstructure:"slippage"`
	Gateway              GatewayConfig          `mapstructure:"gateway"`
	WalletFile           string                 `mapstructure:"wallet_file"`
	WalletName           string                 `mapstructure:"wallet_name"`
	PrivateKey           string                 `mapstructure:"private_key"`
	Storage              StorageConfig          `mapstructure:"storage"`
	Log                  LogConfig              `mapstructure:"log"`
	MetricsAddr          string                 `mapstructure:"metrics_addr"`
}

type GatewayConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	AuthHeader    string  `mapstructure:"auth_header"`
	Project       string  `mapstructure:"project"`
	ComputeLimit  uint32  `mapstructure:"compute_limit"`
	ComputePrice  string  `mapstructure:"compute_price"`
	Tip           string  `mapstructure:"tip"`
	SubmitMode    string  `mapstructure:"submit_mode"`
	SkipPreflight bool    `mapstructure:"skip_preflight"`
	Memo          string  `mapstructure:"memo"`
	TimeoutMs     int     `mapstructure:"timeout_ms"`
	RatePerSec    float64 `mapstructure:"rate_per_sec"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	PortfolioPath string `mapstructure:"portfolio_path"`
	TradeLogPath  string `mapstructure:"trade_log_path"`
	TradeCSVPath  string `mapstructure:"trade_csv_path"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisKey      string `mapstructure:"redis_key"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

const (
	DefaultEvaluationIntervalMs = 60000
	DefaultExtractWorkers       = 4
	DefaultEventBuffer          = 1024
	DefaultGatewayTimeoutMs     = 15000
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_list":               []string{},
		"websocket_url":          "",
		"program_id":             detector.RaydiumAMMV4,
		"pool_marker":            eventlistener.DefaultMarker,
		"commitment":             "finalized",
		"base_mint":              position.WSOLMint,
		"open_amount":            position.DefaultOpenAmount.String(),
		"sell_threshold":         position.DefaultSellThreshold.String(),
		"threshold_mode":         string(position.ThresholdAbsolute),
		"sell_fraction":          position.DefaultSellFraction.String(),
		"evaluation_interval_ms": DefaultEvaluationIntervalMs,
		"extract_workers":        DefaultExtractWorkers,
		"event_buffer":           DefaultEventBuffer,
		"slippage.type":          string(gateway.SlippagePercent),
		"slippage.value":         1.0,
		"gateway.base_url":       gateway.DefaultBaseURL,
		"gateway.auth_header":    "",
		"gateway.project":        gateway.DefaultProject,
		"gateway.compute_limit":  gateway.DefaultComputeLimit,
		"gateway.compute_price":  gateway.DefaultComputePrice,
		"gateway.tip":            "",
		"gateway.submit_mode":    string(gateway.SubmitGateway),
		"gateway.skip_preflight": false,
		"gateway.memo":           "",
		"gateway.timeout_ms":     DefaultGatewayTimeoutMs,
		"gateway.rate_per_sec":   gateway.DefaultRatePerSec,
		"wallet_file":            "configs/wallets.yaml",
		"wallet_name":            "",
		"private_key":            "",
		"storage.backend":        storage.BackendFile,
		"storage.portfolio_path": "data/portfolio.json",
		"storage.trade_log_path": "data/transaction.log",
		"storage.trade_csv_path": "",
		"storage.sqlite_path":    "data/sniper.db",
		"storage.dsn":            "",
		"storage.redis_addr":     "",
		"storage.redis_key":      "",
		"log.file":               "logs/sniper.log",
		"log.debug":              false,
		"metrics_addr":           "",
	}
}

// LoadConfig читает файл конфигурации, .env и переменные окружения SNIPER_*.
// Пустой path допустим: тогда всё берётся из окружения.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.E(domain.KindConfig, "config.Load", fmt.Errorf("read .env: %w", err))
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, domain.E(domain.KindConfig, "config.Load", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.E(domain.KindConfig, "config.Load", err)
	}
	loadEnvironmentVariables(v, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvironmentVariables разбирает списки, которые viper не делит по запятым.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, rpc := range strings.Split(envRPCList, ",") {
		if clean := strings.TrimSpace(rpc); clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}

func (c *Config) Validate() error {
	const op = "config.Validate"
	if len(c.RPCList) == 0 {
		return domain.Errorf(domain.KindConfig, op, "rpc_list is empty")
	}
	for _, rpcURL := range c.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return domain.Errorf(domain.KindConfig, op, "rpc_list entry %s: %v", MaskRPCForLogging(rpcURL), err)
		}
	}
	if c.WebSocketURL == "" {
		return domain.Errorf(domain.KindConfig, op, "websocket_url is required")
	}
	if err := validateURL(c.WebSocketURL, "ws"); err != nil {
		return domain.Errorf(domain.KindConfig, op, "websocket_url: %v", err)
	}
	if c.ProgramID == "" {
		return domain.Errorf(domain.KindConfig, op, "program_id is required")
	}
	if c.EvaluationIntervalMs <= 0 {
		return domain.Errorf(domain.KindConfig, op, "invalid evaluation_interval_ms %d", c.EvaluationIntervalMs)
	}
	if c.ExtractWorkers <= 0 {
		return domain.Errorf(domain.KindConfig, op, "invalid extract_workers %d", c.ExtractWorkers)
	}
	if c.EventBuffer <= 0 {
		return domain.Errorf(domain.KindConfig, op, "invalid event_buffer %d", c.EventBuffer)
	}
	if err := c.Slippage.Validate(); err != nil {
		return domain.E(domain.KindConfig, op, err)
	}
	switch gateway.SubmitMode(c.Gateway.SubmitMode) {
	case gateway.SubmitGateway, gateway.SubmitRPC:
	default:
		return domain.Errorf(domain.KindConfig, op, "unknown gateway.submit_mode %q", c.Gateway.SubmitMode)
	}
	if c.Gateway.AuthHeader == "" {
		return domain.Errorf(domain.KindConfig, op, "gateway.auth_header is required")
	}
	if c.PrivateKey == "" && c.WalletFile == "" {
		return domain.Errorf(domain.KindConfig, op, "either private_key or wallet_file must be set")
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	_, err := c.PositionConfig()
	return err
}

func (c *Config) validateStorage() error {
	const op = "config.Validate"
	s := c.Storage
	switch s.Backend {
	case storage.BackendFile:
		if s.PortfolioPath == "" || s.TradeLogPath == "" {
			return domain.Errorf(domain.KindConfig, op, "storage.portfolio_path and storage.trade_log_path are required")
		}
	case storage.BackendSQLite:
		if s.SQLitePath == "" {
			return domain.Errorf(domain.KindConfig, op, "storage.sqlite_path is required")
		}
	case storage.BackendPostgres:
		if s.DSN == "" {
			return domain.Errorf(domain.KindConfig, op, "storage.dsn is required for postgres")
		}
	case storage.BackendRedis:
		if s.RedisAddr == "" || s.TradeLogPath == "" {
			return domain.Errorf(domain.KindConfig, op, "storage.redis_addr and storage.trade_log_path are required for redis")
		}
	default:
		return domain.Errorf(domain.KindConfig, op, "unknown storage.backend %q", s.Backend)
	}
	return nil
}

// PositionConfig converts the decimal strings into the position manager settings.
func (c *Config) PositionConfig() (position.Config, error) {
	const op = "config.PositionConfig"
	parse := func(key, raw string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, domain.Errorf(domain.KindConfig, op, "%s: %v", key, err)
		}
		return d, nil
	}

	open, err := parse("open_amount", c.OpenAmount)
	if err != nil {
		return position.Config{}, err
	}
	threshold, err := parse("sell_threshold", c.SellThreshold)
	if err != nil {
		return position.Config{}, err
	}
	fraction, err := parse("sell_fraction", c.SellFraction)
	if err != nil {
		return position.Config{}, err
	}

	pc := position.Config{
		BaseMint:      c.BaseMint,
		OpenAmount:    open,
		SellThreshold: threshold,
		SellFraction:  fraction,
		ThresholdMode: position.ThresholdMode(c.ThresholdMode),
	}
	if err := pc.Validate(); err != nil {
		return position.Config{}, err
	}
	return pc, nil
}

func (c *Config) GatewayConfig() gateway.Config {
	g := c.Gateway
	return gateway.Config{
		BaseURL:       g.BaseURL,
		AuthHeader:    g.AuthHeader,
		Project:       g.Project,
		ComputeLimit:  g.ComputeLimit,
		ComputePrice:  g.ComputePrice,
		Tip:           g.Tip,
		SubmitMode:    gateway.SubmitMode(g.SubmitMode),
		SkipPreflight: g.SkipPreflight,
		Memo:          g.Memo,
		Timeout:       time.Duration(g.TimeoutMs) * time.Millisecond,
		RatePerSec:    g.RatePerSec,
		BaseMint:      c.BaseMint,
		Slippage:      c.Slippage,
	}
}

func (c *Config) EvaluationInterval() time.Duration {
	return time.Duration(c.EvaluationIntervalMs) * time.Millisecond
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return fmt.Errorf("invalid URL protocol %q, want %s*", parsed.Scheme, protocol)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// MaskRPCForLogging скрывает ключи API в URL: значения query-параметров,
// учётные данные и длинные сегменты пути.
func MaskRPCForLogging(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.User = nil

	if u.RawQuery != "" {
		parts := strings.Split(u.RawQuery, "&")
		for i, part := range parts {
			if k, _, ok := strings.Cut(part, "="); ok {
				parts[i] = k + "=***"
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if len(seg) >= 20 {
			segments[i] = "***"
		}
	}
	u.Path = strings.Join(segments, "/")
	u.RawPath = ""

	return strings.Replace(u.String(), "%2A%2A%2A", "***", -1)
}
