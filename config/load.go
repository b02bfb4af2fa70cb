package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 启动期配置错误，进程不应带着它启动。
var ErrInvalidConfig = errors.New("invalid config")

// AppConfig holds the main runtime configuration. Loaded once at startup and
// immutable for the process lifetime.
type AppConfig struct {
	Env         string        `yaml:"env"`
	Asset       string        `yaml:"asset"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Grid        GridConfig    `yaml:"grid"`
	Logger      LoggerConfig  `yaml:"logger"`
	MetricsAddr string        `yaml:"metricsAddr"`
}

type GatewayConfig struct {
	BaseURL       string  `yaml:"baseURL"`
	WSEndpoint    string  `yaml:"wsEndpoint"`
	WalletAddress string  `yaml:"walletAddress"`
	PrivateKey    string  `yaml:"privateKey"`
	RestRate      float64 `yaml:"restRate"`  // REST 限流：每秒令牌数
	RestBurst     int     `yaml:"restBurst"` // REST 限流：突发令牌数
}

// GridConfig 网格参数（来自交易所约束与策略选择）。
type GridConfig struct {
	LowerBound        float64 `yaml:"lowerBound"`
	UpperBound        float64 `yaml:"upperBound"`
	MaxLevels         int     `yaml:"maxLevels"`
	MinOrderSize      float64 `yaml:"minOrderSize"`
	QuoteReserve      float64 `yaml:"quoteReserve"` // 保留不动用的计价币比例 [0,1)
	CompoundThreshold float64 `yaml:"compoundThreshold"`
	PlanIntervalSec   int     `yaml:"planIntervalSec"`
	FillQueueSize     int     `yaml:"fillQueueSize"`
}

// LoggerConfig mirrors infrastructure/logger knobs so the whole file stays one YAML.
type LoggerConfig struct {
	Level      string   `yaml:"level"`
	Outputs    []string `yaml:"outputs"`
	OutputFile string   `yaml:"outputFile"`
	Format     string   `yaml:"format"`
	MaxSizeMB  int      `yaml:"maxSizeMB"`
	MaxBackups int      `yaml:"maxBackups"`
	MaxAgeDays int      `yaml:"maxAgeDays"`
}

// PlanInterval 返回规划周期时长。
func (g GridConfig) PlanInterval() time.Duration {
	return time.Duration(g.PlanIntervalSec) * time.Second
}

// Load reads YAML config from path, applies defaults and validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env
// vars if present. A .env file next to the binary is honored when it exists.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	_ = godotenv.Load()
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("GRID_WALLET_ADDRESS"); v != "" {
		cfg.Gateway.WalletAddress = v
	}
	if v := os.Getenv("GRID_PRIVATE_KEY"); v != "" {
		cfg.Gateway.PrivateKey = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Grid.PlanIntervalSec == 0 {
		cfg.Grid.PlanIntervalSec = 300
	}
	if cfg.Grid.FillQueueSize == 0 {
		cfg.Grid.FillQueueSize = 64
	}
	if cfg.Gateway.RestRate == 0 {
		cfg.Gateway.RestRate = 5
	}
	if cfg.Gateway.RestBurst == 0 {
		cfg.Gateway.RestBurst = 10
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if len(cfg.Logger.Outputs) == 0 {
		cfg.Logger.Outputs = []string{"stdout"}
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
}

// Validate ensures required fields are present and grid invariants hold.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return fmt.Errorf("%w: env is required", ErrInvalidConfig)
	}
	if cfg.Asset == "" {
		return fmt.Errorf("%w: asset is required", ErrInvalidConfig)
	}
	if cfg.Gateway.WalletAddress == "" || cfg.Gateway.PrivateKey == "" {
		return fmt.Errorf("%w: gateway.walletAddress/privateKey is required (or env overrides)", ErrInvalidConfig)
	}
	g := cfg.Grid
	if g.LowerBound <= 0 {
		return fmt.Errorf("%w: grid.lowerBound must be > 0", ErrInvalidConfig)
	}
	if g.LowerBound >= g.UpperBound {
		return fmt.Errorf("%w: grid.lowerBound must be < grid.upperBound", ErrInvalidConfig)
	}
	if g.MaxLevels < 2 {
		return fmt.Errorf("%w: grid.maxLevels must be >= 2", ErrInvalidConfig)
	}
	if g.MinOrderSize <= 0 {
		return fmt.Errorf("%w: grid.minOrderSize must be > 0", ErrInvalidConfig)
	}
	if g.QuoteReserve < 0 || g.QuoteReserve >= 1 {
		return fmt.Errorf("%w: grid.quoteReserve must be in [0,1)", ErrInvalidConfig)
	}
	if g.CompoundThreshold <= 0 {
		return fmt.Errorf("%w: grid.compoundThreshold must be > 0", ErrInvalidConfig)
	}
	if g.PlanIntervalSec <= 0 {
		return fmt.Errorf("%w: grid.planIntervalSec must be > 0", ErrInvalidConfig)
	}
	if g.FillQueueSize <= 0 {
		return fmt.Errorf("%w: grid.fillQueueSize must be > 0", ErrInvalidConfig)
	}
	return nil
}
