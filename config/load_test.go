package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
env: prod
asset: FEUSD
gateway:
  baseURL: https://api.test
  wsEndpoint: wss://api.test/ws
  walletAddress: "0xabc"
  privateKey: "0xdef"
grid:
  lowerBound: 0.98
  upperBound: 1.20
  maxLevels: 100
  minOrderSize: 11
  quoteReserve: 0.10
  compoundThreshold: 1.0
  planIntervalSec: 300
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Asset != "FEUSD" || cfg.Grid.UpperBound != 1.20 {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	// defaults
	if cfg.Grid.FillQueueSize != 64 {
		t.Errorf("FillQueueSize default = %d, want 64", cfg.Grid.FillQueueSize)
	}
	if cfg.Gateway.RestRate != 5 || cfg.Gateway.RestBurst != 10 {
		t.Errorf("rest limiter defaults not applied: %+v", cfg.Gateway)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Errorf("logger defaults not applied: %+v", cfg.Logger)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GRID_WALLET_ADDRESS", "0xenv")
	t.Setenv("GRID_PRIVATE_KEY", "0xenvkey")
	cfg, err := LoadWithEnvOverrides(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.WalletAddress != "0xenv" || cfg.Gateway.PrivateKey != "0xenvkey" {
		t.Fatalf("env overrides not applied: %+v", cfg.Gateway)
	}
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		cfg, err := Load(writeTempConfig(t, validYAML))
		if err != nil {
			t.Fatalf("load base config: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty", func(c *AppConfig) { *c = AppConfig{} }},
		{"zero lower bound", func(c *AppConfig) { c.Grid.LowerBound = 0 }},
		{"inverted bounds", func(c *AppConfig) { c.Grid.LowerBound, c.Grid.UpperBound = 1.2, 0.98 }},
		{"max levels below 2", func(c *AppConfig) { c.Grid.MaxLevels = 1 }},
		{"zero min order", func(c *AppConfig) { c.Grid.MinOrderSize = 0 }},
		{"reserve of 1", func(c *AppConfig) { c.Grid.QuoteReserve = 1.0 }},
		{"negative reserve", func(c *AppConfig) { c.Grid.QuoteReserve = -0.1 }},
		{"zero threshold", func(c *AppConfig) { c.Grid.CompoundThreshold = 0 }},
		{"zero interval", func(c *AppConfig) { c.Grid.PlanIntervalSec = -1 }},
		{"missing key", func(c *AppConfig) { c.Gateway.PrivateKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v must wrap ErrInvalidConfig", err)
			}
		})
	}
}
