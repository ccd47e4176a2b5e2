package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// GenesisBalance seeds a reward-token balance at startup.
type GenesisBalance struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

type Config struct {
	RPCAddress          string           `toml:"RPCAddress"`
	MetricsAddress      string           `toml:"MetricsAddress"`
	DataDir             string           `toml:"DataDir"`
	Environment         string           `toml:"Environment"`
	RPCAuthToken        string           `toml:"RPCAuthToken"`
	TokenSymbol         string           `toml:"TokenSymbol"`
	DirectoryAdmin      string           `toml:"DirectoryAdmin"`
	DefaultTaxRecipient string           `toml:"DefaultTaxRecipient"`
	DefaultTaxRateBps   uint32           `toml:"DefaultTaxRateBps"`
	GenesisBalances     []GenesisBalance `toml:"GenesisBalances"`
}

// Load reads the configuration at path, creating a default file when none
// exists. The RPC auth token may be overridden through CAMPCHAIN_RPC_TOKEN.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if token := strings.TrimSpace(os.Getenv("CAMPCHAIN_RPC_TOKEN")); token != "" {
		cfg.RPCAuthToken = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./campchain-data"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "CMP"
	}
	if cfg.GenesisBalances == nil {
		cfg.GenesisBalances = []GenesisBalance{}
	}
}

// Validate checks the fields main cannot start without.
func (c *Config) Validate() error {
	if c.DefaultTaxRateBps > 10_000 {
		return fmt.Errorf("config: DefaultTaxRateBps %d exceeds 10000", c.DefaultTaxRateBps)
	}
	if _, err := c.AdminAddress(); err != nil {
		return fmt.Errorf("config: DirectoryAdmin: %w", err)
	}
	if _, err := c.TaxRecipientAddress(); err != nil {
		return fmt.Errorf("config: DefaultTaxRecipient: %w", err)
	}
	for i, balance := range c.GenesisBalances {
		if _, err := ParseAddress(balance.Address); err != nil {
			return fmt.Errorf("config: GenesisBalances[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) AdminAddress() ([20]byte, error) {
	return ParseAddress(c.DirectoryAdmin)
}

func (c *Config) TaxRecipientAddress() ([20]byte, error) {
	return ParseAddress(c.DefaultTaxRecipient)
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("address must be 20 hex bytes, got %q", value)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address encoding: %w", err)
	}
	copy(addr[:], raw)
	return addr, nil
}

// createDefault writes a commented starter configuration and returns it. The
// directory admin defaults to the zero address and must be filled in before
// the service will pass validation on the next load.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:          ":8080",
		MetricsAddress:      ":9090",
		DataDir:             "./campchain-data",
		Environment:         "local",
		TokenSymbol:         "CMP",
		DirectoryAdmin:      "0x" + strings.Repeat("00", 20),
		DefaultTaxRecipient: "0x" + strings.Repeat("00", 20),
		DefaultTaxRateBps:   0,
		GenesisBalances:     []GenesisBalance{},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
