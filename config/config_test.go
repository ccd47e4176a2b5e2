package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campd.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config written: %v", err)
	}
	if cfg.RPCAddress != ":8080" || cfg.TokenSymbol != "CMP" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campd.toml")
	contents := `
RPCAddress = ":9545"
DataDir = "/tmp/camp"
TokenSymbol = "RWD"
DirectoryAdmin = "0x00000000000000000000000000000000000000a0"
DefaultTaxRecipient = "0x00000000000000000000000000000000000000d0"
DefaultTaxRateBps = 500

[[GenesisBalances]]
Address = "0x00000000000000000000000000000000000000c0"
Amount = "1000"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CAMPCHAIN_RPC_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9545" || cfg.TokenSymbol != "RWD" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RPCAuthToken != "env-token" {
		t.Fatalf("expected env token override, got %q", cfg.RPCAuthToken)
	}
	if cfg.DefaultTaxRateBps != 500 {
		t.Fatalf("unexpected tax rate %d", cfg.DefaultTaxRateBps)
	}
	admin, err := cfg.AdminAddress()
	if err != nil {
		t.Fatalf("admin address: %v", err)
	}
	if admin[19] != 0xA0 {
		t.Fatalf("unexpected admin %x", admin)
	}
	if len(cfg.GenesisBalances) != 1 || cfg.GenesisBalances[0].Amount != "1000" {
		t.Fatalf("unexpected genesis balances: %+v", cfg.GenesisBalances)
	}
	// Unset fields still receive defaults.
	if cfg.MetricsAddress != ":9090" {
		t.Fatalf("expected default metrics address, got %q", cfg.MetricsAddress)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	valid := "0x" + strings.Repeat("00", 20)
	cases := []struct {
		name string
		cfg  Config
	}{
		{"tax rate over cap", Config{DirectoryAdmin: valid, DefaultTaxRecipient: valid, DefaultTaxRateBps: 10_001}},
		{"short admin", Config{DirectoryAdmin: "0x1234", DefaultTaxRecipient: valid}},
		{"bad genesis address", Config{DirectoryAdmin: valid, DefaultTaxRecipient: valid, GenesisBalances: []GenesisBalance{{Address: "nope", Amount: "1"}}}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Fatalf("case %q: expected validation error", tc.name)
		}
	}
}
