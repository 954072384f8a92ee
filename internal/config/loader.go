package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
)

// LoadFile loads a config file (HCL or JSON), applies environment overrides
// and defaults, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cfg, err = LoadJSON(data)
	default:
		cfg, err = LoadHCL(data, path)
	}
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadFileOrDefault behaves like LoadFile but returns the defaults when path
// does not exist.
func LoadFileOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return finish(&Config{})
	}
	return LoadFile(path)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnv(cfg, os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadHCL decodes HCL bytes without applying defaults.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	return &cfg, nil
}

// LoadJSON decodes JSON bytes without applying defaults.
func LoadJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides settings from WIFICONF_* variables. getenv is
// os.Getenv outside tests.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	prefix := brand.ConfigEnvPrefix + "_"
	if v := getenv(prefix + "WIFI_INTERFACE"); v != "" {
		cfg.WifiInterface = v
	}
	if v := getenv(prefix + "LISTEN"); v != "" {
		if cfg.Server == nil {
			cfg.Server = &ServerConfig{}
		}
		cfg.Server.Listen = v
	}
	if v := getenv(prefix + "LOG_LEVEL"); v != "" {
		if cfg.Log == nil {
			cfg.Log = &LogConfig{}
		}
		cfg.Log.Level = v
	}
}

// GenerateHCL renders cfg as HCL using hclwrite for formatting.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(cfg, f.Body())
	return hclwrite.Format(f.Bytes())
}
