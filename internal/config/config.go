// Package config loads jetid settings.
// Precedence, highest first: flags, JETID_* environment, YAML file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/jetid/internal/jetid"
)

// Config holds every jetid setting.
type Config struct {
	// Version is the calibration era, e.g. "CRAFT08".
	Version string `yaml:"version" json:"version"`

	// Quality is "LOOSE" or "TIGHT".
	Quality string `yaml:"quality" json:"quality"`

	// DisabledCuts are cut names that always pass.
	DisabledCuts []string `yaml:"disabled_cuts" json:"disabled_cuts"`

	// CorrectionLevel documents the energy correction the cuts read.
	// The CRAFT08 cuts are defined on L3 only.
	CorrectionLevel string `yaml:"correction_level" json:"correction_level"`

	DBPath   string `yaml:"db_path" json:"db_path"`
	GRPCAddr string `yaml:"grpc_addr" json:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr" json:"http_addr"`

	// LogMode is "dev", "prod" or "silent".
	LogMode string `yaml:"log_mode" json:"log_mode"`
}

const defaultConfigFile = "jetid.yaml"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:         jetid.CRAFT08.String(),
		Quality:         jetid.Loose.String(),
		CorrectionLevel: string(jetid.L3),
		DBPath:          "jetid.db",
		GRPCAddr:        "localhost:50061",
		HTTPAddr:        ":8088",
		LogMode:         "dev",
	}
}

// Load resolves the configuration. path may be empty, in which case
// JETID_CONFIG and then ./jetid.yaml are tried; a missing default file is fine.
func Load(path string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := strings.TrimSpace(os.Getenv("JETID_CONFIG")); v != "" {
			path, explicit = v, true
		} else {
			path = defaultConfigFile
		}
	}

	fileCfg, err := loadFromPath(path)
	switch {
	case err == nil:
		cfg = merge(cfg, fileCfg)
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg = applyEnv(cfg)
	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}
	return cfg, cfg.Validate()
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("JETID_VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("JETID_QUALITY"); v != "" {
		cfg.Quality = v
	}
	if v, ok := os.LookupEnv("JETID_DISABLED_CUTS"); ok {
		cfg.DisabledCuts = splitList(v)
	}
	if v := os.Getenv("JETID_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("JETID_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("JETID_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("JETID_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	return cfg
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// A nil DisabledCuts leaves dst alone; an empty non-nil list clears it.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Version, src.Version)
	mergeStr(&dst.Quality, src.Quality)
	mergeStr(&dst.CorrectionLevel, src.CorrectionLevel)
	mergeStr(&dst.DBPath, src.DBPath)
	mergeStr(&dst.GRPCAddr, src.GRPCAddr)
	mergeStr(&dst.HTTPAddr, src.HTTPAddr)
	mergeStr(&dst.LogMode, src.LogMode)
	if src.DisabledCuts != nil {
		dst.DisabledCuts = append([]string(nil), src.DisabledCuts...)
	}
	return dst
}

// Validate checks names without building a selector.
func (c *Config) Validate() error {
	_, err := c.Selector()
	return err
}

// Selector builds a selector with the configured cuts disabled.
func (c *Config) Selector() (*jetid.Selector, error) {
	v, err := jetid.ParseVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	q, err := jetid.ParseQuality(c.Quality)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.CorrectionLevel != "" && jetid.CorrectionLevel(c.CorrectionLevel) != jetid.L3 {
		return nil, fmt.Errorf("config: correction level %q not supported by %s, want %s", c.CorrectionLevel, v, jetid.L3)
	}
	switch c.LogMode {
	case "", "dev", "prod", "silent":
	default:
		return nil, fmt.Errorf("config: unknown log mode %q", c.LogMode)
	}

	sel := jetid.New(v, q)
	for _, name := range c.DisabledCuts {
		if err := sel.Disable(name); err != nil {
			return nil, fmt.Errorf("config: disabled_cuts: %w", err)
		}
	}
	return sel, nil
}
