package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/presbrey/asset-index/internal/manifest"
)

// Config holds all configuration for the index generator
type Config struct {
	Root        string `env:"ASSET_INDEX_ROOT" envDefault:"."`
	TargetsFile string `env:"ASSET_INDEX_TARGETS"`
	Verbose     bool   `env:"ASSET_INDEX_VERBOSE" envDefault:"false"`
}

// Load parses the configuration from environment variables
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}

// Targets returns the targets from TargetsFile, or the defaults when unset
func (c Config) Targets() ([]manifest.Target, error) {
	if c.TargetsFile == "" {
		return manifest.DefaultTargets(), nil
	}
	return manifest.LoadTargetsFile(c.TargetsFile)
}
