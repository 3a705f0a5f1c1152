// Package config loads the module-wide settings file. Every path the
// scoring layer touches is explicit configuration; nothing is derived from
// the working directory or the install location.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v2"
)

// Config is the plecscore.yaml structure.
type Config struct {
	// HomeDir holds descriptor CSVs, parameter documents and model
	// artifacts.
	HomeDir string `yaml:"home_dir"`
	// PDBBindDir is the root of the local PDBBind mirror.
	PDBBindDir string `yaml:"pdbbind_dir"`
	// PDBBindVersions lists the releases used for descriptor generation.
	PDBBindVersions []int `yaml:"pdbbind_versions"`
	// NJobs caps worker parallelism; <=0 means all available cores.
	NJobs int `yaml:"n_jobs"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HomeDir:         ".",
		PDBBindVersions: []int{2016},
		NJobs:           -1,
	}
}

// Load reads a YAML configuration file. Missing optional fields fall back
// to the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if cfg.HomeDir == "" {
		cfg.HomeDir = "."
	}
	if len(cfg.PDBBindVersions) == 0 {
		cfg.PDBBindVersions = []int{2016}
	}
	return cfg, nil
}

// Save writes the configuration back to disk.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Workers resolves the parallelism hint to a concrete worker count.
func (c *Config) Workers() int {
	if c.NJobs > 0 {
		return c.NJobs
	}
	return runtime.NumCPU()
}
