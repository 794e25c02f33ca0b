package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
	"github.com/sarchlab/pipesim/timing/thread"
)

// Config is the full simulator configuration.
type Config struct {
	// Pipeline selects the scalar or the superscalar engine.
	Pipeline pipeline.Kind `json:"pipeline"`
	// Threading selects how thread contexts are merged and issued.
	Threading thread.Mode `json:"threading"`
	// Forwarding enables the forwarding paths.
	Forwarding bool `json:"forwarding"`
	// BMTBlockSize is the number of consecutive instructions per thread in
	// blocked multithreading.
	BMTBlockSize int `json:"bmt_block_size"`
	// StrictOps rejects unknown operations instead of treating them as
	// generic ALU operations.
	StrictOps bool `json:"strict_ops"`

	Timing      *latency.TimingConfig      `json:"timing"`
	Superscalar pipeline.SuperscalarConfig `json:"superscalar"`
}

// DefaultConfig returns a scalar, single-threaded configuration without
// forwarding.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:     pipeline.KindScalar,
		Threading:    thread.ModeNone,
		BMTBlockSize: thread.DefaultBlockSize,
		Timing:       latency.DefaultTimingConfig(),
		Superscalar:  pipeline.DefaultSuperscalarConfig(),
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, &ConfigurationError{Field: "config", Value: path, Err: err}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal returns the indented JSON form of the Config.
func (c *Config) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return data, nil
}

// Validate checks every configuration value.
func (c *Config) Validate() error {
	if c.BMTBlockSize < 1 {
		return &ConfigurationError{
			Field: "bmt_block_size",
			Value: fmt.Sprint(c.BMTBlockSize),
			Err:   fmt.Errorf("must be at least 1"),
		}
	}

	if c.Timing == nil {
		return &ConfigurationError{Field: "timing", Value: "null"}
	}
	if err := c.Timing.Validate(); err != nil {
		return &ConfigurationError{Field: "timing", Value: "", Err: err}
	}

	if err := c.Superscalar.Validate(); err != nil {
		return &ConfigurationError{Field: "superscalar", Value: "", Err: err}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	clone.Superscalar = c.Superscalar.Clone()
	return &clone
}
