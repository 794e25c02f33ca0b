package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execute latencies per functional unit class.
type TimingConfig struct {
	// ALULatency is the execute latency of ALU operations
	// (ADD, SUB, logic, shifts, generic). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// MultiplyLatency is the execute latency of MUL and DIV. Default: 4 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// LoadStoreLatency is the execute latency of LW and SW in the scalar
	// pipeline. Default: 3 cycles.
	LoadStoreLatency uint64 `json:"load_store_latency"`

	// BranchLatency is the execute latency of branches and jumps.
	// Default: 2 cycles.
	BranchLatency uint64 `json:"branch_latency"`

	// SuperscalarLoadStoreLatency is the LW/SW latency in the superscalar
	// pipeline, which has no separate memory stage. Default: 3 cycles.
	SuperscalarLoadStoreLatency uint64 `json:"superscalar_load_store_latency"`

	// SuperscalarMultiplyLatency is the MUL/DIV latency on the dedicated
	// superscalar multiply unit. Default: 4 cycles.
	SuperscalarMultiplyLatency uint64 `json:"superscalar_multiply_latency"`
}

// DefaultTimingConfig returns the reference latencies.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:                  1,
		MultiplyLatency:             4,
		LoadStoreLatency:            3,
		BranchLatency:               2,
		SuperscalarLoadStoreLatency: 3,
		SuperscalarMultiplyLatency:  4,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.LoadStoreLatency == 0 {
		return fmt.Errorf("load_store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.SuperscalarLoadStoreLatency == 0 {
		return fmt.Errorf("superscalar_load_store_latency must be > 0")
	}
	if c.SuperscalarMultiplyLatency == 0 {
		return fmt.Errorf("superscalar_multiply_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
