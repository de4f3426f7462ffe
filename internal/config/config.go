// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/logannye/rosalind/internal/rerr"
	"github.com/logannye/rosalind/internal/workspace"
)

// Engine holds the tunables shared by both subcommands. Zero values select
// the defaults; an optional YAML file overrides them.
type Engine struct {
	// FMBlockSize is the FM-index rank checkpoint stride B_fm.
	FMBlockSize int `yaml:"fm_block_size"`
	// SASampleRate is the suffix-array sampling rate s.
	SASampleRate int `yaml:"sa_sample_rate"`
	// ReadBatch is the aligner's block size (reads per evaluator block).
	// 0 means √(total reads).
	ReadBatch int `yaml:"read_batch"`
	// VariantBlock is the variant caller's block size b_v in bases.
	// 0 means √(region length).
	VariantBlock int `yaml:"variant_block"`
	// CandidateCap is the aligner's per-read candidate cap M.
	CandidateCap int `yaml:"candidate_cap"`
	// MinReadLength: shorter reads are emitted with zero candidates.
	MinReadLength int `yaml:"min_read_length"`
	// MaxReadLength bounds the read-buffer slice; longer reads are rejected.
	MaxReadLength int `yaml:"max_read_length"`
	// PoolFactor is c in the workspace capacity c·√N.
	PoolFactor float64 `yaml:"pool_factor"`
	// PoolShares carves the workspace by component; must sum to 1.0.
	PoolShares workspace.Shares `yaml:"pool_shares"`
}

// Default returns the stock tuning.
func Default() Engine {
	return Engine{
		FMBlockSize:   512,
		SASampleRate:  16,
		CandidateCap:  64,
		MinReadLength: 1,
		MaxReadLength: 4096,
		PoolFactor:    8,
		PoolShares: workspace.Shares{
			"reads":     0.50,
			"pileup":    0.30,
			"summaries": 0.20,
		},
	}
}

// Load reads a YAML tuning file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Engine, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: config %s: %v", rerr.ErrInvalidInput, path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: config %s: %v", rerr.ErrInvalidInput, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: config %s: %v", rerr.ErrInvalidInput, path, err)
	}
	return cfg, nil
}

// Validate rejects tunings the engine cannot honor.
func (c Engine) Validate() error {
	if c.FMBlockSize < 16 {
		return fmt.Errorf("fm_block_size %d below minimum 16", c.FMBlockSize)
	}
	if c.SASampleRate < 1 {
		return fmt.Errorf("sa_sample_rate %d must be ≥ 1", c.SASampleRate)
	}
	if c.CandidateCap < 1 {
		return fmt.Errorf("candidate_cap %d must be ≥ 1", c.CandidateCap)
	}
	if c.MinReadLength < 1 {
		return fmt.Errorf("min_read_length %d must be ≥ 1", c.MinReadLength)
	}
	if c.MaxReadLength < c.MinReadLength {
		return fmt.Errorf("max_read_length %d below min_read_length %d", c.MaxReadLength, c.MinReadLength)
	}
	if c.PoolFactor <= 0 {
		return fmt.Errorf("pool_factor %g must be positive", c.PoolFactor)
	}
	if c.ReadBatch < 0 || c.VariantBlock < 0 {
		return fmt.Errorf("block sizes must be ≥ 0")
	}
	return c.PoolShares.Validate()
}
