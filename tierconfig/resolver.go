// Package tierconfig implements the Configuration Resolver: a
// coordination-free, deterministic mapping from an APIKey to its
// RateLimitConfig (spec.md §4.4). Two nodes holding no shared state
// agree on the config for every key because the derivation is a pure
// function of the key bytes.
package tierconfig

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
)

// RateLimitConfig is the three positive-integer ceiling set resolved
// for one APIKey (spec.md §3).
type RateLimitConfig struct {
	InputTPM  int
	OutputTPM int
	RPM       int
}

// Tier tables are deployment configuration constants: every node MUST
// run with the identical tables, or config resolution diverges.
var (
	inputTPMTiers  = []int{10_000, 20_000, 40_000, 60_000, 100_000, 500_000, 1_000_000}
	outputTPMTiers = []int{2_000, 5_000, 10_000, 20_000, 40_000, 100_000, 250_000}
	rpmTiers       = []int{10, 30, 60, 120, 300, 600, 1_000}
)

// Resolver resolves an APIKey to its RateLimitConfig, consulting a
// read-only static override map first and falling back to deterministic
// hash-based tiering (spec.md §4.4).
type Resolver struct {
	mu        sync.RWMutex
	overrides map[string]RateLimitConfig
	ceiling   RateLimitConfig
}

// New constructs a Resolver. overridesPath, if non-empty, names a JSON
// file mapping api_key -> {input_tpm, output_tpm, rpm} loaded once at
// startup; the override table is never reloaded or mutated afterward.
// ceiling caps every resolved value — override or derived — at the
// INPUT_TPM_DEFAULT/OUTPUT_TPM_DEFAULT/RPM_DEFAULT env ceilings (spec.md
// §6); a zero field in ceiling is treated as "no cap" for that dimension.
func New(overridesPath string, ceiling RateLimitConfig) (*Resolver, error) {
	r := &Resolver{overrides: map[string]RateLimitConfig{}, ceiling: ceiling}
	if overridesPath == "" {
		return r, nil
	}

	raw, err := os.ReadFile(overridesPath)
	if err != nil {
		return nil, fmt.Errorf("tierconfig: reading overrides file: %w", err)
	}

	var parsed map[string]struct {
		InputTPM  int `json:"input_tpm"`
		OutputTPM int `json:"output_tpm"`
		RPM       int `json:"rpm"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("tierconfig: parsing overrides file: %w", err)
	}

	for key, v := range parsed {
		r.overrides[key] = RateLimitConfig{InputTPM: v.InputTPM, OutputTPM: v.OutputTPM, RPM: v.RPM}
	}
	return r, nil
}

// Resolve returns key's RateLimitConfig. Deterministic across every
// process holding the same tier tables and override file.
func (r *Resolver) Resolve(key string) RateLimitConfig {
	r.mu.RLock()
	cfg, ok := r.overrides[key]
	r.mu.RUnlock()

	if !ok {
		cfg = RateLimitConfig{
			InputTPM:  inputTPMTiers[tierIndex(key, "input_tpm", len(inputTPMTiers))],
			OutputTPM: outputTPMTiers[tierIndex(key, "output_tpm", len(outputTPMTiers))],
			RPM:       rpmTiers[tierIndex(key, "rpm", len(rpmTiers))],
		}
	}

	return r.applyCeiling(cfg)
}

// applyCeiling clamps cfg to r.ceiling, dimension by dimension. A zero
// ceiling value leaves that dimension unclamped.
func (r *Resolver) applyCeiling(cfg RateLimitConfig) RateLimitConfig {
	if r.ceiling.InputTPM > 0 && cfg.InputTPM > r.ceiling.InputTPM {
		cfg.InputTPM = r.ceiling.InputTPM
	}
	if r.ceiling.OutputTPM > 0 && cfg.OutputTPM > r.ceiling.OutputTPM {
		cfg.OutputTPM = r.ceiling.OutputTPM
	}
	if r.ceiling.RPM > 0 && cfg.RPM > r.ceiling.RPM {
		cfg.RPM = r.ceiling.RPM
	}
	return cfg
}

// tierIndex derives an index into a table of size n from an FNV-1a hash
// of key salted by dimension, so the three dimensions each get their own
// hash and vary independently rather than moving in lockstep.
func tierIndex(key, dimension string, n int) int {
	h := fnv.New64a()
	h.Write([]byte(dimension))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(n))
}
