package tierconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveIsDeterministic(t *testing.T) {
	r, err := New("", RateLimitConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := r.Resolve("customer-42")
	b := r.Resolve("customer-42")
	if a != b {
		t.Fatalf("expected identical config for the same key, got %+v vs %+v", a, b)
	}
}

func TestResolveVariesAcrossKeys(t *testing.T) {
	r, err := New("", RateLimitConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := map[RateLimitConfig]bool{}
	for i := 0; i < 50; i++ {
		cfg := r.Resolve(filepath.Join("key", string(rune('a'+i))))
		seen[cfg] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected tiering to produce more than one distinct config across 50 keys")
	}
}

func TestResolveAllPositive(t *testing.T) {
	r, err := New("", RateLimitConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := r.Resolve("any-key")
	if cfg.InputTPM <= 0 || cfg.OutputTPM <= 0 || cfg.RPM <= 0 {
		t.Fatalf("expected all-positive config, got %+v", cfg)
	}
}

func TestOverrideTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	content := `{"vip-customer": {"input_tpm": 999999, "output_tpm": 999999, "rpm": 9999}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing overrides fixture: %v", err)
	}

	r, err := New(path, RateLimitConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := r.Resolve("vip-customer")
	want := RateLimitConfig{InputTPM: 999999, OutputTPM: 999999, RPM: 9999}
	if cfg != want {
		t.Fatalf("expected override config %+v, got %+v", want, cfg)
	}

	other := r.Resolve("not-overridden")
	if other == want {
		t.Fatal("expected non-overridden key to fall back to deterministic tiering")
	}
}

func TestNewRejectsMissingFile(t *testing.T) {
	if _, err := New("/nonexistent/overrides.json", RateLimitConfig{}); err == nil {
		t.Fatal("expected an error for a missing overrides file")
	}
}

func TestCeilingClampsDerivedTier(t *testing.T) {
	r, err := New("", RateLimitConfig{InputTPM: 1, OutputTPM: 1, RPM: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := r.Resolve("any-key")
	want := RateLimitConfig{InputTPM: 1, OutputTPM: 1, RPM: 1}
	if cfg != want {
		t.Fatalf("expected ceiling to clamp every dimension to 1, got %+v", cfg)
	}
}

func TestCeilingClampsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	content := `{"vip-customer": {"input_tpm": 999999, "output_tpm": 999999, "rpm": 9999}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing overrides fixture: %v", err)
	}

	r, err := New(path, RateLimitConfig{InputTPM: 100, OutputTPM: 100, RPM: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg := r.Resolve("vip-customer")
	want := RateLimitConfig{InputTPM: 100, OutputTPM: 100, RPM: 100}
	if cfg != want {
		t.Fatalf("expected ceiling to clamp an override too, got %+v", cfg)
	}
}

func TestZeroCeilingMeansUncapped(t *testing.T) {
	unclamped, err := New("", RateLimitConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clamped, err := New("", RateLimitConfig{InputTPM: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := unclamped.Resolve("any-key")
	b := clamped.Resolve("any-key")
	if b.InputTPM != 1 {
		t.Fatalf("expected InputTPM clamped to 1, got %d", b.InputTPM)
	}
	if b.OutputTPM != a.OutputTPM || b.RPM != a.RPM {
		t.Fatal("expected OutputTPM/RPM to remain uncapped when their ceiling is zero")
	}
}
