package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opcpublisher/plcharness/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	c := config.DefaultConfig()
	if c.Image != "mcr.microsoft.com/iotedge/opc-plc" {
		t.Fatalf("unexpected default image %q", c.Image)
	}
	if c.ContainerName != "opcplc" || c.Hostname != "opcplc" {
		t.Fatalf("unexpected name/hostname %q/%q", c.ContainerName, c.Hostname)
	}
	if c.Port != 50000 {
		t.Fatalf("expected port 50000, got %d", c.Port)
	}
	if c.ListLimit != 10 {
		t.Fatalf("expected list limit 10, got %d", c.ListLimit)
	}
	if c.ReapMode != config.ReapAbort {
		t.Fatalf("expected abort reap mode by default, got %q", c.ReapMode)
	}
	if err := c.Check(); err != nil {
		t.Fatalf("default config must pass Check: %v", err)
	}
	if w := c.Validate(); len(w) != 0 {
		t.Fatalf("default config must not warn, got %v", w)
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RegistryUser = "u"
	if len(cfg.Validate()) == 0 {
		t.Fatalf("expected warning for user without password")
	}
	cfg2 := config.DefaultConfig()
	cfg2.ReapMode = "sometimes"
	if len(cfg2.Validate()) == 0 {
		t.Fatalf("expected warning for unknown reap mode")
	}
	cfg3 := config.DefaultConfig()
	cfg3.ListLimit = 3
	if len(cfg3.Validate()) == 0 {
		t.Fatalf("expected warning for small list limit")
	}
}

func TestCheckRejectsUnusableValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"empty image", func(c *config.Config) { c.Image = "" }},
		{"tagged image", func(c *config.Config) { c.Image = "mcr.microsoft.com/iotedge/opc-plc:2.0" }},
		{"malformed image", func(c *config.Config) { c.Image = "UPPER/Case" }},
		{"empty name", func(c *config.Config) { c.ContainerName = "" }},
		{"port zero", func(c *config.Config) { c.Port = 0 }},
		{"port too large", func(c *config.Config) { c.Port = 70000 }},
		{"zero limit", func(c *config.Config) { c.ListLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.DefaultConfig()
			tt.mutate(c)
			if err := c.Check(); err == nil {
				t.Fatalf("expected Check to fail")
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plcharness.yaml")
	content := "port: 50100\nreap_mode: best-effort\nlog_level: debug\n"
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfigFromFile(p)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.Port != 50100 || cfg.ReapMode != config.ReapBestEffort || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.ContainerName != "opcplc" || cfg.ListLimit != 10 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadAppliesEnvOverFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plcharness.yaml")
	if err := os.WriteFile(p, []byte("port: 50100\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLCHARNESS_PORT", "50200")
	cfg, err := config.Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 50200 {
		t.Fatalf("expected env to win over file, got %d", cfg.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
