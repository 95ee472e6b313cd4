package config

import (
	"fmt"
	"os"

	"github.com/distribution/reference"
	"gopkg.in/yaml.v3"
)

// Reap modes control how a reap pass reacts to a failed stop or remove.
const (
	// ReapAbort stops the pass at the first failure.
	ReapAbort = "abort"
	// ReapBestEffort continues past failures and reports all of them.
	ReapBestEffort = "best-effort"
)

// Config holds runtime configuration for the PLC fixture
type Config struct {
	// Image is the simulator image name without tag; the fixture always pulls "latest".
	Image         string `json:"image" yaml:"image"`
	ContainerName string `json:"container_name" yaml:"container_name"`
	Hostname      string `json:"hostname" yaml:"hostname"`
	// Port is published as <port>/tcp and bound to the same host port.
	Port int `json:"port" yaml:"port"`
	// ListLimit bounds how many of the most recently created containers a reap pass inspects.
	ListLimit int    `json:"list_limit" yaml:"list_limit"`
	ReapMode  string `json:"reap_mode" yaml:"reap_mode"`

	// EngineHost overrides the platform default engine address (e.g. rootless
	// "unix:///run/user/1000/docker.sock"). Unsupported platforms still fail.
	EngineHost string `json:"engine_host" yaml:"engine_host"`

	// Private registry credentials (simple auth support)
	RegistryUser string `json:"registry_user" yaml:"registry_user"`
	RegistryPass string `json:"registry_pass" yaml:"registry_pass"`

	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file"`

	// TempRoot is the directory under which "tempdata" is created. Empty means the working directory.
	TempRoot string `json:"temp_root" yaml:"temp_root"`

	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration the test suites were written against
func DefaultConfig() *Config {
	return &Config{
		Image:         "mcr.microsoft.com/iotedge/opc-plc",
		ContainerName: "opcplc",
		Hostname:      "opcplc",
		Port:          50000,
		ListLimit:     10,
		ReapMode:      ReapAbort,
		LogLevel:      "info",
	}
}

// Validate returns a list of non-fatal configuration warnings.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{c.RegistryUser != "" && c.RegistryPass == "", "registry user provided but password is missing"},
		{c.RegistryPass != "" && c.RegistryUser == "", "registry password provided but user is missing"},
		{c.ListLimit < 10, fmt.Sprintf("list_limit %d is below the default of 10; older stale containers will not be reaped", c.ListLimit)},
		{c.ReapMode != ReapAbort && c.ReapMode != ReapBestEffort, fmt.Sprintf("unknown reap_mode %q; using %q", c.ReapMode, ReapAbort)},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	return warnings
}

// Check returns an error for values the fixture cannot run with.
func (c *Config) Check() error {
	if c.Image == "" {
		return fmt.Errorf("image must not be empty")
	}
	named, err := reference.ParseNormalizedNamed(c.Image)
	if err != nil {
		return fmt.Errorf("invalid image %q: %w", c.Image, err)
	}
	if _, tagged := named.(reference.Tagged); tagged {
		return fmt.Errorf("image %q must not carry a tag; the fixture always pulls latest", c.Image)
	}
	if _, digested := named.(reference.Digested); digested {
		return fmt.Errorf("image %q must not carry a digest", c.Image)
	}
	if c.ContainerName == "" {
		return fmt.Errorf("container_name must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("list_limit must be positive, got %d", c.ListLimit)
	}
	return nil
}

// LoadConfigFromFile loads config from a YAML/JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load returns defaults, overridden by path (when non-empty) and then by
// PLCHARNESS_* environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		c, err := LoadConfigFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = c
	}
	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
