package config

import (
	"fmt"
	"os"
	"strconv"
)

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - PLCHARNESS_IMAGE (string, image name without tag)
// - PLCHARNESS_CONTAINER_NAME, PLCHARNESS_HOSTNAME (string)
// - PLCHARNESS_PORT (int, e.g. 50000)
// - PLCHARNESS_LIST_LIMIT (int, e.g. 10)
// - PLCHARNESS_REAP_MODE ("abort" or "best-effort")
// - PLCHARNESS_ENGINE_HOST (string, e.g. unix:///run/user/1000/docker.sock)
// - PLCHARNESS_REGISTRY_USER, PLCHARNESS_REGISTRY_PASS (string)
// - PLCHARNESS_LOG_LEVEL, PLCHARNESS_LOG_FILE (string)
// - PLCHARNESS_TEMP_ROOT (string, directory)
// - PLCHARNESS_METRICS_ADDR (string, e.g. ":9090")
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyContainerEnv(cfg); err != nil {
		return err
	}
	applyEngineEnv(cfg)
	applyRuntimeEnv(cfg)
	return nil
}

// applyContainerEnv covers the values that shape the provisioned container
func applyContainerEnv(cfg *Config) error {
	setStringEnv("PLCHARNESS_IMAGE", &cfg.Image)
	setStringEnv("PLCHARNESS_CONTAINER_NAME", &cfg.ContainerName)
	setStringEnv("PLCHARNESS_HOSTNAME", &cfg.Hostname)
	setStringEnv("PLCHARNESS_REAP_MODE", &cfg.ReapMode)
	if err := setIntEnv("PLCHARNESS_PORT", &cfg.Port); err != nil {
		return err
	}
	if err := setIntEnv("PLCHARNESS_LIST_LIMIT", &cfg.ListLimit); err != nil {
		return err
	}
	return nil
}

func applyEngineEnv(cfg *Config) {
	setStringEnv("PLCHARNESS_ENGINE_HOST", &cfg.EngineHost)
	setStringEnv("PLCHARNESS_REGISTRY_USER", &cfg.RegistryUser)
	setStringEnv("PLCHARNESS_REGISTRY_PASS", &cfg.RegistryPass)
}

func applyRuntimeEnv(cfg *Config) {
	setStringEnv("PLCHARNESS_LOG_LEVEL", &cfg.LogLevel)
	setStringEnv("PLCHARNESS_LOG_FILE", &cfg.LogFile)
	setStringEnv("PLCHARNESS_TEMP_ROOT", &cfg.TempRoot)
	setStringEnv("PLCHARNESS_METRICS_ADDR", &cfg.MetricsAddr)
}

func setStringEnv(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// setIntEnv is a small helper to parse integer environment variables
func setIntEnv(env string, dst *int) error {
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = n
	}
	return nil
}
