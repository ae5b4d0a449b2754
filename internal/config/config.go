// Package config loads server configuration from an optional YAML file
// with ESPALIER_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store kinds accepted by the serve commands.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreLoam   = "loam"
)

// Config holds the server runtime settings.
type Config struct {
	Addr     string      `yaml:"addr"`
	LogLevel string      `yaml:"logLevel"`
	Store    StoreConfig `yaml:"store"`
}

// StoreConfig selects and configures the model store backend.
type StoreConfig struct {
	Kind      string      `yaml:"kind"`
	Workspace string      `yaml:"workspace"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig carries the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Store: StoreConfig{
			Kind:      StoreLoam,
			Workspace: ".",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
	}
}

// Load reads the YAML file at path (if path is non-empty), applies
// environment overrides, and validates the result. A missing file at an
// explicitly given path is an error; an empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Addr, "ESPALIER_ADDR")
	setString(&c.LogLevel, "ESPALIER_LOG_LEVEL")
	setString(&c.Store.Kind, "ESPALIER_STORE")
	setString(&c.Store.Workspace, "ESPALIER_WORKSPACE")
	setString(&c.Store.Redis.Addr, "ESPALIER_REDIS_ADDR")
	setString(&c.Store.Redis.Password, "ESPALIER_REDIS_PASSWORD")
	if v, ok := os.LookupEnv("ESPALIER_REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate rejects unknown store kinds and incomplete backend settings.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis store requires an address")
		}
	case StoreLoam:
		if c.Store.Workspace == "" {
			return fmt.Errorf("loam store requires a workspace directory")
		}
	default:
		return fmt.Errorf("unknown store kind %q (expected memory, redis or loam)", c.Store.Kind)
	}
	return nil
}
