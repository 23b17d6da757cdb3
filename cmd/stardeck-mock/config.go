package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/stardeck/stardeck/internal/model"
)

// mockConfig is the mock backend's runtime configuration.
type mockConfig struct {
	Addr       string        `mapstructure:"mock-addr"`
	Fixtures   string        `mapstructure:"mock-fixtures"`
	Latency    time.Duration `mapstructure:"mock-latency"`
	FailEvery  int           `mapstructure:"mock-fail-every"`
	LogLevel   string        `mapstructure:"log-level"`
	ConfigPath string        `mapstructure:"-"`
}

func loadConfig(configPath string) (mockConfig, error) {
	var cfg mockConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("STARDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("mock-addr", model.DefaultMockAddr)
	v.SetDefault("mock-fixtures", "")
	v.SetDefault("mock-latency", time.Duration(0))
	v.SetDefault("mock-fail-every", 0)
	v.SetDefault("log-level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "stardeck", "config.yml"))
	}

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		fileFound = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if fileFound {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if strings.HasPrefix(cfg.Fixtures, "~/") {
		cfg.Fixtures = filepath.Join(home, cfg.Fixtures[2:])
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c mockConfig) validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid mock-addr %q: %w", c.Addr, err)
	}
	if c.Latency < 0 {
		return fmt.Errorf("invalid mock-latency: %s", c.Latency)
	}
	if c.FailEvery < 0 {
		return fmt.Errorf("invalid mock-fail-every: %d", c.FailEvery)
	}
	return nil
}
