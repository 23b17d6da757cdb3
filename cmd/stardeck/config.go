package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/tui"
)

// cliConfig holds the dashboard and watch configuration.
type cliConfig struct {
	APIURL             string        `mapstructure:"api-url"`
	RequestTimeout     time.Duration `mapstructure:"request-timeout"`
	DashboardInterval  time.Duration `mapstructure:"dashboard-interval"`
	RefiningInterval   time.Duration `mapstructure:"refining-interval"`
	HistoryInterval    time.Duration `mapstructure:"history-interval"`
	MarketInterval     time.Duration `mapstructure:"market-interval"`
	UsersInterval      time.Duration `mapstructure:"users-interval"`
	LogLevel           string        `mapstructure:"log-level"`
	LogFile            string        `mapstructure:"log-file"`
	SessionFile        string        `mapstructure:"session-file"`
	ReverseScrollWheel bool          `mapstructure:"reverse-scroll-wheel"`
	ConfigPath         string        `mapstructure:"-"`
}

func (c cliConfig) intervals() tui.Intervals {
	iv := tui.DefaultIntervals()
	iv.Dashboard = c.DashboardInterval
	iv.Refining = c.RefiningInterval
	iv.Market = c.MarketInterval
	iv.History = c.HistoryInterval
	iv.Users = c.UsersInterval
	return iv
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("STARDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", model.DefaultAPIURL)
	v.SetDefault("request-timeout", model.DefaultRequestTimeout)
	v.SetDefault("dashboard-interval", model.DefaultDashboardInterval)
	v.SetDefault("refining-interval", model.DefaultRefiningInterval)
	v.SetDefault("history-interval", model.DefaultHistoryInterval)
	v.SetDefault("market-interval", model.DefaultMarketInterval)
	v.SetDefault("users-interval", model.DefaultUsersInterval)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", filepath.Join(home, ".local", "state", "stardeck", "stardeck.log"))
	v.SetDefault("session-file", filepath.Join(home, ".config", "stardeck", "session.yml"))
	v.SetDefault("reverse-scroll-wheel", false)

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

	cfg.LogFile = expandHome(home, cfg.LogFile)
	cfg.SessionFile = expandHome(home, cfg.SessionFile)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c cliConfig) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api-url: %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request-timeout: %s", c.RequestTimeout)
	}
	for name, iv := range map[string]time.Duration{
		"dashboard-interval": c.DashboardInterval,
		"refining-interval":  c.RefiningInterval,
		"history-interval":   c.HistoryInterval,
		"market-interval":    c.MarketInterval,
		"users-interval":     c.UsersInterval,
	} {
		if iv < 0 {
			return fmt.Errorf("invalid %s: %s", name, iv)
		}
	}
	return nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
