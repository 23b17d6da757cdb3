package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var (
		configPath  string
		addr        string
		fixtures    string
		latency     time.Duration
		failEvery   int
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/stardeck/config.yml)")
	flag.StringVar(&addr, "addr", "", "listen address (overrides mock-addr)")
	flag.StringVar(&fixtures, "fixtures", "", "YAML fixture file (overrides mock-fixtures; built-in data when empty)")
	flag.DurationVar(&latency, "latency", -1, "artificial delay added to every API response")
	flag.IntVar(&failEvery, "fail-every", -1, "fail every Nth API request with a 500 (0 disables)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Stardeck Mock - Economy Backend Mock\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if addr != "" {
		cfg.Addr = addr
	}
	if fixtures != "" {
		cfg.Fixtures = fixtures
	}
	if latency >= 0 {
		cfg.Latency = latency
	}
	if failEvery >= 0 {
		cfg.FailEvery = failEvery
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
