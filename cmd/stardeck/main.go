package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stardeck/stardeck/internal/apiclient"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/session"
	"github.com/stardeck/stardeck/internal/tui"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "watch" {
		if err := runWatch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var configPath string
	var apiURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/stardeck/config.yml)")
	flag.StringVar(&apiURL, "api-url", "", "override the backend API base URL")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("Stardeck - Economy Dashboard\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage:\n")
	fmt.Fprintf(out, "  stardeck [flags]                 open the dashboard\n")
	fmt.Fprintf(out, "  stardeck watch [flags] <target>  poll one endpoint and log its state\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func runTUI(cfg cliConfig) error {
	// The alt screen owns stdout, so logs go to a file.
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer log.Sync()

	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		// A corrupt session file only costs a sign-in.
		log.Warn("discarding session file", logger.String("path", cfg.SessionFile), logger.Error(err))
		sess, err = session.Load("")
		if err != nil {
			return err
		}
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Logger:  log.With(logger.String("component", "apiclient")),
	}, sess)
	if err != nil {
		return err
	}

	log.Info("starting dashboard",
		logger.String("version", version),
		logger.String("api_url", cfg.APIURL),
		logger.Bool("signed_in", sess.Authenticated()))

	app := tui.NewApp(tui.Options{
		Backend:            client,
		Session:            sess,
		Logger:             log.With(logger.String("component", "tui")),
		Intervals:          cfg.intervals(),
		DataSource:         cfg.APIURL,
		ReverseScrollWheel: cfg.ReverseScrollWheel,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
