package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/stardeck/stardeck/internal/httpserver"
	"github.com/stardeck/stardeck/internal/logger"
	"golang.org/x/sync/errgroup"
)

// runServer serves the mock API until SIGINT or SIGTERM.
func runServer(cfg mockConfig) error {
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: true})
	if err != nil {
		return err
	}
	defer log.Sync()

	fixtures, err := httpserver.LoadFixtures(cfg.Fixtures)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	store := httpserver.NewStore(fixtures, nil)
	srv := httpserver.NewServer(cfg.Addr, store, httpserver.Options{
		Latency:   cfg.Latency,
		FailEvery: cfg.FailEvery,
		Logger:    log.With(logger.String("component", "httpserver")),
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start mock backend: %w", err)
	}
	defer srv.Stop()

	printStartupBanner(cfg, srv.Addr(), fixtures)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown", logger.Error(err))
	}
	signal.Stop(sigCh)
	return nil
}

func printStartupBanner(cfg mockConfig, addr string, f httpserver.Fixtures) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, cyan.Bold(true).Render("    STARDECK MOCK BACKEND")+"  "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr)))
	if cfg.Latency > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Latency        %s", check, yellow.Render(cfg.Latency.String())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Latency        %s", dot, dim.Render("none")))
	}
	if cfg.FailEvery > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Failures       %s", check, yellow.Render(fmt.Sprintf("every %d requests", cfg.FailEvery))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Failures       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Data"), "")
	if cfg.Fixtures != "" {
		lines = append(lines, fmt.Sprintf("    %s  Fixtures       %s", check, dim.Render(shortenPath(cfg.Fixtures))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Fixtures       %s", dot, dim.Render("built-in")))
	}
	users := make([]string, 0, len(f.Users))
	for _, u := range f.Users {
		users = append(users, u.Username)
	}
	lines = append(lines, fmt.Sprintf("    %s  Users          %s", check, dim.Render(strings.Join(users, ", "))))
	lines = append(lines, fmt.Sprintf("    %s  Materials      %s", check, dim.Render(fmt.Sprint(len(f.Materials)))))
	lines = append(lines, fmt.Sprintf("    %s  Refining jobs  %s", check, dim.Render(fmt.Sprint(len(f.Refining)))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
