package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/stardeck/stardeck/internal/apiclient"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/poll"
	"github.com/stardeck/stardeck/internal/session"
	"golang.org/x/sync/errgroup"
)

// watchTarget polls one endpoint through the client and logs every applied result.
type watchTarget func(ctx context.Context, c *apiclient.Client, w watchOptions) error

type watchOptions struct {
	interval time.Duration
	once     bool
	log      logger.Logger
}

var watchTargets = map[string]watchTarget{
	"dashboard": func(ctx context.Context, c *apiclient.Client, w watchOptions) error {
		return watch(ctx, w, "/dashboard/", c.Dashboard, func(d model.DashboardSummary) string {
			return fmt.Sprintf("stock=%.0f SCU value=%.0f aUEC active_refining=%d",
				d.StockTotal, d.EstimatedStockValue, d.ActiveRefining)
		})
	},
	"refining": func(ctx context.Context, c *apiclient.Client, w watchOptions) error {
		return watch(ctx, w, "/refining/active", c.ActiveRefining, func(jobs []model.RefiningJob) string {
			running := 0
			for _, j := range jobs {
				if j.RemainingSeconds > 0 {
					running++
				}
			}
			return fmt.Sprintf("jobs=%d running=%d", len(jobs), running)
		})
	},
	"refining-history": func(ctx context.Context, c *apiclient.Client, w watchOptions) error {
		fetch := func(ctx context.Context) ([]model.CompletedRefiningJob, error) {
			return c.RefiningHistory(ctx, 50, 0)
		}
		return watch(ctx, w, "/refining/history", fetch, func(jobs []model.CompletedRefiningJob) string {
			return fmt.Sprintf("completed=%d", len(jobs))
		})
	},
	"market": func(ctx context.Context, c *apiclient.Client, w watchOptions) error {
		return watch(ctx, w, "/market/materials", c.MarketMaterials, func(ms []model.MaterialMarket) string {
			priced := 0
			for _, m := range ms {
				if m.AvgSellPrice != nil {
					priced++
				}
			}
			return fmt.Sprintf("materials=%d priced=%d", len(ms), priced)
		})
	},
	"history": func(ctx context.Context, c *apiclient.Client, w watchOptions) error {
		fetch := func(ctx context.Context) ([]model.HistoryEvent, error) {
			return c.HistoryEvents(ctx, model.HistoryFilter{})
		}
		return watch(ctx, w, "/stats/history", fetch, func(evs []model.HistoryEvent) string {
			return fmt.Sprintf("events=%d", len(evs))
		})
	},
}

var defaultWatchIntervals = map[string]time.Duration{
	"dashboard":        model.DefaultDashboardInterval,
	"refining":         model.DefaultRefiningInterval,
	"refining-history": model.DefaultRefiningHistoryInterval,
	"market":           model.DefaultMarketInterval,
	"history":          30 * time.Second,
}

func watchTargetNames() string {
	names := make([]string, 0, len(watchTargets))
	for name := range watchTargets {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// runWatch implements `stardeck watch`: a headless poller for scripting and monitoring.
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		configPath string
		apiURL     string
		interval   time.Duration
		once       bool
		pretty     bool
	)
	fs.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/stardeck/config.yml)")
	fs.StringVar(&apiURL, "api-url", "", "override the backend API base URL")
	fs.DurationVar(&interval, "interval", 0, "polling interval (default depends on the target)")
	fs.BoolVar(&once, "once", false, "exit after the first result; a failed fetch makes the command fail")
	fs.BoolVar(&pretty, "pretty", false, "human-readable log output instead of JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: stardeck watch [flags] <target>\n\nTargets: %s\n\nFlags:\n", watchTargetNames())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("watch needs exactly one target")
	}
	name := fs.Arg(0)
	target, ok := watchTargets[name]
	if !ok {
		return fmt.Errorf("unknown watch target %q (want one of: %s)", name, watchTargetNames())
	}
	if interval < 0 {
		return fmt.Errorf("invalid interval: %s", interval)
	}
	if interval == 0 {
		interval = defaultWatchIntervals[name]
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.validate(); err != nil {
			return err
		}
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: pretty})
	if err != nil {
		return err
	}
	defer log.Sync()

	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		return err
	}
	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Logger:  log.With(logger.String("component", "apiclient")),
	}, sess)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("stopping", logger.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("watching",
		logger.String("target", name),
		logger.String("api_url", cfg.APIURL),
		logger.Duration("interval", interval))

	return target(ctx, client, watchOptions{
		interval: interval,
		once:     once,
		log:      log.With(logger.String("target", name)),
	})
}

// watch runs a poller for one resource until ctx ends, or after the first
// result when w.once is set.
func watch[T any](ctx context.Context, w watchOptions, endpoint string, fetch poll.FetchFunc[T], describe func(T) string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := poll.NewResource[T](endpoint, w.interval)

	// Buffered so the poller never blocks on the -once result.
	first := make(chan error, 1)
	last := poll.Idle
	onChange := func(s poll.Snapshot[T]) {
		switch {
		case s.Status == poll.Ready:
			w.log.Info("ready",
				logger.String("endpoint", s.Endpoint),
				logger.String("value", describe(s.Value)))
		case s.Stale():
			w.log.Warn("refresh failed, keeping last value",
				logger.String("endpoint", s.Endpoint),
				logger.Int("consecutive_errors", s.ConsecutiveErrors),
				logger.Error(s.Err))
		default:
			w.log.Error("fetch failed",
				logger.String("endpoint", s.Endpoint),
				logger.Int("consecutive_errors", s.ConsecutiveErrors),
				logger.Error(s.Err))
		}
		if s.Status != last {
			w.log.Debug("state change",
				logger.String("from", last.String()),
				logger.String("to", s.Status.String()))
			last = s.Status
		}
		if w.once {
			select {
			case first <- s.Err:
			default:
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	h := poll.Start(gctx, res, fetch, onChange)

	g.Go(func() error {
		<-gctx.Done()
		h.Stop()
		return nil
	})
	if w.once {
		g.Go(func() error {
			select {
			case err := <-first:
				if err != nil {
					return fmt.Errorf("%s: %w", endpoint, err)
				}
				cancel()
				return nil
			case <-gctx.Done():
				return nil
			}
		})
	}

	return g.Wait()
}
