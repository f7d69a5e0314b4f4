package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach/internal/adapter"
	"outreach/internal/browser"
	"outreach/internal/config"
	"outreach/internal/control"
	"outreach/internal/engine"
	"outreach/internal/logging"
	"outreach/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveLive bool
	serveOpen string
	noWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and its control API",
	Long: `Connects to Chrome (or launches it), opens the store and serves the
control API until interrupted. Invitations are simulated unless --live is
given or engine.simulate_invites is false.

Example:
  outreach serve --open "https://www.linkedin.com/search/results/people/?keywords=engineer"`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveLive, "live", false, "Really send invitations")
	serveCmd.Flags().StringVar(&serveOpen, "open", "", "Open this URL in a new tab on startup")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file on change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logging.BootWarn("no config file at %s, running on defaults", configPath)
	}
	st, err := store.Open(ctx, storeOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	settings := store.NewSettings(st)

	mgr := browser.NewSessionManager(browserConfig(cfg))
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	if serveOpen != "" {
		tab, err := mgr.Open(ctx, serveOpen)
		if err != nil {
			logger.Warn("Failed to open start page", zap.String("url", serveOpen), zap.Error(err))
		} else {
			logger.Info("Opened start page", zap.String("session", tab.SessionID()), zap.String("url", tab.URL()))
		}
	}

	eng := engine.New(sessionTabs{mgr: mgr}, settings, st, engineOptions(cfg, serveLive))
	if err := eng.Restore(ctx); err != nil {
		logger.Warn("Failed to restore last result", zap.Error(err))
	}

	srv := control.NewServer(cfg.Control.Listen, control.NewRouter(control.NewHandler(eng, settings, mgr)))
	logger.Info("Engine ready",
		zap.String("listen", cfg.Control.Listen),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("simulate", eng.Status().Simulate),
		zap.String("chrome", mgr.ControlURL()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if !noWatch {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, func(next *config.Config) {
				eng.UpdateOptions(func(o *engine.Options) { applyEngineConfig(o, next, serveLive) })
				logging.SetLevel(next.Logging.Level)
			})
			if err != nil {
				logger.Warn("Config hot reload disabled", zap.Error(err))
			}
			return nil
		})
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Engine shutdown incomplete", zap.Error(err))
	}
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Browser shutdown failed", zap.Error(err))
	}
	logger.Info("Stopped")
	return runErr
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Backend:       cfg.Store.Backend,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisPrefix:   cfg.Store.RedisPrefix,
		LogCap:        cfg.Store.LogCap,
	}
}

func browserConfig(cfg *config.Config) browser.Config {
	bc := browser.DefaultConfig()
	bc.DebuggerURL = cfg.Browser.DebuggerURL
	bc.Launch = cfg.Browser.Launch
	bc.Headless = cfg.Browser.Headless
	bc.ViewportWidth = cfg.Browser.ViewportWidth
	bc.ViewportHeight = cfg.Browser.ViewportHeight
	bc.NavigationTimeout = cfg.GetNavigationTimeout()
	bc.Adapter = adapterOptions(cfg)
	return bc
}

func adapterOptions(cfg *config.Config) adapter.Options {
	opts := adapter.DefaultOptions()
	opts.WaitTimeout = cfg.GetWaitTimeout()
	opts.PromptTimeout = cfg.GetPromptTimeout()
	opts.PollInterval = cfg.GetPollInterval()
	return opts
}

func engineOptions(cfg *config.Config, live bool) engine.Options {
	opts := engine.DefaultOptions()
	applyEngineConfig(&opts, cfg, live)
	return opts
}

// applyEngineConfig copies the reloadable engine settings; --live always wins.
func applyEngineConfig(o *engine.Options, cfg *config.Config, live bool) {
	o.InviteDelay = cfg.GetInviteDelay()
	o.PageDelay = cfg.GetPageDelay()
	o.Simulate = cfg.Engine.SimulateInvites && !live
	if cfg.Engine.TargetPrefix != "" {
		o.TargetPrefix = cfg.Engine.TargetPrefix
	}
}

// sessionTabs exposes the browser session to the engine.
type sessionTabs struct {
	mgr *browser.SessionManager
}

func (s sessionTabs) ActiveTab(ctx context.Context) (engine.Tab, error) {
	tab, err := s.mgr.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	return browserTab{tab: tab}, nil
}

type browserTab struct {
	tab *browser.Tab
}

func (t browserTab) URL() string { return t.tab.URL() }

func (t browserTab) Install(ctx context.Context) (engine.PageAdapter, error) {
	a, err := t.tab.Install(ctx)
	if err != nil {
		return nil, err
	}
	return a, nil
}
