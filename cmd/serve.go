package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/api"
	"github.com/ray10k/raspberry-wifi-conf/internal/config"
	"github.com/ray10k/raspberry-wifi-conf/internal/deps"
	"github.com/ray10k/raspberry-wifi-conf/internal/health"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/metrics"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/scheduler"
)

// RunServe runs the daemon until ctx is cancelled.
func RunServe(ctx context.Context, configFile string) error {
	cfg, err := config.LoadFileOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	logger, syslog, err := NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer syslog.Close()
	logging.SetDefault(logger)

	if err := deps.Check(deps.ForConfig(cfg)); err != nil {
		return fmt.Errorf("%w\n%s", err, deps.Hint)
	}

	proxies, err := api.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	reg := metrics.Get()
	rt, err := NewRuntime(cfg, RuntimeOptions{Logger: logger, Metrics: reg})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting", "config", configFile, "interface", cfg.WifiInterface, "listen", cfg.Server.Listen)

	collector := metrics.NewCollector(reg, func(ctx context.Context) (string, error) {
		mode, _, err := rt.Manager.Mode(ctx)
		return mode.String(), err
	}, 30*time.Second, logger)
	collector.Start()
	defer collector.Stop()

	sched, err := newScheduler(rt)
	if err != nil {
		return err
	}
	schedCtx, stopSched := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	go func() {
		sched.Run(schedCtx)
		close(schedDone)
	}()
	defer func() {
		stopSched()
		<-schedDone
	}()
	go watchReload(ctx, configFile, logger)

	if cfg.Server.AutoAPEnabled() {
		autoAccessPoint(ctx, rt)
	}

	srv := api.NewServer(api.ServerOptions{
		Wifi:           rt.Manager,
		Audit:          auditQuerier(rt),
		Metrics:        reg,
		Health:         newHealthChecker(rt),
		Tasks:          sched,
		Logger:         logger,
		RateLimit:      cfg.Server.RateLimit,
		TrustedProxies: proxies,
	})
	if err := srv.ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	logger.Info("stopped")
	return nil
}

// auditQuerier avoids handing the server a typed nil.
func auditQuerier(rt *Runtime) api.AuditQuerier {
	if rt.Audit == nil {
		return nil
	}
	return rt.Audit
}

// autoAccessPoint brings the access point up unless the device already has
// a station connection, so a device without working credentials stays
// reachable.
func autoAccessPoint(ctx context.Context, rt *Runtime) {
	mode, _, err := rt.Manager.Mode(ctx)
	if err != nil {
		rt.Logger.Warn("startup probe failed, enabling access point", "error", err)
	}
	if mode == network.ModeStation {
		rt.Logger.Info("station connected, leaving access point off")
		return
	}
	if _, err := rt.Manager.EnableAccessPoint(ctx); err != nil {
		rt.Logger.Error("failed to enable access point at startup", "error", err)
	}
}

func newHealthChecker(rt *Runtime) *health.Checker {
	checker := health.NewChecker(5 * time.Second)
	iface := rt.Config.WifiInterface
	nl := &network.RealNetlinker{}

	checker.Register("interface", func(ctx context.Context) health.Check {
		exists, err := network.InterfaceExists(nl, iface)
		if err == nil && !exists {
			err = fmt.Errorf("interface %s not found", iface)
		}
		return health.FromError(err, health.StatusUnhealthy, iface+" present")
	})

	dirs := map[string]bool{}
	for _, path := range []string{rt.Store.Path(), rt.Config.Paths.DHCPCD, rt.Config.Paths.DNSMasq, rt.Config.Paths.Hostapd} {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		checker.Register("writable:"+dir, health.CheckWritable(dir))
	}

	if rt.Audit != nil {
		checker.Register("audit", func(ctx context.Context) health.Check {
			_, err := rt.Audit.Count()
			return health.FromError(err, health.StatusDegraded, "audit log readable")
		})
	}
	return checker
}

// newScheduler registers the maintenance tasks: pruning the audit log and
// refreshing the saved-network gauge after edits made outside the daemon.
func newScheduler(rt *Runtime) (*scheduler.Scheduler, error) {
	sched := scheduler.New(rt.Logger)

	if err := sched.AddTask(&scheduler.Task{
		ID:         "saved-networks",
		Name:       "Refresh saved networks",
		Schedule:   scheduler.Every(5 * time.Minute),
		RunOnStart: true,
		Timeout:    30 * time.Second,
		Func: func(ctx context.Context) error {
			_, err := rt.Manager.ListSaved(ctx)
			return err
		},
	}); err != nil {
		return nil, err
	}

	if rt.Audit != nil {
		if err := sched.AddTask(&scheduler.Task{
			ID:         "audit-prune",
			Name:       "Prune audit log",
			Schedule:   scheduler.Daily(3, 30),
			RunOnStart: true,
			Func: func(ctx context.Context) error {
				n, err := rt.Audit.Prune()
				if err == nil && n > 0 {
					rt.Logger.Info("pruned audit events", "count", n)
				}
				return err
			},
		}); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// watchReload re-reads the config on SIGHUP and applies the new log level.
// Everything else needs a restart.
func watchReload(ctx context.Context, configFile string, logger *logging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			if err := reloadLogLevel(configFile, logger); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

func reloadLogLevel(configFile string, logger *logging.Logger) error {
	cfg, err := config.LoadFileOrDefault(configFile)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if level != logger.GetLevel() {
		logger.SetLevel(level)
		logger.Info("log level changed", "level", level.String())
	}
	return nil
}
