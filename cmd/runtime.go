package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
	"github.com/ray10k/raspberry-wifi-conf/internal/config"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/metrics"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/supplicant"
	"github.com/ray10k/raspberry-wifi-conf/internal/templates"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter(os.Getenv)

// Runtime holds the components every subcommand works with.
type Runtime struct {
	Config  *config.Config
	Logger  *logging.Logger
	Manager *wifi.Manager
	Store   *supplicant.FileStore
	// Audit is nil when the audit log is disabled.
	Audit   *audit.Store
	Metrics *metrics.Registry

	syslog io.Closer
}

// RuntimeOptions replace parts of the real system. The zero value runs
// commands on the host.
type RuntimeOptions struct {
	Executor  network.CommandExecutor
	Netlinker network.Netlinker
	Logger    *logging.Logger
	Metrics   *metrics.Registry
	NoAudit   bool
}

// NewRuntime wires a Manager for cfg.
func NewRuntime(cfg *config.Config, opts RuntimeOptions) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	executor := opts.Executor
	if executor == nil {
		executor = &network.RealCommandExecutor{Sudo: cfg.Sudo(), Timeout: cfg.Timeout()}
	}
	nl := opts.Netlinker
	if nl == nil {
		nl = &network.RealNetlinker{}
	}

	wopts, err := wifi.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store := supplicant.NewFileStore(cfg.Supplicant.Path, supplicant.Header{
		CtrlInterface: cfg.Supplicant.CtrlInterface,
		UpdateConfig:  cfg.Supplicant.UpdateConfigEnabled(),
		Country:       cfg.Supplicant.Country,
	}, logger)

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Metrics: opts.Metrics,
	}
	deps := wifi.Deps{
		Executor:  executor,
		Netlinker: nl,
		Renderer:  templates.New(cfg.Paths.Templates),
		Store:     store,
		Logger:    logger,
		Metrics:   opts.Metrics,
	}
	if !opts.NoAudit && cfg.Audit.AuditEnabled() {
		st, err := audit.NewStore(cfg.Audit.Path, cfg.Audit.RetentionDays, logger)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		rt.Audit = st
		deps.Audit = st
	}
	rt.Manager = wifi.NewManager(wopts, deps)
	return rt, nil
}

// Open loads configFile (defaults when it does not exist) and wires a
// Runtime that runs commands on the host. Logs go to logOut.
func Open(configFile string, logOut io.Writer) (*Runtime, error) {
	cfg, err := config.LoadFileOrDefault(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	logger, syslog, err := NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	rt, err := NewRuntime(cfg, RuntimeOptions{Logger: logger})
	if err != nil {
		syslog.Close()
		return nil, err
	}
	rt.syslog = syslog
	return rt, nil
}

// Close releases the audit database and the syslog connection.
func (r *Runtime) Close() error {
	var errs []error
	if r.Audit != nil {
		errs = append(errs, r.Audit.Close())
	}
	if r.syslog != nil {
		errs = append(errs, r.syslog.Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds the logger described by lc. When a syslog block is set,
// output is copied to the remote server as well; the returned closer shuts
// that connection.
func NewLogger(lc *config.LogConfig, out io.Writer) (*logging.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.JSON = lc.JSON
	logCfg.Output = out
	logCfg.Name = brand.LowerName

	var closer io.Closer = nopCloser{}
	if lc.Syslog != nil {
		syslogCfg := logging.DefaultSyslogConfig()
		syslogCfg.Enabled = true
		syslogCfg.Host = lc.Syslog.Host
		syslogCfg.Port = lc.Syslog.Port
		syslogCfg.Protocol = lc.Syslog.Protocol
		syslogCfg.Tag = brand.LowerName

		writer, err := logging.NewSyslogWriter(syslogCfg)
		if err != nil {
			return nil, nil, err
		}
		logCfg.Output = logging.MultiWriter(out, writer)
		closer = writer
	}
	return logging.New(logCfg), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// quietLogger discards everything below error level.
func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
}
