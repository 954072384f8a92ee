package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/health"
	"github.com/ray10k/raspberry-wifi-conf/internal/i18n"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/metrics"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/ratelimit"
	"github.com/ray10k/raspberry-wifi-conf/internal/scheduler"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

// WifiService is the part of wifi.Manager the API drives.
type WifiService interface {
	Options() wifi.Options
	Mode(ctx context.Context) (network.Mode, network.InterfaceStatus, error)
	StationAddress(ctx context.Context) (string, error)
	InterfaceExists(ctx context.Context, iface string) (bool, error)
	EnableAccessPoint(ctx context.Context) (*wifi.Report, error)
	EnableStation(ctx context.Context, req wifi.ConnectionRequest) (*wifi.Report, error)
	Shutdown(ctx context.Context, iface string) (*wifi.Report, error)
	Reboot(ctx context.Context, iface string, assignStatic bool) (*wifi.Report, error)
	ListSaved(ctx context.Context) ([]string, error)
	ForgetSaved(ctx context.Context) error
	ReorderSaved(ctx context.Context, order []string) ([]string, error)
	Diff(ctx context.Context, mode network.Mode) ([]wifi.FileDiff, error)
}

// AuditQuerier reads recorded transitions.
type AuditQuerier interface {
	Query(ctx context.Context, operation string, limit int) ([]audit.Event, error)
}

// TaskLister reports the maintenance tasks.
type TaskLister interface {
	Status() []scheduler.TaskStatus
}

// ServerConfig holds HTTP server limits.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	// WriteTimeout has to cover a full mode transition.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the limits used by the daemon.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		MaxBodyBytes:      64 << 10,
		ShutdownTimeout:   10 * time.Second,
	}
}

// ServerOptions holds dependencies for the API server. Only Wifi is required.
type ServerOptions struct {
	Wifi    WifiService
	Audit   AuditQuerier
	Metrics *metrics.Registry
	Health  *health.Checker
	Tasks   TaskLister
	Logger  *logging.Logger
	Logs    *logging.RingBuffer
	Config  *ServerConfig
	// RateLimit caps mode-changing requests per client per minute; zero or
	// less disables the limit.
	RateLimit int
	// TrustedProxies may set X-Forwarded-For and X-Real-IP.
	TrustedProxies []netip.Prefix
}

// Server handles API requests.
type Server struct {
	wifi    WifiService
	audit   AuditQuerier
	metrics *metrics.Registry
	health  *health.Checker
	tasks   TaskLister
	logger  *logging.Logger
	logs    *logging.RingBuffer
	cfg     *ServerConfig
	limiter *ratelimit.Limiter
	events  *EventHub

	trustedProxies []netip.Prefix

	mux *http.ServeMux
}

// NewServer creates a new API server with the provided options
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logs := opts.Logs
	if logs == nil {
		logs = logging.GetAppLogBuffer()
	}
	checker := opts.Health
	if checker == nil {
		checker = health.NewChecker(5 * time.Second)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	s := &Server{
		wifi:    opts.Wifi,
		audit:   opts.Audit,
		metrics: opts.Metrics,
		health:  checker,
		tasks:   opts.Tasks,
		logger:  logger.WithComponent("api"),
		logs:    logs,
		cfg:     cfg,
		limiter: ratelimit.NewLimiter(opts.RateLimit, time.Minute),

		trustedProxies: opts.TrustedProxies,
	}
	s.events = NewEventHub(logs, 2*time.Second, s.logger)
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	mux := http.NewServeMux()
	s.mux = mux

	// Device state
	mux.HandleFunc("GET /api/wifi_info", s.handleWifiInfo)
	mux.HandleFunc("GET /api/wifi_connected", s.handleWifiConnected)
	mux.HandleFunc("GET /api/wlan0_exists", s.handleInterfaceExists)

	// Mode transitions
	mux.Handle("GET /api/enable_ap", s.limit(s.handleEnableAP))
	mux.Handle("GET /api/enable_wifi", s.limit(s.handleEnableWifi))
	mux.Handle("POST /api/enable_wifi", s.limit(s.handleConnectWifi))
	mux.Handle("GET /api/disable_wifi", s.limit(s.handleDisableWifi))
	mux.Handle("POST /api/reboot_wifi", s.limit(s.handleRebootWifi))

	// Saved networks
	mux.HandleFunc("GET /api/known_wifi", s.handleListKnown)
	mux.Handle("DELETE /api/known_wifi", s.limit(s.handleForgetKnown))
	mux.Handle("PATCH /api/known_wifi", s.limit(s.handleReorderKnown))

	// Diagnostics
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("GET /api/diff", s.handleDiff)
	mux.HandleFunc("GET /api/tasks", s.handleTasks)
	mux.Handle("GET /api/ws", s.events)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("GET /healthz", health.LivenessHandler())
	mux.HandleFunc("GET /readyz", s.health.Handler())
}

// Handler returns the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	// Chain: requestID -> i18n -> accessLog -> maxBody -> mux
	return s.requestID(i18n.Middleware(s.accessLog(s.maxBody(s.cfg.MaxBodyBytes)(s.mux))))
}

// Events returns the websocket hub.
func (s *Server) Events() *EventHub { return s.events }

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// In-flight transitions get ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.events.Run(hubCtx)
	go s.limiter.Run(hubCtx, 10*time.Minute, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("API server stopped")
	return nil
}
