package wifi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/config"
	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/metrics"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/supplicant"
	"github.com/ray10k/raspberry-wifi-conf/internal/templates"
)

// ErrValidation marks errors caused by bad caller input.
var ErrValidation = errors.New("validation failed")

// CredentialStore persists the ordered list of known networks. Update must
// hold off other writers, including other processes, until fn's result is
// saved.
type CredentialStore interface {
	Load(ctx context.Context) ([]supplicant.Credential, error)
	Update(ctx context.Context, fn func([]supplicant.Credential) ([]supplicant.Credential, error)) ([]supplicant.Credential, error)
	ForgetAll(ctx context.Context) error
}

// AuditWriter receives one event per operation.
type AuditWriter interface {
	Write(evt audit.Event) error
}

// ConnectionRequest asks for station mode, optionally with a new network.
type ConnectionRequest struct {
	SSID     string `json:"wifi_ssid"`
	Passcode string `json:"wifi_passcode"`
	// Force reconfigures even when the station is already connected.
	Force bool `json:"force"`
}

// Deps are the collaborators of a Manager. Logger, Metrics and Audit may be nil.
type Deps struct {
	Executor  network.CommandExecutor
	Netlinker network.Netlinker
	Renderer  *templates.Renderer
	Store     CredentialStore
	Logger    *logging.Logger
	Metrics   *metrics.Registry
	Audit     AuditWriter
}

// Manager drives mode transitions for one wireless interface.
type Manager struct {
	mu sync.Mutex

	opts     Options
	prober   *network.Prober
	ctl      *network.Controller
	nl       network.Netlinker
	renderer *templates.Renderer
	store    CredentialStore
	logger   *logging.Logger
	metrics  *metrics.Registry
	audit    AuditWriter
}

// NewManager creates a manager. opts is copied and never modified.
func NewManager(opts Options, deps Deps) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = templates.New("")
	}
	return &Manager{
		opts:     opts,
		prober:   network.NewProber(deps.Executor),
		ctl:      network.NewController(deps.Executor),
		nl:       deps.Netlinker,
		renderer: renderer,
		store:    deps.Store,
		logger:   logger.WithComponent("wifi"),
		metrics:  deps.Metrics,
		audit:    deps.Audit,
	}
}

// Options returns the manager configuration.
func (m *Manager) Options() Options { return m.opts }

// Probe returns the current state of the managed interface.
func (m *Manager) Probe(ctx context.Context) (network.InterfaceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probe(ctx)
}

// Mode probes the managed interface and classifies it.
func (m *Manager) Mode(ctx context.Context) (network.Mode, network.InterfaceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.probe(ctx)
	if err != nil {
		return network.ModeDisabled, status, err
	}
	return network.Detect(status, m.opts.AccessPoint.SSID), status, nil
}

// StationAddress returns the station IP, or "" when not connected.
func (m *Manager) StationAddress(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, err := m.probe(ctx)
	if err != nil {
		return "", err
	}
	return network.IsStationEnabled(status, m.opts.AccessPoint.SSID), nil
}

// InterfaceExists reports whether iface is present.
func (m *Manager) InterfaceExists(ctx context.Context, iface string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return network.InterfaceExists(m.nl, iface)
}

func (m *Manager) probe(ctx context.Context) (network.InterfaceStatus, error) {
	status, err := m.prober.Probe(ctx, m.opts.Interface)
	if err != nil {
		if m.metrics != nil {
			m.metrics.ProbeErrors.Inc()
		}
		return status, err
	}
	if m.metrics != nil {
		m.metrics.SetMode(network.Detect(status, m.opts.AccessPoint.SSID).String())
	}
	return status, nil
}

// EnableAccessPoint switches the interface to AP mode. It does nothing when
// the AP is already up, unless ForceReconfigure is set.
func (m *Manager) EnableAccessPoint(ctx context.Context) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpEnableAccessPoint, m.opts.Interface)
	return report, m.finish(report, m.enableAccessPoint(ctx, report))
}

func (m *Manager) enableAccessPoint(ctx context.Context, report *Report) error {
	status, err := m.probe(ctx)
	if err != nil {
		return err
	}
	if ssid := network.IsAccessPointEnabled(status, m.opts.AccessPoint.SSID); ssid != "" && !m.opts.AccessPoint.ForceReconfigure {
		m.logger.Info("access point already enabled", "ssid", ssid)
		report.Skipped = true
		return nil
	}

	data, err := m.accessPointContext(ctx)
	if err != nil {
		return err
	}
	ap := m.opts.AccessPoint
	iface := m.opts.Interface
	svc := m.opts.Services

	return m.runPipeline(ctx, report, []step{
		m.writeStep(StepWriteDHCPCD, templates.DHCPCDAccessPoint, m.opts.Paths.DHCPCD, data),
		m.writeStep(StepWriteDNSMasq, templates.DNSMasqAccessPoint, m.opts.Paths.DNSMasq, data),
		m.writeStep(StepWriteHostapd, templates.HostapdAccessPoint, m.opts.Paths.Hostapd, data),
		{name: StepRestartDHCPClient, run: func(ctx context.Context) error { return m.ctl.RestartService(ctx, svc.DHCPClient) }},
		{name: StepLinkDown, fatal: true, run: func(ctx context.Context) error { return m.ctl.LinkDown(ctx, iface) }},
		{name: StepLinkUp, fatal: true, run: func(ctx context.Context) error {
			return m.ctl.LinkUp(ctx, iface, &network.StaticAddr{IP: ap.IPAddr, Netmask: ap.Netmask})
		}},
		{name: StepReconfigureWPA, run: func(ctx context.Context) error { return m.ctl.ReconfigureSupplicant(ctx, iface) }},
		{name: StepRestartAPDaemon, run: func(ctx context.Context) error { return m.ctl.RestartService(ctx, svc.APDaemon) }},
		{name: StepRestartDNSServer, run: func(ctx context.Context) error { return m.ctl.RestartService(ctx, svc.DNSServer) }},
	})
}

// EnableStation switches the interface to station mode. A non-empty SSID is
// stored (or updated) first. It does nothing when the station already has an
// address, unless req.Force is set.
func (m *Manager) EnableStation(ctx context.Context, req ConnectionRequest) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpEnableStation, m.opts.Interface)
	return report, m.finish(report, m.enableStation(ctx, report, req))
}

func (m *Manager) enableStation(ctx context.Context, report *Report, req ConnectionRequest) error {
	if req.SSID != "" {
		if err := supplicant.ValidateCredential(req.SSID, req.Passcode); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	status, err := m.probe(ctx)
	if err != nil {
		return err
	}
	if ip := network.IsStationEnabled(status, m.opts.AccessPoint.SSID); ip != "" && !req.Force {
		m.logger.Info("station already connected", "address", ip)
		report.Skipped = true
		return nil
	}

	data, err := m.stationContext()
	if err != nil {
		return err
	}
	iface := m.opts.Interface
	svc := m.opts.Services

	var steps []step
	if req.SSID != "" {
		steps = append(steps, step{name: StepSaveCredentials, fatal: true, run: func(ctx context.Context) error {
			updated, err := m.store.Update(ctx, func(existing []supplicant.Credential) ([]supplicant.Credential, error) {
				return supplicant.Upsert(existing, req.SSID, req.Passcode), nil
			})
			if err != nil {
				return err
			}
			m.recordSaved(len(updated))
			return nil
		}})
	}
	steps = append(steps,
		m.writeStep(StepWriteDHCPCD, templates.DHCPCDStation, m.opts.Paths.DHCPCD, data),
		m.writeStep(StepWriteDNSMasq, templates.DNSMasqStation, m.opts.Paths.DNSMasq, data),
		m.writeStep(StepWriteHostapd, templates.HostapdStation, m.opts.Paths.Hostapd, data),
		step{name: StepStopDNSServer, run: func(ctx context.Context) error { return m.ctl.StopService(ctx, svc.DNSServer) }},
		step{name: StepStopAPDaemon, run: func(ctx context.Context) error { return m.ctl.StopService(ctx, svc.APDaemon) }},
		step{name: StepRestartDHCPClient, run: func(ctx context.Context) error { return m.ctl.RestartService(ctx, svc.DHCPClient) }},
	)
	steps = append(steps, m.rebootSteps(iface, false)...)

	return m.runPipeline(ctx, report, steps)
}

// Shutdown takes iface down.
func (m *Manager) Shutdown(ctx context.Context, iface string) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpShutdown, iface)
	err := m.runPipeline(ctx, report, []step{
		{name: StepLinkDown, fatal: true, run: func(ctx context.Context) error { return m.ctl.LinkDown(ctx, iface) }},
	})
	return report, m.finish(report, err)
}

// Reboot cycles iface and makes the supplicant reread its networks. With
// assignStatic the AP address is configured on the way up.
func (m *Manager) Reboot(ctx context.Context, iface string, assignStatic bool) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.newReport(ctx, OpReboot, iface)
	return report, m.finish(report, m.runPipeline(ctx, report, m.rebootSteps(iface, assignStatic)))
}

func (m *Manager) rebootSteps(iface string, assignStatic bool) []step {
	var addr *network.StaticAddr
	if assignStatic {
		addr = &network.StaticAddr{IP: m.opts.AccessPoint.IPAddr, Netmask: m.opts.AccessPoint.Netmask}
	}
	return []step{
		{name: StepLinkDown, fatal: true, run: func(ctx context.Context) error { return m.ctl.LinkDown(ctx, iface) }},
		{name: StepLinkUp, fatal: true, run: func(ctx context.Context) error { return m.ctl.LinkUp(ctx, iface, addr) }},
		{name: StepReconfigureWPA, run: func(ctx context.Context) error { return m.ctl.ReconfigureSupplicant(ctx, iface) }},
	}
}

func (m *Manager) writeStep(name, tmpl, dest string, data map[string]string) step {
	return step{name: name, fatal: true, run: func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return m.renderer.WriteFile(tmpl, dest, data)
	}}
}

// accessPointContext returns the template values for AP mode. The driver is
// probed on every call; a failed probe falls back to nl80211.
func (m *Manager) accessPointContext(ctx context.Context) (map[string]string, error) {
	data, err := m.stationContext()
	if err != nil {
		return nil, err
	}

	driver, err := m.prober.DetectDriver(ctx)
	if err != nil {
		m.logger.Warn("driver detection failed, assuming nl80211", "error", err)
		driver = network.DriverNL80211
	}
	data["wifi_driver_type"] = driver
	return data, nil
}

// stationContext returns the template values shared by both modes.
func (m *Manager) stationContext() (map[string]string, error) {
	ap := m.opts.AccessPoint
	prefix, err := config.PrefixLength(ap.Netmask)
	if err != nil {
		return nil, fmt.Errorf("access point netmask: %w", err)
	}

	security := ""
	if ap.Passphrase != "" {
		security = "wpa=2\nwpa_passphrase=" + ap.Passphrase + "\nwpa_key_mgmt=WPA-PSK\nrsn_pairwise=CCMP"
	}

	return map[string]string{
		"wifi_interface":     m.opts.Interface,
		"wifi_driver_type":   network.DriverNL80211,
		"ssid":               ap.SSID,
		"passphrase":         ap.Passphrase,
		"security":           security,
		"channel":            strconv.Itoa(ap.Channel),
		"ip_addr":            ap.IPAddr,
		"netmask":            ap.Netmask,
		"prefix_len":         strconv.Itoa(prefix),
		"subnet_range_start": ap.SubnetRangeStart,
		"subnet_range_end":   ap.SubnetRangeEnd,
	}, nil
}

func (m *Manager) newReport(ctx context.Context, op, iface string) *Report {
	return &Report{
		Operation: op,
		RequestID: RequestID(ctx),
		Interface: iface,
		Started:   time.Now(),
		Steps:     []StepResult{},
	}
}

// finish stamps the report, records it and returns err unchanged.
func (m *Manager) finish(report *Report, err error) error {
	report.Duration = time.Since(report.Started)
	switch {
	case err != nil:
		report.Outcome = audit.OutcomeError
		report.Error = err.Error()
	case report.Skipped:
		report.Outcome = audit.OutcomeSkipped
	default:
		report.Outcome = audit.OutcomeSuccess
	}

	log := m.logger.Info
	if err != nil {
		log = m.logger.Error
	}
	log("operation finished",
		"operation", report.Operation,
		"outcome", report.Outcome,
		"request_id", report.RequestID,
		"duration", report.Duration.Round(time.Millisecond),
		"failed_steps", len(report.Failed()))

	if m.metrics != nil {
		m.metrics.RecordTransition(report.Operation, report.Outcome, report.Duration.Seconds())
	}
	if m.audit != nil {
		if aerr := m.audit.Write(report.auditEvent()); aerr != nil {
			m.logger.Warn("failed to write audit event", "error", aerr)
		}
	}
	return err
}

func (m *Manager) recordSaved(n int) {
	if m.metrics != nil {
		m.metrics.SetSavedNetworks(n)
	}
}
