package wifi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray10k/raspberry-wifi-conf/internal/audit"
	"github.com/ray10k/raspberry-wifi-conf/internal/metrics"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/supplicant"
	"github.com/ray10k/raspberry-wifi-conf/internal/templates"
)

const apSSID = "rpi-config-ap"

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Write(evt audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

type harness struct {
	mgr     *Manager
	exec    *network.DryRunExecutor
	store   *supplicant.FileStore
	audit   *recordingAudit
	metrics *metrics.Registry
	opts    Options
}

func newHarness(t *testing.T, policy FailurePolicy) *harness {
	t.Helper()
	dir := t.TempDir()

	opts := Options{
		Interface: "wlan0",
		AccessPoint: AccessPoint{
			SSID:             apSSID,
			IPAddr:           "192.168.44.1",
			Netmask:          "255.255.255.0",
			SubnetRangeStart: "192.168.44.10",
			SubnetRangeEnd:   "192.168.44.50",
			Channel:          6,
		},
		Paths: Paths{
			DHCPCD:  filepath.Join(dir, "dhcpcd.conf"),
			DNSMasq: filepath.Join(dir, "dnsmasq.conf"),
			Hostapd: filepath.Join(dir, "hostapd.conf"),
		},
		Services: Services{
			DHCPClient: "dhcpcd",
			DNSServer:  "dnsmasq",
			APDaemon:   "hostapd",
		},
		FailurePolicy: policy,
	}

	reg := prometheus.NewRegistry()
	h := &harness{
		exec:    network.NewDryRunExecutor(),
		store:   supplicant.NewFileStore(filepath.Join(dir, "wpa_supplicant.conf"), supplicant.Header{CtrlInterface: "DIR=/var/run/wpa_supplicant GROUP=netdev", UpdateConfig: true, Country: "GB"}, nil),
		audit:   &recordingAudit{},
		metrics: metrics.NewRegistry(reg, reg),
		opts:    opts,
	}
	h.mgr = NewManager(opts, Deps{
		Executor:  h.exec,
		Netlinker: &network.MockNetlinker{},
		Renderer:  templates.New(""),
		Store:     h.store,
		Metrics:   h.metrics,
		Audit:     h.audit,
	})
	return h
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEnableAccessPoint(t *testing.T) {
	h := newHarness(t, PolicyContinue)

	report, err := h.mgr.EnableAccessPoint(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, audit.OutcomeSuccess, report.Outcome)
	assert.Empty(t, report.Failed())

	assert.Equal(t, []string{
		"ifconfig wlan0",
		"iwconfig wlan0",
		"iw list",
		"systemctl restart dhcpcd",
		"ifconfig wlan0 down",
		"ifconfig wlan0 192.168.44.1 netmask 255.255.255.0 up",
		"wpa_cli -i wlan0 reconfigure",
		"systemctl restart hostapd",
		"systemctl restart dnsmasq",
	}, h.exec.Commands)

	hostapd := readFile(t, h.opts.Paths.Hostapd)
	assert.Contains(t, hostapd, "interface=wlan0")
	assert.Contains(t, hostapd, "driver=nl80211")
	assert.Contains(t, hostapd, "ssid="+apSSID)
	assert.Contains(t, hostapd, "channel=6")
	assert.NotContains(t, hostapd, "wpa_passphrase")

	assert.Contains(t, readFile(t, h.opts.Paths.DHCPCD), "static ip_address=192.168.44.1/24")
	assert.Contains(t, readFile(t, h.opts.Paths.DNSMasq), "dhcp-range=192.168.44.10,192.168.44.50,255.255.255.0,24h")

	require.Len(t, h.audit.events, 1)
	assert.Equal(t, OpEnableAccessPoint, h.audit.events[0].Operation)
	assert.Len(t, h.audit.events[0].Steps, 9)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Transitions.WithLabelValues(OpEnableAccessPoint, audit.OutcomeSuccess)))
}

func TestEnableAccessPoint_Idempotent(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	_, err := h.mgr.EnableAccessPoint(ctx)
	require.NoError(t, err)

	h.exec.Respond("iwconfig wlan0", `wlan0     IEEE 802.11  Mode:Master  ESSID:"`+apSSID+`"`)
	require.NoError(t, os.WriteFile(h.opts.Paths.Hostapd, []byte("untouched"), 0644))
	h.exec.Reset()

	report, err := h.mgr.EnableAccessPoint(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, audit.OutcomeSkipped, report.Outcome)
	assert.Empty(t, report.Steps)
	assert.Equal(t, []string{"ifconfig wlan0", "iwconfig wlan0"}, h.exec.Commands)
	assert.Equal(t, "untouched", readFile(t, h.opts.Paths.Hostapd))
}

func TestEnableAccessPoint_ForceReconfigure(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.mgr.opts.AccessPoint.ForceReconfigure = true
	h.exec.Respond("iwconfig wlan0", `wlan0     IEEE 802.11  Mode:Master  ESSID:"`+apSSID+`"`)

	report, err := h.mgr.EnableAccessPoint(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, h.exec.Count("systemctl restart hostapd"))
}

func TestEnableAccessPoint_RealtekDriverAndPassphrase(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.mgr.opts.AccessPoint.Passphrase = "configureme"
	h.exec.Respond("iw list", "nl80211 not found.")

	_, err := h.mgr.EnableAccessPoint(context.Background())
	require.NoError(t, err)

	hostapd := readFile(t, h.opts.Paths.Hostapd)
	assert.Contains(t, hostapd, "driver=rtl871xdrv")
	assert.Contains(t, hostapd, "wpa_passphrase=configureme")
	assert.Contains(t, hostapd, "rsn_pairwise=CCMP")
}

func TestEnableAccessPoint_ContinuePolicy(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.exec.Fail("systemctl restart hostapd", 1, "Job for hostapd.service failed")

	report, err := h.mgr.EnableAccessPoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{StepRestartAPDaemon}, report.Failed())
	assert.Equal(t, 1, h.exec.Count("systemctl restart dnsmasq"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.StepFailures.WithLabelValues(StepRestartAPDaemon)))
}

func TestEnableAccessPoint_AbortPolicy(t *testing.T) {
	h := newHarness(t, PolicyAbort)
	h.exec.Fail("systemctl restart hostapd", 1, "Job for hostapd.service failed")

	report, err := h.mgr.EnableAccessPoint(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, network.ErrCommandFailed)
	assert.Equal(t, audit.OutcomeError, report.Outcome)
	assert.Equal(t, 0, h.exec.Count("systemctl restart dnsmasq"))

	require.Len(t, h.audit.events, 1)
	assert.Equal(t, audit.OutcomeError, h.audit.events[0].Outcome)
}

func TestEnableAccessPoint_LinkDownIsFatal(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.exec.Fail("ifconfig wlan0 down", 255, "SIOCSIFFLAGS: Operation not permitted")

	_, err := h.mgr.EnableAccessPoint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), StepLinkDown)
	assert.Equal(t, 0, h.exec.Count("wpa_cli"))
}

func TestEnableAccessPoint_ProbeFailure(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.exec.Fail("ifconfig wlan0", 1, "wlan0: error fetching interface information: Device not found")

	report, err := h.mgr.EnableAccessPoint(context.Background())
	require.Error(t, err)
	assert.Empty(t, report.Steps)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ProbeErrors))
	assert.NoFileExists(t, h.opts.Paths.Hostapd)
}

func TestEnableStation_SavesCredentialAndReconfigures(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	report, err := h.mgr.EnableStation(ctx, ConnectionRequest{SSID: "Home", Passcode: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, audit.OutcomeSuccess, report.Outcome)

	creds, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []supplicant.Credential{{SSID: "Home", Passcode: "secret123"}}, creds)
	assert.Contains(t, readFile(t, h.store.Path()), "priority=1")

	assert.Equal(t, 1, h.exec.Count("wpa_cli -i wlan0 reconfigure"))
	assert.Equal(t, 1, h.exec.Count("systemctl stop dnsmasq"))
	assert.Equal(t, 1, h.exec.Count("systemctl stop hostapd"))
	assert.Equal(t, 1, h.exec.Count("ifconfig wlan0 up"))
	assert.Equal(t, 0, h.exec.Count("iw list"))

	assert.NotContains(t, readFile(t, h.opts.Paths.DHCPCD), "static ip_address")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SavedNetworks))
}

func TestEnableStation_UpdatesKnownNetwork(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()
	require.NoError(t, h.store.Save(ctx, []supplicant.Credential{{SSID: "Home", Passcode: "oldsecret"}, {SSID: "Office", Passcode: "officepass"}}))

	_, err := h.mgr.EnableStation(ctx, ConnectionRequest{SSID: "Home", Passcode: "newsecret"})
	require.NoError(t, err)

	creds, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []supplicant.Credential{{SSID: "Home", Passcode: "newsecret"}, {SSID: "Office", Passcode: "officepass"}}, creds)
}

func TestEnableStation_AlreadyConnected(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.exec.Respond("ifconfig wlan0", "wlan0: flags=4163<UP,BROADCAST,RUNNING,MULTICAST>  mtu 1500\n        inet 10.0.0.23  netmask 255.255.255.0")
	h.exec.Respond("iwconfig wlan0", `wlan0     IEEE 802.11  ESSID:"Home"  Access Point: 00:11:22:33:44:55`)

	report, err := h.mgr.EnableStation(context.Background(), ConnectionRequest{})
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, 0, h.exec.Count("wpa_cli"))

	report, err = h.mgr.EnableStation(context.Background(), ConnectionRequest{Force: true})
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, h.exec.Count("wpa_cli"))
}

func TestEnableStation_ValidationError(t *testing.T) {
	h := newHarness(t, PolicyContinue)

	_, err := h.mgr.EnableStation(context.Background(), ConnectionRequest{SSID: "Home", Passcode: "short"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, supplicant.ErrInvalidCredential)
	assert.Empty(t, h.exec.Commands)
	assert.NoFileExists(t, h.store.Path())
}

func TestEnableStation_LaunchFailureIsFatal(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	h.exec.Fail("systemctl stop dnsmasq", -1, "")

	report, err := h.mgr.EnableStation(context.Background(), ConnectionRequest{})
	require.Error(t, err)
	assert.True(t, network.IsLaunchFailure(errors.Unwrap(err)))
	assert.Equal(t, []string{StepStopDNSServer}, report.Failed())
	assert.Equal(t, 0, h.exec.Count("systemctl stop hostapd"))
}

func TestEnableStation_CancelledContext(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.mgr.EnableStation(ctx, ConnectionRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, PolicyContinue)

	report, err := h.mgr.Shutdown(context.Background(), "wlan1")
	require.NoError(t, err)
	assert.Equal(t, "wlan1", report.Interface)
	assert.Equal(t, []string{"ifconfig wlan1 down"}, h.exec.Commands)

	h.exec.Fail("ifconfig wlan1 down", 1, "")
	_, err = h.mgr.Shutdown(context.Background(), "wlan1")
	assert.Error(t, err)
}

func TestReboot(t *testing.T) {
	h := newHarness(t, PolicyContinue)

	_, err := h.mgr.Reboot(context.Background(), "wlan0", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ifconfig wlan0 down",
		"ifconfig wlan0 192.168.44.1 netmask 255.255.255.0 up",
		"wpa_cli -i wlan0 reconfigure",
	}, h.exec.Commands)

	h.exec.Reset()
	h.exec.Fail("wpa_cli -i wlan0 reconfigure", 255, "Failed to connect to non-global ctrl_ifname")
	report, err := h.mgr.Reboot(context.Background(), "wlan0", false)
	require.NoError(t, err)
	assert.Equal(t, []string{StepReconfigureWPA}, report.Failed())
	assert.Equal(t, 1, h.exec.Count("ifconfig wlan0 up"))
}

func TestSavedNetworks(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	ssids, err := h.mgr.ListSaved(ctx)
	require.NoError(t, err)
	assert.Empty(t, ssids)

	require.NoError(t, h.store.Save(ctx, []supplicant.Credential{{SSID: "A"}, {SSID: "B", Passcode: "password1"}, {SSID: "C"}}))

	ssids, err = h.mgr.ListSaved(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, ssids)

	ssids, err = h.mgr.ReorderSaved(ctx, []string{"C", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, ssids)
	assert.Equal(t, []string{"ifconfig wlan0 down", "ifconfig wlan0 up", "wpa_cli -i wlan0 reconfigure"}, h.exec.Commands)

	creds, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, supplicant.SSIDs(creds))

	_, err = h.mgr.ReorderSaved(ctx, nil)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, h.mgr.ForgetSaved(ctx))
	ssids, err = h.mgr.ListSaved(ctx)
	require.NoError(t, err)
	assert.Empty(t, ssids)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.SavedNetworks))
}

func TestConcurrentStationAndReorderKeepEveryNetwork(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	const stations = 12
	const reorders = 6

	var wg sync.WaitGroup
	errs := make(chan error, stations+reorders)
	for i := 0; i < stations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := ConnectionRequest{SSID: fmt.Sprintf("net%02d", i), Passcode: "password1", Force: true}
			_, err := h.mgr.EnableStation(ctx, req)
			errs <- err
		}(i)
	}
	for i := 0; i < reorders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.mgr.ReorderSaved(ctx, []string{fmt.Sprintf("net%02d", stations-1-i), "net00"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	creds, err := h.store.Load(ctx)
	require.NoError(t, err)
	want := make([]string, stations)
	for i := range want {
		want[i] = fmt.Sprintf("net%02d", i)
	}
	assert.ElementsMatch(t, want, supplicant.SSIDs(creds))

	data := readFile(t, h.store.Path())
	for p := 1; p <= stations; p++ {
		assert.Contains(t, data, fmt.Sprintf("\tpriority=%d\n", p))
	}
	assert.NotContains(t, data, fmt.Sprintf("\tpriority=%d\n", stations+1))
	assert.Equal(t, stations+reorders, h.exec.Count("wpa_cli -i wlan0 reconfigure"))
}

func TestMode(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	mode, _, err := h.mgr.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, network.ModeDisabled, mode)

	h.exec.Respond("ifconfig wlan0", "inet 10.0.0.23  netmask 255.255.255.0")
	h.exec.Respond("iwconfig wlan0", `ESSID:"Home"  Access Point: 00:11:22:33:44:55`)

	mode, status, err := h.mgr.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, network.ModeStation, mode)
	assert.Equal(t, "Home", status.APSSID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Mode.WithLabelValues("station")))

	addr, err := h.mgr.StationAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.23", addr)
}

func TestReportCarriesRequestID(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := WithRequestID(context.Background(), "req-42")

	report, err := h.mgr.Shutdown(ctx, "wlan0")
	require.NoError(t, err)
	assert.Equal(t, "req-42", report.RequestID)
	require.Len(t, h.audit.events, 1)
	assert.Equal(t, "req-42", h.audit.events[0].RequestID)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)
	assert.Equal(t, "abort", p.String())

	p, err = ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
