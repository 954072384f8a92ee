package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray10k/raspberry-wifi-conf/internal/config"
	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/supplicant"
	"github.com/ray10k/raspberry-wifi-conf/internal/wifi"
)

func newTestRuntime(t *testing.T) (*Runtime, *network.DryRunExecutor) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DHCPCD = filepath.Join(dir, "dhcpcd.conf")
	cfg.Paths.DNSMasq = filepath.Join(dir, "dnsmasq.conf")
	cfg.Paths.Hostapd = filepath.Join(dir, "hostapd.conf")
	cfg.Supplicant.Path = filepath.Join(dir, "wpa_supplicant.conf")
	cfg.Audit.Path = filepath.Join(dir, "audit.db")

	exec := network.NewDryRunExecutor()
	rt, err := NewRuntime(cfg, RuntimeOptions{
		Executor:  exec,
		Netlinker: &network.MockNetlinker{},
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt, exec
}

func TestRunStatus(t *testing.T) {
	rt, exec := newTestRuntime(t)
	exec.Respond("ifconfig wlan0", "wlan0: flags=4163<UP>  mtu 1500\n        inet 10.0.0.5  netmask 255.255.255.0\n        ether b8:27:eb:00:00:01  txqueuelen 1000\n")
	exec.Respond("iwconfig wlan0", "wlan0     IEEE 802.11  ESSID:\"Home\"\n          Mode:Managed  Access Point: 00:11:22:33:44:55\n")

	var out bytes.Buffer
	require.NoError(t, RunStatus(context.Background(), rt, &out, false))
	assert.Contains(t, out.String(), "Mode: station")
	assert.Contains(t, out.String(), "10.0.0.5")

	out.Reset()
	require.NoError(t, RunStatus(context.Background(), rt, &out, true))
	assert.Contains(t, out.String(), `"mode": "station"`)
	assert.Contains(t, out.String(), `"ap_ssid": "Home"`)
}

func TestRunConnect_SavesAndAudits(t *testing.T) {
	rt, exec := newTestRuntime(t)
	ctx := context.Background()

	var out bytes.Buffer
	err := RunConnect(ctx, rt, &out, wifi.ConnectionRequest{SSID: "Home", Passcode: "secret123"}, true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "enable_station: success")
	assert.Equal(t, 1, exec.Count("wpa_cli -i wlan0 reconfigure"))

	creds, err := rt.Store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []supplicant.Credential{{SSID: "Home", Passcode: "secret123"}}, creds)

	require.NotNil(t, rt.Audit)
	events, err := rt.Audit.Query(ctx, wifi.OpEnableStation, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRunConnect_FallsBackToAccessPoint(t *testing.T) {
	rt, exec := newTestRuntime(t)
	exec.Fail("ifconfig wlan0 up", 1, "SIOCSIFFLAGS: No such device")

	var out bytes.Buffer
	err := RunConnect(context.Background(), rt, &out, wifi.ConnectionRequest{}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, network.ErrCommandFailed)
	assert.Contains(t, err.Error(), "access point restored")
	assert.Contains(t, out.String(), "enable_ap: success")
	assert.Equal(t, 1, exec.Count("systemctl restart hostapd"))
}

func TestRunConnect_NoFallback(t *testing.T) {
	rt, exec := newTestRuntime(t)
	exec.Fail("ifconfig wlan0 up", 1, "SIOCSIFFLAGS: No such device")

	err := RunConnect(context.Background(), rt, &bytes.Buffer{}, wifi.ConnectionRequest{}, false)
	require.Error(t, err)
	assert.Zero(t, exec.Count("systemctl restart hostapd"))
}

func TestRunConnect_ValidationSkipsFallback(t *testing.T) {
	rt, exec := newTestRuntime(t)

	err := RunConnect(context.Background(), rt, &bytes.Buffer{}, wifi.ConnectionRequest{SSID: "Home", Passcode: "short"}, true)
	assert.ErrorIs(t, err, wifi.ErrValidation)
	assert.Empty(t, exec.Commands)
}

func TestRunNetworks(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()
	require.NoError(t, rt.Store.Save(ctx, []supplicant.Credential{{SSID: "A"}, {SSID: "B"}, {SSID: "C"}}))

	var out bytes.Buffer
	require.NoError(t, RunNetworks(ctx, rt, &out, nil))
	assert.Equal(t, " 1  A\n 2  B\n 3  C\n", out.String())

	out.Reset()
	require.NoError(t, RunNetworks(ctx, rt, &out, []string{"reorder", "C", "A"}))
	assert.Equal(t, " 1  C\n 2  A\n 3  B\n", out.String())

	require.NoError(t, RunNetworks(ctx, rt, &out, []string{"forget"}))
	out.Reset()
	require.NoError(t, RunNetworks(ctx, rt, &out, []string{"list"}))
	assert.Equal(t, "No saved networks\n", out.String())

	err := RunNetworks(ctx, rt, &out, []string{"reorder"})
	assert.True(t, errors.Is(err, ErrUsage))
	err = RunNetworks(ctx, rt, &out, []string{"shuffle"})
	assert.True(t, errors.Is(err, ErrUsage))
}

func TestRunDiff(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()

	var out bytes.Buffer
	changed, err := RunDiff(ctx, rt, &out, "ap")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out.String(), "+ssid=rpi-config-ap")

	require.NoError(t, RunAccessPoint(ctx, rt, &bytes.Buffer{}))

	out.Reset()
	changed, err = RunDiff(ctx, rt, &out, "ap")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Contains(t, out.String(), "is up to date")

	_, err = RunDiff(ctx, rt, &out, "mesh")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRunDisableAndReboot(t *testing.T) {
	rt, exec := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, RunDisable(ctx, rt, &bytes.Buffer{}))
	assert.Equal(t, []string{"ifconfig wlan0 down"}, exec.Commands)

	exec.Reset()
	require.NoError(t, RunReboot(ctx, rt, &bytes.Buffer{}, true))
	assert.Equal(t, []string{
		"ifconfig wlan0 down",
		"ifconfig wlan0 192.168.44.1 netmask 255.255.255.0 up",
		"wpa_cli -i wlan0 reconfigure",
	}, exec.Commands)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	RunVersion(&out)
	assert.Contains(t, out.String(), "WifiConf dev")
	assert.Contains(t, out.String(), "github.com/ray10k/raspberry-wifi-conf")
}

func TestRunShowConfig(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunShowConfig(filepath.Join(t.TempDir(), "missing.hcl"), &out))
	assert.Regexp(t, `wifi_interface\s+= "wlan0"`, out.String())
	assert.Contains(t, out.String(), "access_point {")
}
