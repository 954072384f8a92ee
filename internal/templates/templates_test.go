package templates

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apContext() map[string]string {
	return map[string]string{
		"wifi_interface":     "wlan0",
		"wifi_driver_type":   "nl80211",
		"ssid":               "rpi-config-ap",
		"channel":            "6",
		"security":           "",
		"ip_addr":            "192.168.44.1",
		"prefix_len":         "24",
		"netmask":            "255.255.255.0",
		"subnet_range_start": "192.168.44.10",
		"subnet_range_end":   "192.168.44.50",
	}
}

func TestRender_Embedded(t *testing.T) {
	r := New("")

	out, err := r.Render(HostapdAccessPoint, apContext())
	require.NoError(t, err)
	assert.Contains(t, out, "interface=wlan0\n")
	assert.Contains(t, out, "driver=nl80211\n")
	assert.Contains(t, out, "ssid=rpi-config-ap\n")
	assert.NotContains(t, out, "{{")

	out, err = r.Render(DNSMasqAccessPoint, apContext())
	require.NoError(t, err)
	assert.Contains(t, out, "dhcp-range=192.168.44.10,192.168.44.50,255.255.255.0,24h")

	out, err = r.Render(DHCPCDAccessPoint, apContext())
	require.NoError(t, err)
	assert.Contains(t, out, "static ip_address=192.168.44.1/24")
}

func TestRender_AllEmbeddedTemplatesRender(t *testing.T) {
	r := New("")
	for _, name := range []string{DHCPCDAccessPoint, DHCPCDStation, DNSMasqAccessPoint, DNSMasqStation, HostapdAccessPoint, HostapdStation} {
		_, err := r.Render(name, apContext())
		assert.NoError(t, err, name)
	}
}

func TestRender_MissingKey(t *testing.T) {
	r := NewFS(fstest.MapFS{
		"x.template": {Data: []byte("a={{ alpha }} b={{beta}} c={{ gamma }}\n")},
	})

	_, err := r.Render("x.template", map[string]string{"beta": "2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigIO)
	assert.Contains(t, err.Error(), "alpha, gamma")

	out, err := r.Render("x.template", map[string]string{"alpha": "1", "beta": "2", "gamma": "3"})
	require.NoError(t, err)
	assert.Equal(t, "a=1 b=2 c=3\n", out)
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := New("").Render("nope.template", nil)
	assert.ErrorIs(t, err, ErrConfigIO)
}

func TestRender_OverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DNSMasqStation), []byte("# custom {{ wifi_interface }}\n"), 0644))

	r := New(dir)
	out, err := r.Render(DNSMasqStation, apContext())
	require.NoError(t, err)
	assert.Equal(t, "# custom wlan0\n", out)

	// Not overridden, comes from the embedded set.
	out, err = r.Render(HostapdAccessPoint, apContext())
	require.NoError(t, err)
	assert.Contains(t, out, "driver=nl80211")
}

func TestWriteFileAndDiff(t *testing.T) {
	r := NewFS(fstest.MapFS{
		"dnsmasq.template": {Data: []byte("interface={{ iface }}\nport=53\n")},
	})
	dest := filepath.Join(t.TempDir(), "dnsmasq.conf")

	diff, err := r.Diff("dnsmasq.template", dest, map[string]string{"iface": "wlan0"})
	require.NoError(t, err)
	assert.Contains(t, diff, "+interface=wlan0")

	require.NoError(t, r.WriteFile("dnsmasq.template", dest, map[string]string{"iface": "wlan0"}))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "interface=wlan0\nport=53\n", string(data))

	diff, err = r.Diff("dnsmasq.template", dest, map[string]string{"iface": "wlan0"})
	require.NoError(t, err)
	assert.Empty(t, diff)

	diff, err = r.Diff("dnsmasq.template", dest, map[string]string{"iface": "wlan1"})
	require.NoError(t, err)
	assert.Contains(t, diff, "-interface=wlan0")
	assert.Contains(t, diff, "+interface=wlan1")
}

func TestWriteFile_RenderErrorLeavesDestination(t *testing.T) {
	r := NewFS(fstest.MapFS{"t": {Data: []byte("{{ missing }}")}})
	dest := filepath.Join(t.TempDir(), "out.conf")
	require.NoError(t, os.WriteFile(dest, []byte("keep"), 0644))

	err := r.WriteFile("t", dest, nil)
	assert.ErrorIs(t, err, ErrConfigIO)

	data, _ := os.ReadFile(dest)
	assert.Equal(t, "keep", string(data))
}

func TestWriteFile_UnwritableDestination(t *testing.T) {
	r := NewFS(fstest.MapFS{"t": {Data: []byte("x")}})
	err := r.WriteFile("t", filepath.Join(t.TempDir(), "no", "such", "dir.conf"), nil)
	assert.ErrorIs(t, err, ErrConfigIO)
}
