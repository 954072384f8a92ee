package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ifconfigStation = `wlan0: flags=4163<UP,BROADCAST,RUNNING,MULTICAST>  mtu 1500
        inet 192.168.1.42  netmask 255.255.255.0  broadcast 192.168.1.255
        inet6 fe80::ba27:ebff:fe12:3456  prefixlen 64  scopeid 0x20<link>
        ether b8:27:eb:12:34:56  txqueuelen 1000  (Ethernet)
`

const ifconfigLegacy = `wlan0     Link encap:Ethernet  HWaddr b8:27:eb:aa:bb:cc
          inet addr:192.168.44.1  Bcast:192.168.44.255  Mask:255.255.255.0
`

const iwconfigStation = `wlan0     IEEE 802.11  ESSID:"Home"
          Mode:Managed  Frequency:2.437 GHz  Access Point: 11:22:33:44:55:66
          Bit Rate=72.2 Mb/s   Tx-Power=31 dBm
`

const iwconfigUnassociated = `wlan0     unassociated  Nickname:"<WIFI@REALTEK>"
          Mode:Auto  Frequency=2.412 GHz  Access Point: Not-Associated
`

func TestProbe_Station(t *testing.T) {
	exec := NewDryRunExecutor()
	exec.Respond("ifconfig wlan0", ifconfigStation)
	exec.Respond("iwconfig wlan0", iwconfigStation)

	status, err := NewProber(exec).Probe(context.Background(), "wlan0")
	require.NoError(t, err)

	assert.Equal(t, "b8:27:eb:12:34:56", status.HWAddr)
	assert.Equal(t, "192.168.1.42", status.InetAddr)
	assert.Equal(t, "11:22:33:44:55:66", status.APAddr)
	assert.Equal(t, "Home", status.APSSID)
	assert.Equal(t, UnknownValue, status.Unassociated)
	assert.Equal(t, []string{"ifconfig wlan0", "iwconfig wlan0"}, exec.Commands)
}

func TestProbe_LegacyIfconfig(t *testing.T) {
	exec := NewDryRunExecutor()
	exec.Respond("ifconfig wlan0", ifconfigLegacy)
	exec.Respond("iwconfig wlan0", iwconfigUnassociated)

	status, err := NewProber(exec).Probe(context.Background(), "wlan0")
	require.NoError(t, err)

	assert.Equal(t, "b8:27:eb:aa:bb:cc", status.HWAddr)
	assert.Equal(t, "192.168.44.1", status.InetAddr)
	assert.Equal(t, NotAssociated, status.APAddr)
	assert.Equal(t, UnknownSSID, status.APSSID)
	assert.Equal(t, "unassociated", status.Unassociated)
}

func TestProbe_EmptyOutputKeepsSentinels(t *testing.T) {
	status, err := NewProber(NewDryRunExecutor()).Probe(context.Background(), "wlan0")
	require.NoError(t, err)
	assert.Equal(t, newInterfaceStatus(), status)
}

func TestProbe_CommandFailure(t *testing.T) {
	exec := NewDryRunExecutor()
	exec.Fail("iwconfig wlan0", 1, "wlan0: no such device")

	_, err := NewProber(exec).Probe(context.Background(), "wlan0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "probe iwconfig")
}

func TestProbe_FirstFailureStopsProbe(t *testing.T) {
	m := new(MockCommandExecutor)
	m.On("RunCommand", "ifconfig", "wlan0").Return("", &CommandError{Name: "ifconfig", ExitCode: 1}).Once()

	_, err := NewProber(m).Probe(context.Background(), "wlan0")
	assert.Error(t, err)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "RunCommand", "iwconfig", "wlan0")
}

func TestDetectDriver(t *testing.T) {
	t.Run("nl80211", func(t *testing.T) {
		exec := NewDryRunExecutor()
		exec.Respond("iw list", "Wiphy phy0\n\tmax # scan SSIDs: 10\n")
		driver, err := NewProber(exec).DetectDriver(context.Background())
		require.NoError(t, err)
		assert.Equal(t, DriverNL80211, driver)
	})

	t.Run("realtek", func(t *testing.T) {
		exec := NewDryRunExecutor()
		exec.Fail("iw list", 1, "nl80211 not found.\n")
		driver, err := NewProber(exec).DetectDriver(context.Background())
		require.NoError(t, err)
		assert.Equal(t, DriverRTL871XDRV, driver)
	})

	t.Run("iw missing", func(t *testing.T) {
		exec := NewDryRunExecutor()
		exec.Fail("iw list", -1, "")
		_, err := NewProber(exec).DetectDriver(context.Background())
		assert.Error(t, err)
	})
}
