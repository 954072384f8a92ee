package network

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel values for fields a probe could not extract.
const (
	UnknownValue  = "<unknown>"
	UnknownAP     = "<unknown_ap>"
	UnknownSSID   = "<unknown_ssid>"
	NotAssociated = "Not-Associated"
)

// Wireless driver names handed to the AP daemon configuration.
const (
	DriverNL80211    = "nl80211"
	DriverRTL871XDRV = "rtl871xdrv"
)

// InterfaceStatus is a point-in-time view of a wireless interface.
type InterfaceStatus struct {
	HWAddr       string `json:"hw_addr"`
	InetAddr     string `json:"inet_addr"`
	APAddr       string `json:"ap_addr"`
	APSSID       string `json:"ap_ssid"`
	Unassociated string `json:"unassociated"`
}

// newInterfaceStatus returns a status with every field set to its sentinel.
func newInterfaceStatus() InterfaceStatus {
	return InterfaceStatus{
		HWAddr:       UnknownValue,
		InetAddr:     UnknownValue,
		APAddr:       UnknownAP,
		APSSID:       UnknownSSID,
		Unassociated: UnknownValue,
	}
}

type fieldPattern struct {
	re  *regexp.Regexp
	set func(*InterfaceStatus, string)
}

// ifconfig prints "HWaddr" on old net-tools and "ether" on current ones.
var ifconfigFields = []fieldPattern{
	{regexp.MustCompile(`(?:HWaddr|ether)\s+([^\s]+)`), func(s *InterfaceStatus, v string) { s.HWAddr = v }},
	{regexp.MustCompile(`inet\s+(?:addr:)?([^\s]+)`), func(s *InterfaceStatus, v string) { s.InetAddr = v }},
}

var iwconfigFields = []fieldPattern{
	{regexp.MustCompile(`Access Point:\s([^\s]+)`), func(s *InterfaceStatus, v string) { s.APAddr = v }},
	{regexp.MustCompile(`ESSID:"([^"]+)"`), func(s *InterfaceStatus, v string) { s.APSSID = v }},
	{regexp.MustCompile(`(unassociated)\s+Nick`), func(s *InterfaceStatus, v string) { s.Unassociated = v }},
}

// Prober queries interface state through a CommandExecutor.
type Prober struct {
	cmd CommandExecutor
}

// NewProber creates a prober that runs its queries through cmd.
func NewProber(cmd CommandExecutor) *Prober {
	return &Prober{cmd: cmd}
}

// Probe runs ifconfig and iwconfig against iface and extracts the known fields.
// Either command failing fails the probe; fields that simply do not match keep
// their sentinel.
func (p *Prober) Probe(ctx context.Context, iface string) (InterfaceStatus, error) {
	status := newInterfaceStatus()

	if err := p.runAndExtract(ctx, &status, ifconfigFields, "ifconfig", iface); err != nil {
		return status, err
	}
	if err := p.runAndExtract(ctx, &status, iwconfigFields, "iwconfig", iface); err != nil {
		return status, err
	}
	return status, nil
}

func (p *Prober) runAndExtract(ctx context.Context, status *InterfaceStatus, fields []fieldPattern, name string, arg ...string) error {
	out, err := p.cmd.RunCommand(ctx, name, arg...)
	if err != nil {
		return fmt.Errorf("probe %s: %w", name, err)
	}
	for _, f := range fields {
		if m := f.re.FindStringSubmatch(out); len(m) > 1 {
			f.set(status, m[1])
		}
	}
	return nil
}

// DetectDriver returns the hostapd driver to use. Realtek boards without
// nl80211 support report "nl80211 not found" from iw.
func (p *Prober) DetectDriver(ctx context.Context) (string, error) {
	out, err := p.cmd.RunCommand(ctx, "iw", "list")
	text := out
	if err != nil {
		if IsLaunchFailure(err) {
			return "", fmt.Errorf("detect driver: %w", err)
		}
		var cerr *CommandError
		if errors.As(err, &cerr) {
			text = cerr.Stderr + cerr.Stdout
		}
	}
	if strings.HasPrefix(strings.TrimSpace(text), "nl80211 not found") {
		return DriverRTL871XDRV, nil
	}
	return DriverNL80211, nil
}
