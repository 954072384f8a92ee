package config

import (
	"path/filepath"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/brand"
)

// Failure policies for service restarts.
const (
	OnFailureContinue = "continue"
	OnFailureAbort    = "abort"
)

// Config is the top-level structure for the daemon configuration.
type Config struct {
	WifiInterface  string `hcl:"wifi_interface,optional" json:"wifi_interface"`
	UseSudo        *bool  `hcl:"use_sudo,optional" json:"use_sudo,omitempty"`
	CommandTimeout string `hcl:"command_timeout,optional" json:"command_timeout,omitempty"`

	AccessPoint *AccessPointConfig `hcl:"access_point,block" json:"access_point"`
	Supplicant  *SupplicantConfig  `hcl:"supplicant,block" json:"supplicant"`
	Paths       *PathsConfig       `hcl:"paths,block" json:"paths"`
	Services    *ServicesConfig    `hcl:"services,block" json:"services"`
	Server      *ServerConfig      `hcl:"server,block" json:"server"`
	Log         *LogConfig         `hcl:"log,block" json:"log"`
	Audit       *AuditConfig       `hcl:"audit,block" json:"audit"`
}

// AccessPointConfig describes the network broadcast in AP mode.
type AccessPointConfig struct {
	SSID             string `hcl:"ssid,optional" json:"ssid"`
	Passphrase       string `hcl:"passphrase,optional" json:"passphrase,omitempty"`
	IPAddr           string `hcl:"ip_addr,optional" json:"ip_addr"`
	Netmask          string `hcl:"netmask,optional" json:"netmask"`
	SubnetRangeStart string `hcl:"subnet_range_start,optional" json:"subnet_range_start"`
	SubnetRangeEnd   string `hcl:"subnet_range_end,optional" json:"subnet_range_end"`
	Channel          int    `hcl:"channel,optional" json:"channel"`
	// ForceReconfigure rewrites the AP configuration even when the AP is
	// already up.
	ForceReconfigure bool `hcl:"force_reconfigure,optional" json:"force_reconfigure"`
}

// SupplicantConfig locates the credential file and its header.
type SupplicantConfig struct {
	Path          string `hcl:"path,optional" json:"path"`
	CtrlInterface string `hcl:"ctrl_interface,optional" json:"ctrl_interface"`
	UpdateConfig  *bool  `hcl:"update_config,optional" json:"update_config,omitempty"`
	Country       string `hcl:"country,optional" json:"country"`
}

// PathsConfig lists the files rendered from templates.
type PathsConfig struct {
	DHCPCD  string `hcl:"dhcpcd,optional" json:"dhcpcd"`
	DNSMasq string `hcl:"dnsmasq,optional" json:"dnsmasq"`
	Hostapd string `hcl:"hostapd,optional" json:"hostapd"`
	// Templates overrides the built-in templates file by file.
	Templates string `hcl:"templates,optional" json:"templates,omitempty"`
}

// ServicesConfig names the managed system services.
type ServicesConfig struct {
	DHCPClient string `hcl:"dhcp_client,optional" json:"dhcp_client"`
	DNSServer  string `hcl:"dns_server,optional" json:"dns_server"`
	APDaemon   string `hcl:"ap_daemon,optional" json:"ap_daemon"`
	OnFailure  string `hcl:"on_failure,optional" json:"on_failure"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `hcl:"listen,optional" json:"listen"`
	// AutoAP enables AP mode at startup when the device is not connected.
	AutoAP *bool `hcl:"auto_ap,optional" json:"auto_ap,omitempty"`
	// RateLimit caps mode-changing requests per client per minute. Negative
	// disables the limit.
	RateLimit int `hcl:"rate_limit,optional" json:"rate_limit,omitempty"`
	// TrustedProxies lists addresses or CIDR prefixes whose X-Forwarded-For
	// header is believed. Empty means clients are keyed on their own address.
	TrustedProxies []string `hcl:"trusted_proxies,optional" json:"trusted_proxies,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string        `hcl:"level,optional" json:"level"`
	JSON   bool          `hcl:"json,optional" json:"json"`
	Syslog *SyslogConfig `hcl:"syslog,block" json:"syslog,omitempty"`
}

// SyslogConfig forwards logs to a remote syslog server.
type SyslogConfig struct {
	Host     string `hcl:"host" json:"host"`
	Port     int    `hcl:"port,optional" json:"port,omitempty"`
	Protocol string `hcl:"protocol,optional" json:"protocol,omitempty"`
}

// AuditConfig configures the transition audit log.
type AuditConfig struct {
	Enabled       *bool  `hcl:"enabled,optional" json:"enabled,omitempty"`
	Path          string `hcl:"path,optional" json:"path"`
	RetentionDays int    `hcl:"retention_days,optional" json:"retention_days"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func boolPtr(b bool) *bool { return &b }

func orDefault(a, b string) string {
	if a == "" {
		return b
	}
	return a
}

func orDefaultInt(a, b int) int {
	if a == 0 {
		return b
	}
	return a
}

// ApplyDefaults fills in every unset value.
func (c *Config) ApplyDefaults() {
	c.WifiInterface = orDefault(c.WifiInterface, "wlan0")
	if c.UseSudo == nil {
		c.UseSudo = boolPtr(true)
	}
	c.CommandTimeout = orDefault(c.CommandTimeout, "0s")

	if c.AccessPoint == nil {
		c.AccessPoint = &AccessPointConfig{}
	}
	ap := c.AccessPoint
	ap.SSID = orDefault(ap.SSID, "rpi-config-ap")
	ap.IPAddr = orDefault(ap.IPAddr, "192.168.44.1")
	ap.Netmask = orDefault(ap.Netmask, "255.255.255.0")
	ap.SubnetRangeStart = orDefault(ap.SubnetRangeStart, "192.168.44.10")
	ap.SubnetRangeEnd = orDefault(ap.SubnetRangeEnd, "192.168.44.50")
	ap.Channel = orDefaultInt(ap.Channel, 6)

	if c.Supplicant == nil {
		c.Supplicant = &SupplicantConfig{}
	}
	s := c.Supplicant
	s.Path = orDefault(s.Path, "/etc/wpa_supplicant/wpa_supplicant.conf")
	s.CtrlInterface = orDefault(s.CtrlInterface, "DIR=/var/run/wpa_supplicant GROUP=netdev")
	if s.UpdateConfig == nil {
		s.UpdateConfig = boolPtr(true)
	}
	s.Country = orDefault(s.Country, "GB")

	if c.Paths == nil {
		c.Paths = &PathsConfig{}
	}
	c.Paths.DHCPCD = orDefault(c.Paths.DHCPCD, "/etc/dhcpcd.conf")
	c.Paths.DNSMasq = orDefault(c.Paths.DNSMasq, "/etc/dnsmasq.conf")
	c.Paths.Hostapd = orDefault(c.Paths.Hostapd, "/etc/hostapd/hostapd.conf")

	if c.Services == nil {
		c.Services = &ServicesConfig{}
	}
	c.Services.DHCPClient = orDefault(c.Services.DHCPClient, "dhcpcd")
	c.Services.DNSServer = orDefault(c.Services.DNSServer, "dnsmasq")
	c.Services.APDaemon = orDefault(c.Services.APDaemon, "hostapd")
	c.Services.OnFailure = orDefault(c.Services.OnFailure, OnFailureContinue)

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	c.Server.Listen = orDefault(c.Server.Listen, ":88")
	if c.Server.AutoAP == nil {
		c.Server.AutoAP = boolPtr(true)
	}
	c.Server.RateLimit = orDefaultInt(c.Server.RateLimit, 30)
	if c.Server.TrustedProxies == nil {
		c.Server.TrustedProxies = []string{}
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	c.Log.Level = orDefault(c.Log.Level, "info")
	if c.Log.Syslog != nil {
		c.Log.Syslog.Port = orDefaultInt(c.Log.Syslog.Port, 514)
		c.Log.Syslog.Protocol = orDefault(c.Log.Syslog.Protocol, "udp")
	}

	if c.Audit == nil {
		c.Audit = &AuditConfig{}
	}
	if c.Audit.Enabled == nil {
		c.Audit.Enabled = boolPtr(true)
	}
	c.Audit.Path = orDefault(c.Audit.Path, filepath.Join(brand.GetStateDir(), "audit.db"))
	c.Audit.RetentionDays = orDefaultInt(c.Audit.RetentionDays, 30)
}

// Sudo reports whether external commands run through sudo.
func (c *Config) Sudo() bool { return c.UseSudo == nil || *c.UseSudo }

// Timeout returns the per-command timeout. Zero means none.
// Call Validate first; an unparsable value is treated as zero.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil {
		return 0
	}
	return d
}

// UpdateConfigEnabled reports whether update_config=1 is written.
func (s *SupplicantConfig) UpdateConfigEnabled() bool {
	return s.UpdateConfig == nil || *s.UpdateConfig
}

// AutoAPEnabled reports whether AP mode is brought up at startup.
func (s *ServerConfig) AutoAPEnabled() bool {
	return s.AutoAP == nil || *s.AutoAP
}

// AuditEnabled reports whether transitions are recorded.
func (a *AuditConfig) AuditEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}
