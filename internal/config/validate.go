package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ray10k/raspberry-wifi-conf/internal/logging"
	"github.com/ray10k/raspberry-wifi-conf/internal/validation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks a config with defaults applied and reports every problem
// at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validation.ValidateInterfaceName(c.WifiInterface); err != nil {
		add("wifi_interface", "%v", err)
	}
	if d, err := time.ParseDuration(c.CommandTimeout); err != nil {
		add("command_timeout", "invalid duration %q", c.CommandTimeout)
	} else if d < 0 {
		add("command_timeout", "must not be negative")
	}

	if ap := c.AccessPoint; ap != nil {
		if ap.SSID == "" || len(ap.SSID) > 32 {
			add("access_point.ssid", "must be 1 to 32 bytes")
		}
		if n := len(ap.Passphrase); n != 0 && (n < 8 || n > 63) {
			add("access_point.passphrase", "must be empty or 8 to 63 characters")
		}
		for field, v := range map[string]string{
			"access_point.ip_addr":            ap.IPAddr,
			"access_point.subnet_range_start": ap.SubnetRangeStart,
			"access_point.subnet_range_end":   ap.SubnetRangeEnd,
		} {
			if err := validation.ValidateIPv4(v); err != nil {
				add(field, "%v", err)
			}
		}
		if _, err := PrefixLength(ap.Netmask); err != nil {
			add("access_point.netmask", "%v", err)
		}
		if ap.Channel < 1 || ap.Channel > 14 {
			add("access_point.channel", "must be between 1 and 14")
		}
	}

	if c.Supplicant != nil && c.Supplicant.Path == "" {
		add("supplicant.path", "must not be empty")
	}

	if s := c.Services; s != nil {
		for field, unit := range map[string]string{
			"services.dhcp_client": s.DHCPClient,
			"services.dns_server":  s.DNSServer,
			"services.ap_daemon":   s.APDaemon,
		} {
			if err := validation.ValidateUnitName(unit); err != nil {
				add(field, "%v", err)
			}
		}
		if s.OnFailure != OnFailureContinue && s.OnFailure != OnFailureAbort {
			add("services.on_failure", "must be %q or %q", OnFailureContinue, OnFailureAbort)
		}
	}

	if c.Server != nil {
		for _, p := range c.Server.TrustedProxies {
			if err := validation.ValidateAddrOrPrefix(p); err != nil {
				add("server.trusted_proxies", "%v", err)
			}
		}
	}

	if c.Log != nil {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			add("log.level", "%v", err)
		}
		if sl := c.Log.Syslog; sl != nil && sl.Protocol != "udp" && sl.Protocol != "tcp" {
			add("log.syslog.protocol", "must be udp or tcp")
		}
	}

	if c.Audit != nil && c.Audit.RetentionDays < 0 {
		add("audit.retention_days", "must not be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// PrefixLength converts a dotted IPv4 netmask to its prefix length.
func PrefixLength(netmask string) (int, error) {
	ip := net.ParseIP(netmask).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid netmask %q", netmask)
	}
	ones, bits := net.IPMask(ip).Size()
	if bits == 0 {
		return 0, fmt.Errorf("non-contiguous netmask %q", netmask)
	}
	return ones, nil
}
