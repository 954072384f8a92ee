// Package validation checks values that end up as arguments of external
// commands.
package validation

import (
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strings"
)

var (
	// Kernel limit is 15 bytes (IFNAMSIZ - 1).
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	unitNameRegex = regexp.MustCompile(`^[a-zA-Z0-9:_.@-]{1,255}$`)
)

// ValidateInterfaceName validates a network interface name
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if len(name) > 15 {
		return fmt.Errorf("interface name too long (max 15 characters): %s", name)
	}
	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}
	// A leading dash would be parsed as an option by ifconfig and wpa_cli.
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("interface name cannot start with '-': %s", name)
	}
	return nil
}

// ValidateUnitName validates a systemd unit name such as "dnsmasq" or
// "hostapd.service".
func ValidateUnitName(name string) error {
	if name == "" {
		return fmt.Errorf("unit name cannot be empty")
	}
	if !unitNameRegex.MatchString(name) {
		return fmt.Errorf("invalid unit name: %s", name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("unit name cannot start with '-': %s", name)
	}
	return nil
}

// ValidateIPv4 checks that s is a dotted-quad IPv4 address.
func ValidateIPv4(s string) error {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4 address %q", s)
	}
	return nil
}

// ValidateAddrOrPrefix accepts an IP address or a CIDR prefix.
func ValidateAddrOrPrefix(s string) error {
	if _, err := netip.ParseAddr(s); err == nil {
		return nil
	}
	if _, err := netip.ParsePrefix(s); err != nil {
		return fmt.Errorf("invalid address or prefix %q", s)
	}
	return nil
}
