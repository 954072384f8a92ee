package network

import "fmt"

// Mode is the network mode derived from a single probe.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeAccessPoint
	ModeStation
)

func (m Mode) String() string {
	switch m {
	case ModeAccessPoint:
		return "access_point"
	case ModeStation:
		return "station"
	default:
		return "disabled"
	}
}

// ParseMode accepts the names produced by Mode.String, plus "ap".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "ap", "access_point":
		return ModeAccessPoint, nil
	case "station":
		return ModeStation, nil
	case "disabled":
		return ModeDisabled, nil
	}
	return ModeDisabled, fmt.Errorf("unknown mode %q", s)
}

// IsAccessPointEnabled returns the broadcast SSID when the interface is
// serving apSSID, or "" otherwise.
func IsAccessPointEnabled(status InterfaceStatus, apSSID string) string {
	if status.APSSID == apSSID {
		return status.APSSID
	}
	return ""
}

// IsStationEnabled returns the station IP address when the interface is
// associated to a foreign access point with an address, or "" otherwise.
// An active AP always wins.
func IsStationEnabled(status InterfaceStatus, apSSID string) string {
	if IsAccessPointEnabled(status, apSSID) != "" {
		return ""
	}
	if status.InetAddr == UnknownValue {
		return ""
	}
	if status.APAddr == NotAssociated || status.APAddr == UnknownAP {
		return ""
	}
	return status.InetAddr
}

// Detect classifies status. The AP check runs first.
func Detect(status InterfaceStatus, apSSID string) Mode {
	if IsAccessPointEnabled(status, apSSID) != "" {
		return ModeAccessPoint
	}
	if IsStationEnabled(status, apSSID) != "" {
		return ModeStation
	}
	return ModeDisabled
}
