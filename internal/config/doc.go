// Package config handles HCL configuration parsing, defaults and validation.
//
// # Overview
//
// The daemon reads one HCL file (JSON is accepted by extension). Every
// block is optional; missing values take the defaults of a stock Raspberry Pi
// OS install. Environment variables prefixed with WIFICONF_ override a few
// settings for service units.
//
// # Configuration Blocks
//
//   - access_point: SSID and addressing of the setup AP
//   - supplicant: credential file location and header
//   - paths: config files rewritten on every transition
//   - services: service names and the failure policy for restarts
//   - server: HTTP listen address and boot behaviour
//   - log: level, format and optional remote syslog
//   - audit: transition audit database
//
// Example:
//
//	wifi_interface = "wlan0"
//
//	access_point {
//	  ssid    = "rpi-config-ap"
//	  ip_addr = "192.168.44.1"
//	}
//
//	services {
//	  on_failure = "abort"
//	}
package config
