// Package supplicant persists the ordered list of known Wi-Fi networks in the
// wpa_supplicant configuration format.
//
// The file is a short header followed by one network block per credential:
//
//	ctrl_interface=DIR=/var/run/wpa_supplicant GROUP=netdev
//	update_config=1
//	country=GB
//
//	network={
//		ssid="Home"
//		psk="secret123"
//		priority=2
//	}
//
// Order is priority. The first credential gets priority N and the last gets 1,
// so the supplicant tries networks in list order.
package supplicant
