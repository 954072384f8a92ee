package supplicant

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

// Encode writes header and creds in supplicant format. Priorities count down
// from len(creds) to 1. An SSID that is not printable ASCII is written as
// unquoted hex, the same form wpa_supplicant saves. An open network is written with key_mgmt=NONE and a
// 64 digit hex key is written unquoted, as wpa_supplicant expects a raw PSK.
func Encode(w io.Writer, header Header, creds []Credential) error {
	bw := bufio.NewWriter(w)

	if header.CtrlInterface != "" {
		fmt.Fprintf(bw, "ctrl_interface=%s\n", header.CtrlInterface)
	}
	if header.UpdateConfig {
		fmt.Fprintln(bw, "update_config=1")
	}
	if header.Country != "" {
		fmt.Fprintf(bw, "country=%s\n", header.Country)
	}

	for i, c := range creds {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "network={")
		fmt.Fprintf(bw, "\tssid=%s\n", formatSSID(c.SSID))
		switch {
		case c.Open():
			fmt.Fprintln(bw, "\tkey_mgmt=NONE")
		case isRawPSK(c.Passcode):
			fmt.Fprintf(bw, "\tpsk=%s\n", c.Passcode)
		default:
			fmt.Fprintf(bw, "\tpsk=\"%s\"\n", c.Passcode)
		}
		fmt.Fprintf(bw, "\tpriority=%d\n", len(creds)-i)
		fmt.Fprintln(bw, "}")
	}

	return bw.Flush()
}

func formatSSID(ssid string) string {
	for i := 0; i < len(ssid); i++ {
		if ssid[i] < 0x20 || ssid[i] > 0x7e {
			return hex.EncodeToString([]byte(ssid))
		}
	}
	return `"` + ssid + `"`
}
