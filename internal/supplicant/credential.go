package supplicant

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrInvalidCredential is returned by ValidateCredential.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidOrder is returned by Reorder for a missing order list.
	ErrInvalidOrder = errors.New("invalid network order")
)

// Credential is one known network.
type Credential struct {
	SSID     string `json:"ssid"`
	Passcode string `json:"passcode,omitempty"`
}

// Open reports whether the network has no passcode.
func (c Credential) Open() bool { return c.Passcode == "" }

// SSIDs returns the SSIDs of creds in order.
func SSIDs(creds []Credential) []string {
	out := make([]string, len(creds))
	for i, c := range creds {
		out[i] = c.SSID
	}
	return out
}

// ValidateCredential checks that ssid and passcode can be stored and
// read back unchanged.
func ValidateCredential(ssid, passcode string) error {
	if len(ssid) == 0 || len(ssid) > 32 {
		return fmt.Errorf("%w: ssid must be 1 to 32 bytes, got %d", ErrInvalidCredential, len(ssid))
	}
	if strings.IndexFunc(ssid, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: ssid contains control characters", ErrInvalidCredential)
	}

	switch {
	case passcode == "":
		return nil
	case isRawPSK(passcode):
		return nil
	case len(passcode) < 8 || len(passcode) > 63:
		return fmt.Errorf("%w: passcode must be 8 to 63 characters or 64 hex digits, got %d", ErrInvalidCredential, len(passcode))
	}
	for _, r := range passcode {
		if r < 0x20 || r > 0x7e {
			return fmt.Errorf("%w: passcode must be printable ASCII", ErrInvalidCredential)
		}
	}
	return nil
}

// isRawPSK reports whether s is a 256-bit pre-shared key in hex.
func isRawPSK(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// Upsert returns a copy of existing with ssid set to passcode. A known SSID
// keeps its position; a new one is appended.
func Upsert(existing []Credential, ssid, passcode string) []Credential {
	out := make([]Credential, len(existing), len(existing)+1)
	copy(out, existing)
	for i := range out {
		if out[i].SSID == ssid {
			out[i].Passcode = passcode
			return out
		}
	}
	return append(out, Credential{SSID: ssid, Passcode: passcode})
}

// Reorder returns existing rearranged so the SSIDs in order come first, in
// that order. Unknown SSIDs and repeats in order are ignored. Networks not
// mentioned keep their relative order after the mentioned ones.
func Reorder(existing []Credential, order []string) ([]Credential, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: order is required", ErrInvalidOrder)
	}

	index := make(map[string]int, len(existing))
	for i, c := range existing {
		index[c.SSID] = i
	}

	used := make([]bool, len(existing))
	out := make([]Credential, 0, len(existing))
	for _, ssid := range order {
		i, ok := index[ssid]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, existing[i])
	}
	for i, c := range existing {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out, nil
}
