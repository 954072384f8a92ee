package supplicant

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned when the file structure cannot be trusted.
var ErrMalformed = errors.New("malformed supplicant config")

// Header holds the global settings written above the network blocks.
type Header struct {
	CtrlInterface string `json:"ctrl_interface"`
	UpdateConfig  bool   `json:"update_config"`
	Country       string `json:"country"`
}

// File is the parsed form of a supplicant config.
type File struct {
	Header   Header
	Networks []Credential
	// Warnings lists recoverable problems found while parsing.
	Warnings []string
}

type parseState int

const (
	outsideBlock parseState = iota
	insideBlock
)

// block accumulates the fields of the network block being parsed.
type block struct {
	start   int
	ssid    string
	psk     string
	hasSSID bool
	hasPSK  bool
}

// Parse reads a supplicant config. Lines that are neither headers nor
// ssid/psk keys are ignored.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	seen := map[string]int{}
	state := outsideBlock
	var cur block

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if line == "}" {
			if state != insideBlock {
				return nil, fmt.Errorf("%w: line %d: unexpected '}' outside network block", ErrMalformed, lineNum)
			}
			if !cur.hasSSID {
				return nil, fmt.Errorf("%w: line %d: network block without ssid", ErrMalformed, cur.start)
			}
			f.addNetwork(seen, Credential{SSID: cur.ssid, Passcode: cur.psk}, cur.start)
			state = outsideBlock
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "network" && value == "{" {
			if state == insideBlock {
				return nil, fmt.Errorf("%w: line %d: nested network block", ErrMalformed, lineNum)
			}
			state = insideBlock
			cur = block{start: lineNum}
			continue
		}

		if state == outsideBlock {
			f.setHeader(key, value)
			continue
		}

		switch key {
		case "ssid":
			if cur.hasSSID {
				return nil, fmt.Errorf("%w: line %d: duplicate ssid in network block", ErrMalformed, lineNum)
			}
			ssid, ok := parseSSID(value)
			if !ok {
				f.Warnings = append(f.Warnings, fmt.Sprintf("line %d: ssid %s is neither quoted nor hex, kept as written", lineNum, value))
			}
			cur.ssid, cur.hasSSID = ssid, true
		case "psk":
			if cur.hasPSK {
				return nil, fmt.Errorf("%w: line %d: duplicate psk in network block", ErrMalformed, lineNum)
			}
			cur.psk, cur.hasPSK = unquote(value), true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrStoreIO, err)
	}

	if state == insideBlock {
		f.Warnings = append(f.Warnings, fmt.Sprintf("line %d: network block not closed, dropped", cur.start))
	}
	return f, nil
}

func (f *File) setHeader(key, value string) {
	switch key {
	case "ctrl_interface":
		f.Header.CtrlInterface = value
	case "update_config":
		n, err := strconv.Atoi(value)
		f.Header.UpdateConfig = err == nil && n != 0
	case "country":
		f.Header.Country = value
	}
}

func (f *File) addNetwork(seen map[string]int, c Credential, line int) {
	if i, ok := seen[c.SSID]; ok {
		f.Networks[i].Passcode = c.Passcode
		f.Warnings = append(f.Warnings, fmt.Sprintf("line %d: duplicate network %q merged into earlier entry", line, c.SSID))
		return
	}
	seen[c.SSID] = len(f.Networks)
	f.Networks = append(f.Networks, c)
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseSSID reads a quoted ssid, or the unquoted hex form wpa_supplicant
// writes for SSIDs that are not printable ASCII. Anything else is returned
// as written with ok false.
func parseSSID(value string) (ssid string, ok bool) {
	if strings.HasPrefix(value, "\"") {
		return unquote(value), true
	}
	b, err := hex.DecodeString(value)
	if err != nil || len(b) == 0 {
		return value, false
	}
	return string(b), true
}
