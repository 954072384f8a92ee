package wifi

import (
	"context"
	"fmt"

	"github.com/ray10k/raspberry-wifi-conf/internal/network"
	"github.com/ray10k/raspberry-wifi-conf/internal/templates"
)

// FileDiff is the pending change to one config file. An empty Diff means the
// file already matches.
type FileDiff struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// Diff shows what a transition to mode would write, without writing it.
// Nothing is probed except the driver for access point mode.
func (m *Manager) Diff(ctx context.Context, mode network.Mode) ([]FileDiff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		data  map[string]string
		names [3]string
		err   error
	)
	switch mode {
	case network.ModeAccessPoint:
		data, err = m.accessPointContext(ctx)
		names = [3]string{templates.DHCPCDAccessPoint, templates.DNSMasqAccessPoint, templates.HostapdAccessPoint}
	case network.ModeStation:
		data, err = m.stationContext()
		names = [3]string{templates.DHCPCDStation, templates.DNSMasqStation, templates.HostapdStation}
	default:
		return nil, fmt.Errorf("%w: no config files for mode %s", ErrValidation, mode)
	}
	if err != nil {
		return nil, err
	}

	paths := [3]string{m.opts.Paths.DHCPCD, m.opts.Paths.DNSMasq, m.opts.Paths.Hostapd}
	diffs := make([]FileDiff, 0, len(paths))
	for i, path := range paths {
		text, err := m.renderer.Diff(names[i], path, data)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, FileDiff{Path: path, Diff: text})
	}
	return diffs, nil
}
