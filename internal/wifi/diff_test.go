package wifi

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray10k/raspberry-wifi-conf/internal/network"
)

func TestDiff(t *testing.T) {
	h := newHarness(t, PolicyContinue)
	ctx := context.Background()

	diffs, err := h.mgr.Diff(ctx, network.ModeAccessPoint)
	require.NoError(t, err)
	require.Len(t, diffs, 3)
	assert.Equal(t, h.opts.Paths.Hostapd, diffs[2].Path)
	assert.Contains(t, diffs[2].Diff, "+ssid="+apSSID)

	// Diff never writes.
	_, err = os.Stat(h.opts.Paths.Hostapd)
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, h.exec.Count("systemctl"))

	_, err = h.mgr.EnableAccessPoint(ctx)
	require.NoError(t, err)

	diffs, err = h.mgr.Diff(ctx, network.ModeAccessPoint)
	require.NoError(t, err)
	for _, d := range diffs {
		assert.Empty(t, d.Diff, d.Path)
	}

	diffs, err = h.mgr.Diff(ctx, network.ModeStation)
	require.NoError(t, err)
	assert.NotEmpty(t, diffs[2].Diff)

	_, err = h.mgr.Diff(ctx, network.ModeDisabled)
	assert.ErrorIs(t, err, ErrValidation)
}
