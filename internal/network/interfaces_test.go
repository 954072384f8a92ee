package network

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func TestInterfaceExists(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	wlan0 := &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: "wlan0", Index: 3}}
	mockNetlink.On("LinkByName", "wlan0").Return(wlan0, nil).Once()
	mockNetlink.On("LinkByName", "wlan1").Return(nil, fmt.Errorf("%w: wlan1", ErrLinkNotFound)).Once()
	mockNetlink.On("LinkByName", "wlan2").Return(nil, errors.New("operation not permitted")).Once()

	ok, err := InterfaceExists(mockNetlink, "wlan0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = InterfaceExists(mockNetlink, "wlan1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = InterfaceExists(mockNetlink, "wlan2")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up interface wlan2")

	mockNetlink.AssertExpectations(t)
}

func TestListInterfaces(t *testing.T) {
	mockNetlink := new(MockNetlinker)
	mockNetlink.On("LinkList").Return([]netlink.Link{
		&netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: "wlan0"}},
		&netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: "eth0"}},
		&netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: "lo"}},
	}, nil).Once()

	names, err := ListInterfaces(mockNetlink)
	require.NoError(t, err)
	assert.Equal(t, []string{"eth0", "lo", "wlan0"}, names)
}
