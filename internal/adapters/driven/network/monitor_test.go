package network

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/artsync/internal/core/domain"
)

func fakeMonitor(ifaces []net.Interface, withAddrs map[string]bool) *Monitor {
	m := NewMonitor(nil)
	m.interfaces = func() ([]net.Interface, error) { return ifaces, nil }
	m.addrs = func(iface net.Interface) ([]net.Addr, error) {
		if withAddrs[iface.Name] {
			return []net.Addr{&net.IPNet{IP: net.IPv4(192, 168, 1, 2), Mask: net.CIDRMask(24, 32)}}, nil
		}
		return nil, nil
	}
	return m
}

func TestMonitor_OnUnmetered(t *testing.T) {
	up := net.FlagUp | net.FlagBroadcast
	tests := []struct {
		name   string
		ifaces []net.Interface
		addrs  map[string]bool
		want   bool
	}{
		{
			name:   "wifi with address",
			ifaces: []net.Interface{{Name: "wlan0", Flags: up}},
			addrs:  map[string]bool{"wlan0": true},
			want:   true,
		},
		{
			name:   "loopback only",
			ifaces: []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}},
			addrs:  map[string]bool{"lo": true},
			want:   false,
		},
		{
			name:   "cellular only",
			ifaces: []net.Interface{{Name: "wwan0", Flags: up}, {Name: "rmnet_data0", Flags: up}},
			addrs:  map[string]bool{"wwan0": true, "rmnet_data0": true},
			want:   false,
		},
		{
			name:   "ethernet down",
			ifaces: []net.Interface{{Name: "eth0", Flags: net.FlagBroadcast}},
			addrs:  map[string]bool{"eth0": true},
			want:   false,
		},
		{
			name:   "ethernet without address",
			ifaces: []net.Interface{{Name: "eth0", Flags: up}},
			want:   false,
		},
		{
			name:   "cellular and wifi",
			ifaces: []net.Interface{{Name: "wwan0", Flags: up}, {Name: "en0", Flags: up}},
			addrs:  map[string]bool{"wwan0": true, "en0": true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fakeMonitor(tt.ifaces, tt.addrs).OnUnmetered())
		})
	}
}

func TestMonitor_ForcedMetered(t *testing.T) {
	config := memory.NewConfigStore()
	m := fakeMonitor([]net.Interface{{Name: "eth0", Flags: net.FlagUp}}, map[string]bool{"eth0": true})
	m.config = config

	assert.True(t, m.OnUnmetered())

	require.NoError(t, config.Set(domain.KeyNetworkMetered, true))
	assert.False(t, m.OnUnmetered())
}

func TestMonitor_InterfaceError(t *testing.T) {
	m := NewMonitor(nil)
	m.interfaces = func() ([]net.Interface, error) { return nil, errors.New("boom") }

	assert.False(t, m.OnUnmetered())
}
