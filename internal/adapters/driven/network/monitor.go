// Package network reports connectivity for job constraints.
package network

import (
	"net"
	"strings"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driven"
	"github.com/custodia-labs/artsync/internal/logger"
)

// Ensure Monitor implements the interface.
var _ driven.NetworkMonitor = (*Monitor)(nil)

// meteredPrefixes are interface name prefixes of cellular and dial-up links.
var meteredPrefixes = []string{"wwan", "rmnet", "ppp", "ccmni", "pdp_ip"}

// Monitor classifies the host's network interfaces. The host counts as
// unmetered when at least one interface that is up, is not loopback, and
// is not a cellular link carries an address. Setting network.metered to
// true in the config forces metered.
type Monitor struct {
	config     driven.ConfigStore
	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

// NewMonitor creates a monitor. config may be nil.
func NewMonitor(config driven.ConfigStore) *Monitor {
	return &Monitor{
		config:     config,
		interfaces: net.Interfaces,
		addrs:      func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() },
	}
}

// OnUnmetered reports whether an unmetered link is available.
func (m *Monitor) OnUnmetered() bool {
	if m.config != nil && m.config.GetBool(domain.KeyNetworkMetered) {
		return false
	}

	ifaces, err := m.interfaces()
	if err != nil {
		logger.Warn("network: listing interfaces: %v", err)
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isMetered(iface.Name) {
			continue
		}
		addrs, err := m.addrs(iface)
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}

func isMetered(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range meteredPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
