//go:build linux

package netstat

import (
	"fmt"

	"github.com/shirou/gopsutil/net"
)

const statusListen = "LISTEN"

// Lister enumerates the host's network endpoints.
type Lister func() ([]net.ConnectionStat, error)

// Locator finds the process bound to a listening port.
type Locator struct {
	list Lister
}

// NewLocator returns a Locator over every inet (tcp/udp, v4/v6) endpoint.
func NewLocator() *Locator {
	return &Locator{list: func() ([]net.ConnectionStat, error) {
		return net.Connections("inet")
	}}
}

// NewLocatorWith returns a Locator that enumerates endpoints through list.
func NewLocatorWith(list Lister) *Locator { return &Locator{list: list} }

// Locate returns the pid owning the first listening endpoint on port, or
// ErrNotFound. It does not retry.
func (l *Locator) Locate(port int) (int, error) {
	conns, err := l.list()
	if err != nil {
		return 0, fmt.Errorf("netstat: list connections: %w", err)
	}

	hidden := false
	for _, c := range conns {
		if c.Status != statusListen || c.Laddr.Port != uint32(port) {
			continue
		}
		if c.Pid <= 0 {
			// owned by another user; the kernel hides the inode owner
			hidden = true
			continue
		}
		return int(c.Pid), nil
	}
	if hidden {
		return 0, fmt.Errorf("%w %d (owner not visible, try running as root)", ErrNotFound, port)
	}
	return 0, fmt.Errorf("%w %d", ErrNotFound, port)
}
