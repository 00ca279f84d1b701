//go:build linux

package netstat

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"
)

// LISTEN as encoded in the st column of /proc/net/tcp.
const tcpListen = 0x0A

var tcpStates = map[uint64]string{
	0x01: "ESTAB",
	0x02: "SYN-SENT",
	0x03: "SYN-RECV",
	0x04: "FIN-WAIT-1",
	0x05: "FIN-WAIT-2",
	0x06: "TIME-WAIT",
	0x07: "UNCONN",
	0x08: "CLOSE-WAIT",
	0x09: "LAST-ACK",
	0x0A: "LISTEN",
	0x0B: "CLOSING",
}

// Procfs renders the socket table from /proc/net/tcp{,6} joined with the
// socket inodes held open by the pid, in the same column order as ss.
// Unlike ss, the "all" tier includes listening sockets.
//
// For a LISTEN socket ss puts the accept backlog limit in Send-Q, while the
// kernel table carries 0 in tx_queue. With this source a listener's send
// queue is therefore always 0; Recv-Q (pending accepts) matches ss.
type Procfs struct {
	fs procfs.FS
}

func NewProcfs(root string) (*Procfs, error) {
	pfs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("netstat: procfs %s: %w", root, err)
	}
	return &Procfs{fs: pfs}, nil
}

func (p *Procfs) Query(pid int, listeningOnly bool) (string, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return "", fmt.Errorf("netstat: proc %d: %w", pid, err)
	}
	targets, err := proc.FileDescriptorTargets()
	if err != nil {
		return "", fmt.Errorf("netstat: fds of %d: %w", pid, err)
	}
	inodes := socketInodes(targets)
	if len(inodes) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, load := range []func() (procfs.NetTCP, error){p.fs.NetTCP, p.fs.NetTCP6} {
		lines, err := load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("netstat: tcp table: %w", err)
		}
		for _, l := range lines {
			if _, ok := inodes[l.Inode]; !ok {
				continue
			}
			if listeningOnly && l.St != tcpListen {
				continue
			}
			fmt.Fprintf(&b, "%s %d %d %s %s pid=%d,\n",
				stateName(l.St), l.RxQueue, l.TxQueue,
				hostPort(l.LocalAddr, l.LocalPort), hostPort(l.RemAddr, l.RemPort), pid)
		}
	}
	return b.String(), nil
}

func socketInodes(targets []string) map[uint64]struct{} {
	set := make(map[uint64]struct{})
	for _, t := range targets {
		s, ok := strings.CutPrefix(t, "socket:[")
		if !ok {
			continue
		}
		if ino, err := strconv.ParseUint(strings.TrimSuffix(s, "]"), 10, 64); err == nil {
			set[ino] = struct{}{}
		}
	}
	return set
}

func stateName(st uint64) string {
	if s, ok := tcpStates[st]; ok {
		return s
	}
	return "UNKNOWN"
}

func hostPort(ip net.IP, port uint64) string {
	return net.JoinHostPort(ip.String(), strconv.FormatUint(port, 10))
}
