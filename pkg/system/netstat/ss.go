package netstat

import (
	"fmt"
	"os/exec"
)

// SS queries the socket table with the iproute2 `ss` tool.
type SS struct {
	Bin string
}

func NewSS() *SS { return &SS{Bin: "ss"} }

// Query runs `ss -nltp` or `ss -ntp`. The child is awaited, never killed:
// a hung ss delays one tick rather than leaving a half-read table.
func (s *SS) Query(pid int, listeningOnly bool) (string, error) {
	flags := "-ntp"
	if listeningOnly {
		flags = "-nltp"
	}
	out, err := exec.Command(s.Bin, flags).Output()
	if err != nil {
		return "", fmt.Errorf("netstat: %s %s: %w", s.Bin, flags, err)
	}
	return FilterPID(string(out), pid), nil
}
