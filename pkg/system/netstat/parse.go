package netstat

import (
	"fmt"
	"strconv"
	"strings"
)

// QueueDepths is the receive and send queue length of one socket.
// Zero means empty or not measurable; the two are not distinguished.
type QueueDepths struct {
	Recv uint64
	Send uint64
}

// ParseQueues reads Recv-Q and Send-Q from the first non-empty line of a
// socket table in ss column order: State Recv-Q Send-Q Local Peer [Process].
func ParseQueues(raw string) (QueueDepths, error) {
	for _, line := range strings.Split(raw, "\n") {
		fs := strings.Fields(line)
		if len(fs) == 0 {
			continue
		}
		if len(fs) < 3 {
			return QueueDepths{}, fmt.Errorf("%w: %q", ErrParse, line)
		}
		recv, err := strconv.ParseUint(fs[1], 10, 64)
		if err != nil {
			return QueueDepths{}, fmt.Errorf("%w: recv-q %q", ErrParse, fs[1])
		}
		send, err := strconv.ParseUint(fs[2], 10, 64)
		if err != nil {
			return QueueDepths{}, fmt.Errorf("%w: send-q %q", ErrParse, fs[2])
		}
		return QueueDepths{Recv: recv, Send: send}, nil
	}
	return QueueDepths{}, ErrNoMatch
}

// FilterPID keeps the lines of an `ss -p` table that belong to pid.
func FilterPID(table string, pid int) string {
	needle := "pid=" + strconv.Itoa(pid) + ","
	var b strings.Builder
	for _, line := range strings.Split(table, "\n") {
		if strings.Contains(line, needle) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
