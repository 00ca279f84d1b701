package netstat

import (
	"errors"
	"io"
	"log/slog"
)

// Querier returns the socket-table lines owned by pid, either only its
// listening sockets or all of them. An empty result with a nil error means
// nothing matched.
type Querier interface {
	Query(pid int, listeningOnly bool) (string, error)
}

// Prober estimates the queue depth of a process's sockets. It tries the
// listening sockets first and falls back to all sockets, so the depth is
// captured whether the service is accepting or already serving.
type Prober struct {
	q   Querier
	log *slog.Logger
}

func NewProber(q Querier, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Prober{q: q, log: log}
}

// Probe never fails. A query failure in any tier, or no tier yielding a
// parsable line, degrades to zero depths.
func (p *Prober) Probe(pid int) QueueDepths {
	for _, listeningOnly := range []bool{true, false} {
		raw, err := p.q.Query(pid, listeningOnly)
		if err != nil {
			p.log.Debug("queue probe failed", "pid", pid, "listening", listeningOnly, "err", err)
			return QueueDepths{}
		}
		qd, err := ParseQueues(raw)
		if err == nil {
			return qd
		}
		if !errors.Is(err, ErrNoMatch) {
			p.log.Debug("queue probe unparsable", "pid", pid, "listening", listeningOnly, "err", err)
		}
	}
	return QueueDepths{}
}
