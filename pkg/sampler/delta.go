//go:build linux

package sampler

import (
	"github.com/ja7ad/loadprof/pkg/system/proc"
	"github.com/ja7ad/loadprof/pkg/system/util"
)

// Baseline holds the last-seen cumulative counters of the monitored process.
type Baseline struct {
	MinorFaults uint64
	MajorFaults uint64
	ReadBytes   uint64
	WriteBytes  uint64
}

// Deltas is the per-interval growth of the Baseline counters.
type Deltas struct {
	MinorFaults uint64
	MajorFaults uint64
	ReadKB      float64
	WriteKB     float64
}

// Delta differences two baselines field by field. A field that went
// backwards was reset (restart or pid reuse) and reports its current value.
func Delta(prev, cur Baseline) Deltas {
	return Deltas{
		MinorFaults: util.DeltaU64(cur.MinorFaults, prev.MinorFaults),
		MajorFaults: util.DeltaU64(cur.MajorFaults, prev.MajorFaults),
		ReadKB:      float64(util.DeltaU64(cur.ReadBytes, prev.ReadBytes)) / 1024,
		WriteKB:     float64(util.DeltaU64(cur.WriteBytes, prev.WriteBytes)) / 1024,
	}
}

// Tracker owns the baseline of one process and turns successive Counters
// into Deltas. Fault and I/O groups are tracked separately: a group that was
// not read this tick reports zero and keeps its baseline, and a group's first
// successful read only seeds it.
type Tracker struct {
	prev     Baseline
	faultsOK bool
	ioOK     bool
}

// NewTracker seeds the baseline from the initial snapshot.
func NewTracker(seed proc.Counters) *Tracker {
	t := &Tracker{}
	t.Observe(seed)
	return t
}

// Observe returns the deltas of c against the baseline and moves the
// baseline to c.
func (t *Tracker) Observe(c proc.Counters) Deltas {
	cur := t.prev
	if c.FaultsOK {
		cur.MinorFaults, cur.MajorFaults = c.Faults.Minor, c.Faults.Major
	}
	if c.IOOK {
		cur.ReadBytes, cur.WriteBytes = c.ReadBytes.Uint64(), c.WriteBytes.Uint64()
	}

	d := Delta(t.prev, cur)
	if !c.FaultsOK || !t.faultsOK {
		d.MinorFaults, d.MajorFaults = 0, 0
	}
	if !c.IOOK || !t.ioOK {
		d.ReadKB, d.WriteKB = 0, 0
	}

	t.prev = cur
	t.faultsOK = t.faultsOK || c.FaultsOK
	t.ioOK = t.ioOK || c.IOOK
	return d
}

// Baseline returns the current baseline.
func (t *Tracker) Baseline() Baseline { return t.prev }
