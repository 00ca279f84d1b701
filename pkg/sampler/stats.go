//go:build linux

package sampler

import (
	"time"

	"github.com/ja7ad/loadprof/pkg/system/util"
)

// Stats summarizes a run.
type Stats struct {
	Records int
	Elapsed time.Duration // loop runtime

	CPUStart float64 // user+system seconds at the seed snapshot
	CPUEnd   float64 // user+system seconds at the last record

	PeakRSSMB   float64
	PeakThreads int32

	FaultsMinor uint64
	FaultsMajor uint64
	IOReadKB    float64
	IOWriteKB   float64

	MaxRecvQueue uint64
	MaxSendQueue uint64
}

func (s *Stats) add(r Record) {
	s.Records++
	s.CPUEnd = r.CPUUser + r.CPUSystem
	s.PeakRSSMB = max(s.PeakRSSMB, r.RSSMB)
	s.PeakThreads = max(s.PeakThreads, r.Threads)
	s.FaultsMinor += r.FaultsMinor
	s.FaultsMajor += r.FaultsMajor
	s.IOReadKB += r.IOReadKB
	s.IOWriteKB += r.IOWriteKB
	s.MaxRecvQueue = max(s.MaxRecvQueue, r.TCPRecvQueue)
	s.MaxSendQueue = max(s.MaxSendQueue, r.TCPSendQueue)
}

// CPUSeconds is the CPU time the process consumed while it was sampled.
func (s Stats) CPUSeconds() float64 {
	if s.Records == 0 || s.CPUEnd < s.CPUStart {
		return 0
	}
	return s.CPUEnd - s.CPUStart
}

// CPUShare is CPUSeconds over wall-clock time, 1.0 meaning one busy core.
func (s Stats) CPUShare() float64 {
	return util.SafeDiv(s.CPUSeconds(), s.Elapsed.Seconds())
}

// Summarize rebuilds Stats from recorded rows. The first row stands in for
// the seed snapshot, so CPU time is counted from it. Elapsed is estimated as
// the last timestamp plus the mean spacing between rows.
func Summarize(recs []Record) Stats {
	var st Stats
	if len(recs) == 0 {
		return st
	}
	st.CPUStart = recs[0].CPUUser + recs[0].CPUSystem
	for _, r := range recs {
		st.add(r)
	}

	// the loop ran about one interval past its last row
	first, last := recs[0].Timestamp, recs[len(recs)-1].Timestamp
	secs := last
	if n := len(recs); n > 1 {
		secs += (last - first) / float64(n-1)
	}
	st.Elapsed = time.Duration(secs * float64(time.Second))
	return st
}
