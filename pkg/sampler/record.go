//go:build linux

package sampler

import (
	"time"

	"github.com/ja7ad/loadprof/pkg/system/netstat"
	"github.com/ja7ad/loadprof/pkg/system/proc"
)

// Record is one emitted sample. Field order matches the CSV header.
type Record struct {
	Timestamp    float64 // seconds since the loop started
	CPUUser      float64 // cumulative seconds
	CPUSystem    float64 // cumulative seconds
	Threads      int32
	CtxSwitches  int64 // cumulative, voluntary + involuntary
	RSSMB        float64
	VMSMB        float64
	FaultsMinor  uint64 // per interval
	FaultsMajor  uint64 // per interval
	IOReadKB     float64
	IOWriteKB    float64
	TCPRecvQueue uint64
	TCPSendQueue uint64
}

func newRecord(elapsed time.Duration, c proc.Counters, d Deltas, q netstat.QueueDepths) Record {
	return Record{
		Timestamp:    elapsed.Seconds(),
		CPUUser:      c.CPUUser,
		CPUSystem:    c.CPUSystem,
		Threads:      c.Threads,
		CtxSwitches:  c.CtxSwitches,
		RSSMB:        c.RSS.MB(),
		VMSMB:        c.VMS.MB(),
		FaultsMinor:  d.MinorFaults,
		FaultsMajor:  d.MajorFaults,
		IOReadKB:     d.ReadKB,
		IOWriteKB:    d.WriteKB,
		TCPRecvQueue: q.Recv,
		TCPSendQueue: q.Send,
	}
}
