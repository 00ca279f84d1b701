//go:build linux

package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ja7ad/loadprof/pkg/sampler"
)

// Table echoes records as aligned console rows.
type Table struct {
	tw *tabwriter.Writer
}

func NewTable(w io.Writer) *Table {
	return &Table{tw: tabwriter.NewWriter(w, 8, 0, 2, ' ', 0)}
}

func (t *Table) Header() {
	fmt.Fprintln(t.tw, "T(s)\tCPU usr\tCPU sys\tTHR\tCTX\tRSS(MB)\tVMS(MB)\tPF min\tPF maj\tRD(KB)\tWR(KB)\tRECV-Q\tSEND-Q")
	fmt.Fprintln(t.tw, "----\t-------\t-------\t---\t---\t-------\t-------\t------\t------\t------\t------\t------\t------")
	t.tw.Flush()
}

func (t *Table) Row(r sampler.Record) {
	fmt.Fprintf(t.tw, "%.2f\t%.2f\t%.2f\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t%.2f\t%.2f\t%d\t%d\n",
		r.Timestamp, r.CPUUser, r.CPUSystem, r.Threads, r.CtxSwitches,
		r.RSSMB, r.VMSMB, r.FaultsMinor, r.FaultsMajor,
		r.IOReadKB, r.IOWriteKB, r.TCPRecvQueue, r.TCPSendQueue,
	)
	t.tw.Flush()
}
