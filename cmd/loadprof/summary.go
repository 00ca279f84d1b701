//go:build linux

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ja7ad/loadprof/pkg/report"
	"github.com/ja7ad/loadprof/pkg/sampler"
	"github.com/ja7ad/loadprof/pkg/system/util"
	"github.com/ja7ad/loadprof/pkg/types"
)

func newSummaryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary <csv>...",
		Short: "Print the run summary of recorded CSV files",
		Long: `Reads CSV files written by loadprof and prints one summary per file,
e.g. to compare an idle run against a loaded one:

  loadprof summary metrics_idle.csv metrics_load.csv
  loadprof summary --json metrics_*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]summaryDoc, 0, len(args))
			for _, path := range args {
				recs, err := report.ReadCSV(path)
				if err != nil {
					return err
				}
				st := sampler.Summarize(recs)
				if !asJSON {
					printSummary(cmd.OutOrStdout(), path, st)
					continue
				}
				docs = append(docs, newSummaryDoc(path, st))
			}
			if !asJSON {
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array instead of text")
	return cmd
}

type summaryDoc struct {
	File         string  `json:"file"`
	Samples      int     `json:"samples"`
	ElapsedSec   float64 `json:"elapsed_sec"`
	CPUSeconds   float64 `json:"cpu_seconds"`
	CPUShare     float64 `json:"cpu_share"`
	PeakRSSMB    float64 `json:"peak_rss_mb"`
	PeakThreads  int32   `json:"peak_threads"`
	FaultsMinor  uint64  `json:"pfaults_minor"`
	FaultsMajor  uint64  `json:"pfaults_major"`
	IOReadKB     float64 `json:"io_read_kb"`
	IOWriteKB    float64 `json:"io_write_kb"`
	MaxRecvQueue uint64  `json:"max_tcp_recv_q"`
	MaxSendQueue uint64  `json:"max_tcp_send_q"`
}

func newSummaryDoc(file string, st sampler.Stats) summaryDoc {
	return summaryDoc{
		File:         file,
		Samples:      st.Records,
		ElapsedSec:   util.Round2(st.Elapsed.Seconds()),
		CPUSeconds:   util.Round2(st.CPUSeconds()),
		CPUShare:     util.Round2(st.CPUShare()),
		PeakRSSMB:    util.Round2(st.PeakRSSMB),
		PeakThreads:  st.PeakThreads,
		FaultsMinor:  st.FaultsMinor,
		FaultsMajor:  st.FaultsMajor,
		IOReadKB:     util.Round2(st.IOReadKB),
		IOWriteKB:    util.Round2(st.IOWriteKB),
		MaxRecvQueue: st.MaxRecvQueue,
		MaxSendQueue: st.MaxSendQueue,
	}
}

func printSummary(w io.Writer, name string, st sampler.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %d samples over %s\n", name, st.Records, st.Elapsed.Round(10*time.Millisecond))
	fmt.Fprintf(w, "- cpu time:     %.2f s (%.1f%% of one core)\n", st.CPUSeconds(), st.CPUShare()*100)
	fmt.Fprintf(w, "- peak rss:     %.2f MB\n", st.PeakRSSMB)
	fmt.Fprintf(w, "- peak threads: %d\n", st.PeakThreads)
	fmt.Fprintf(w, "- page faults:  %d minor, %d major\n", st.FaultsMinor, st.FaultsMajor)
	fmt.Fprintf(w, "- disk io:      %s read, %s written\n", kbToBytes(st.IOReadKB).Humanized(), kbToBytes(st.IOWriteKB).Humanized())
	fmt.Fprintf(w, "- max queues:   recv %d, send %d\n", st.MaxRecvQueue, st.MaxSendQueue)
	fmt.Fprintln(w)
}

func kbToBytes(kb float64) types.Bytes {
	if kb <= 0 {
		return 0
	}
	return types.ToBytes(uint64(kb * 1024))
}
