//go:build linux

package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ja7ad/loadprof/pkg/sampler"
	"github.com/ja7ad/loadprof/pkg/system/util"
)

// Header is the fixed CSV schema consumed by the plotting tools.
var Header = []string{
	"timestamp", "cpu_user", "cpu_system", "threads", "ctx_switches",
	"rss_mb", "vms_mb", "pfaults_minor", "pfaults_major",
	"io_read_kb", "io_write_kb", "tcp_recv_q", "tcp_send_q",
}

// ErrHeader indicates a CSV file whose header is not Header.
var ErrHeader = errors.New("report: unexpected csv header")

// CSV appends records to a file. Every Write is flushed, so a run that
// stops early still leaves every accepted record on disk.
type CSV struct {
	f *os.File
	w *csv.Writer
}

// Open creates (or truncates) path, creating parent directories, and writes
// the header row. The caller must Close it on every exit path.
func Open(path string) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	c := &CSV{f: f, w: csv.NewWriter(f)}
	if err := c.writeRow(Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func (c *CSV) Write(r sampler.Record) error {
	return c.writeRow(FormatRecord(r))
}

func (c *CSV) writeRow(row []string) error {
	if c.f == nil {
		return fmt.Errorf("report: write on closed csv")
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Close flushes and closes the file. It is safe to call more than once.
func (c *CSV) Close() error {
	if c.f == nil {
		return nil
	}
	c.w.Flush()
	werr := c.w.Error()
	cerr := c.f.Close()
	c.f = nil
	return errors.Join(werr, cerr)
}

// FormatRecord renders r in Header order. Times, sizes and KB amounts carry
// two decimals; counts are integers.
func FormatRecord(r sampler.Record) []string {
	return []string{
		util.FmtFloat(r.Timestamp),
		util.FmtFloat(r.CPUUser),
		util.FmtFloat(r.CPUSystem),
		strconv.FormatInt(int64(r.Threads), 10),
		strconv.FormatInt(r.CtxSwitches, 10),
		util.FmtFloat(r.RSSMB),
		util.FmtFloat(r.VMSMB),
		strconv.FormatUint(r.FaultsMinor, 10),
		strconv.FormatUint(r.FaultsMajor, 10),
		util.FmtFloat(r.IOReadKB),
		util.FmtFloat(r.IOWriteKB),
		strconv.FormatUint(r.TCPRecvQueue, 10),
		strconv.FormatUint(r.TCPSendQueue, 10),
	}
}

// ReadCSV reads a file written by CSV back into records.
func ReadCSV(path string) ([]sampler.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("%w: %v", ErrHeader, head)
	}

	var out []sampler.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("report: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

func parseRecord(row []string) (sampler.Record, error) {
	p := fieldParser{row: row}
	rec := sampler.Record{
		Timestamp:    p.f64(0),
		CPUUser:      p.f64(1),
		CPUSystem:    p.f64(2),
		Threads:      int32(p.i64(3, 32)),
		CtxSwitches:  p.i64(4, 64),
		RSSMB:        p.f64(5),
		VMSMB:        p.f64(6),
		FaultsMinor:  p.u64(7),
		FaultsMajor:  p.u64(8),
		IOReadKB:     p.f64(9),
		IOWriteKB:    p.f64(10),
		TCPRecvQueue: p.u64(11),
		TCPSendQueue: p.u64(12),
	}
	return rec, p.err
}

// fieldParser keeps the first parse error so a row parses in one expression.
type fieldParser struct {
	row []string
	err error
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", Header[i], err)
	}
}

func (p *fieldParser) f64(i int) float64 {
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) i64(i, bits int) int64 {
	v, err := strconv.ParseInt(p.row[i], 10, bits)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) u64(i int) uint64 {
	v, err := strconv.ParseUint(p.row[i], 10, 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}
