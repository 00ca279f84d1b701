//go:build linux

package proc

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/shirou/gopsutil/process"

	"github.com/ja7ad/loadprof/pkg/types"
)

// Counters is a point-in-time read of one process's accounting.
// Fault and I/O fields are cumulative; FaultsOK and IOOK report whether they
// were read this time.
type Counters struct {
	CPUUser     float64 // seconds
	CPUSystem   float64 // seconds
	Threads     int32
	CtxSwitches int64 // voluntary + involuntary
	RSS         types.Bytes
	VMS         types.Bytes

	Faults   Faults
	FaultsOK bool

	ReadBytes  types.Bytes
	WriteBytes types.Bytes
	IOOK       bool
}

// Reader reads Counters for a pid. High-level accounting comes from gopsutil,
// fault counters from the kernel stat record under Root.
type Reader struct {
	Root string
}

func NewReader() *Reader { return &Reader{Root: DefaultRoot} }

// Read returns ErrUnavailable when the process is gone or a zombie, or when
// its CPU, memory, thread or context-switch accounting cannot be read. Fault
// and I/O read failures only clear FaultsOK / IOOK.
func (r *Reader) Read(pid int) (Counters, error) {
	root := r.Root
	if root == "" {
		root = DefaultRoot
	}
	if !Exists(root, pid) {
		return Counters{}, fmt.Errorf("%w: pid %d exited", ErrUnavailable, pid)
	}
	// an unreaped zombie keeps its /proc entry and answers every query
	fields, statErr := readStatFields(filepath.Join(root, strconv.Itoa(pid), "stat"))
	if statErr == nil && Exited(fields) {
		return Counters{}, fmt.Errorf("%w: pid %d exited (state %s)", ErrUnavailable, pid, fields[statIndex(statFieldState)])
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Counters{}, fmt.Errorf("%w: pid %d: %v", ErrUnavailable, pid, err)
	}

	times, err := p.Times()
	if err != nil {
		return Counters{}, unavailable(pid, "cpu times", err)
	}
	threads, err := p.NumThreads()
	if err != nil {
		return Counters{}, unavailable(pid, "threads", err)
	}
	ctx, err := p.NumCtxSwitches()
	if err != nil {
		return Counters{}, unavailable(pid, "ctx switches", err)
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return Counters{}, unavailable(pid, "memory", err)
	}

	c := Counters{
		CPUUser:     times.User,
		CPUSystem:   times.System,
		Threads:     threads,
		CtxSwitches: ctx.Voluntary + ctx.Involuntary,
		RSS:         types.ToBytes(mem.RSS),
		VMS:         types.ToBytes(mem.VMS),
	}

	// /proc/<pid>/io needs ptrace access; a non-root operator watching
	// another user's service gets EACCES here while everything else works.
	if io, err := p.IOCounters(); err == nil {
		c.ReadBytes = types.ToBytes(io.ReadBytes)
		c.WriteBytes = types.ToBytes(io.WriteBytes)
		c.IOOK = true
	}

	if statErr == nil {
		if f, err := faultsFromFields(fields); err == nil {
			c.Faults = f
			c.FaultsOK = true
		}
	}
	return c, nil
}

func unavailable(pid int, what string, err error) error {
	return fmt.Errorf("%w: pid %d: %s: %v", ErrUnavailable, pid, what, err)
}
