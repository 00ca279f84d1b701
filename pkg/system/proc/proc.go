//go:build linux

package proc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the procfs mount point.
const DefaultRoot = "/proc"

// Field positions of /proc/<pid>/stat, 1-based as numbered in proc(5).
const (
	statFieldPID        = 1
	statFieldState      = 3
	statFieldMinflt     = 10
	statFieldMajflt     = 12
	statFieldUtime      = 14
	statFieldStime      = 15
	statFieldNumThreads = 20
)

// statFirstAfterComm is the position of the first field following "comm)".
// Positions below are translated into indexes of the slice that starts there.
const statFirstAfterComm = statFieldState

func statIndex(field int) int { return field - statFirstAfterComm }

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE).
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// Exists reports whether pid currently has an entry under root.
func Exists(root string, pid int) bool {
	_, err := os.Stat(filepath.Join(root, strconv.Itoa(pid)))
	return err == nil
}

// Faults holds the cumulative page fault counters of a process.
type Faults struct {
	Minor uint64
	Major uint64
}

// ReadFaults reads the minor and major fault counters from <root>/<pid>/stat.
func ReadFaults(root string, pid int) (Faults, error) {
	fields, err := readStatFields(filepath.Join(root, strconv.Itoa(pid), "stat"))
	if err != nil {
		return Faults{}, err
	}
	return faultsFromFields(fields)
}

// Exited reports whether the stat fields describe a process that has
// exited but may not have been reaped yet (zombie or dead).
func Exited(fields []string) bool {
	idx := statIndex(statFieldState)
	if idx >= len(fields) {
		return false
	}
	switch fields[idx] {
	case "Z", "X", "x":
		return true
	}
	return false
}

func faultsFromFields(fields []string) (Faults, error) {
	mn, err := statUint(fields, statFieldMinflt)
	if err != nil {
		return Faults{}, err
	}
	mj, err := statUint(fields, statFieldMajflt)
	if err != nil {
		return Faults{}, err
	}
	return Faults{Minor: mn, Major: mj}, nil
}

// readStatFields returns the fields that follow "comm)" in a stat record.
// comm is in parens and may contain spaces, so everything up to the last
// ") " is skipped.
func readStatFields(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoStat
	}
	_, fields, err := splitStat(sc.Text())
	return fields, err
}

func splitStat(line string) (head string, fields []string, err error) {
	i := strings.LastIndex(line, ") ")
	if i < 0 {
		return "", nil, ErrNoStat
	}
	return line[:i+1], strings.Fields(line[i+2:]), nil
}

func statUint(fields []string, field int) (uint64, error) {
	idx := statIndex(field)
	if idx < 0 || idx >= len(fields) {
		return 0, ErrShortStat
	}
	v, err := strconv.ParseUint(fields[idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %d: %v", ErrNoStat, field, err)
	}
	return v, nil
}

// ValidateStatLayout checks, once, that the running kernel lays out
// /proc/<pid>/stat the way ReadFaults expects. It reads the calling
// process's own record.
func ValidateStatLayout() error {
	return validateStatLayout(DefaultRoot, os.Getpid())
}

func validateStatLayout(root string, pid int) error {
	b, err := os.ReadFile(filepath.Join(root, strconv.Itoa(pid), "stat"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStatLayout, err)
	}
	head, fields, err := splitStat(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStatLayout, err)
	}

	pidField, _, ok := strings.Cut(head, " (")
	if !ok || pidField != strconv.Itoa(pid) {
		return fmt.Errorf("%w: field %d is %q, want %d", ErrStatLayout, statFieldPID, pidField, pid)
	}
	if len(fields) < statIndex(statFieldNumThreads)+1 {
		return fmt.Errorf("%w: %d fields", ErrStatLayout, len(fields)+statFirstAfterComm-1)
	}
	if st := fields[statIndex(statFieldState)]; len(st) != 1 || !strings.Contains("RSDZTtWXxKPI", st) {
		return fmt.Errorf("%w: field %d is %q, want a state letter", ErrStatLayout, statFieldState, st)
	}
	for _, field := range []int{statFieldMinflt, statFieldMajflt, statFieldUtime, statFieldStime, statFieldNumThreads} {
		if _, err := statUint(fields, field); err != nil {
			return fmt.Errorf("%w: %v", ErrStatLayout, err)
		}
	}
	return nil
}
