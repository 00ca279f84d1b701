//go:build linux

package util

import (
	"bufio"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ja7ad/loadprof/pkg/types"
)

// DeltaU64 returns the growth of a cumulative counter between two reads.
// A counter that went backwards belongs to a new process instance (restart
// or PID reuse), so the whole current value is the growth since the reset.
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return now
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Round(x*100) / 100
}

// FmtFloat renders x with exactly two decimals.
func FmtFloat(x float64) string {
	return strconv.FormatFloat(Round2(x), 'f', 2, 64)
}

// SystemSummary returns host name, kernel release, CPU count and total memory
// for the console banner. Missing values are reported as "unknown".
func SystemSummary() (host, kernel, cpus, mem string) {
	host, _ = os.Hostname()
	if host == "" {
		host = "unknown"
	}

	kernel = "unknown"
	if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		kernel = strings.TrimSpace(string(b))
	}

	cpus = strconv.Itoa(runtime.NumCPU())

	mem = "unknown"
	if f, err := os.Open("/proc/meminfo"); err == nil {
		defer f.Close()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			fs := strings.Fields(sc.Text())
			if len(fs) >= 2 && fs[0] == "MemTotal:" {
				if kb, err := strconv.ParseUint(fs[1], 10, 64); err == nil {
					mem = types.ToBytes(kb * 1024).Humanized()
				}
				break
			}
		}
	}
	return host, kernel, cpus, mem
}
