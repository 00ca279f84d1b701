// Package proc reads the resource accounting of a single Linux process.
//
// Reader.Read combines two sources that are read independently within one
// call and are therefore not perfectly time-aligned:
//
//   - High-level accounting via gopsutil: user/system CPU seconds, thread
//     count, voluntary + involuntary context switches, RSS and VMS, and the
//     cumulative read_bytes/write_bytes from /proc/<pid>/io.
//   - The kernel stat record /proc/<pid>/stat, from which the cumulative
//     minor and major fault counters are taken by fixed field position.
//
// # Stat record schema
//
// Positions are 1-based as numbered in proc(5). The comm field (2) is in
// parens and may contain spaces, so parsing starts after the last ") ".
//
//	 1  pid
//	 3  state       one of RSDZTtWXxKPI
//	10  minflt      minor faults, cumulative
//	12  majflt      major faults, cumulative
//	14  utime       user jiffies
//	15  stime       system jiffies
//	20  num_threads
//
// ValidateStatLayout checks this schema once against the caller's own record;
// ReadFaults does not re-validate on every call.
//
// # Errors
//
//	ErrUnavailable : the process is gone or its high-level accounting failed
//	ErrNoStat      : stat record empty, unterminated comm, or non-numeric field
//	ErrShortStat   : stat record shorter than the requested field
//	ErrStatLayout  : self-test found a layout this package cannot read
//
// A fault or I/O read failure is not an error: Read clears Counters.FaultsOK
// or Counters.IOOK and the caller reports zero deltas for that tick.
package proc
