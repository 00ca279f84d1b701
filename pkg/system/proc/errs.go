package proc

import "errors"

var (
	// ErrUnavailable indicates that the process accounting could not be read,
	// normally because the process has exited. Callers treat it as terminal.
	ErrUnavailable = errors.New("proc: process unavailable")

	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrStatLayout indicates that the running kernel's stat record does not
	// match the field schema this package reads by position.
	ErrStatLayout = errors.New("proc: unexpected stat layout")
)
