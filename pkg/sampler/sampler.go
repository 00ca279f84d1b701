//go:build linux

package sampler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ja7ad/loadprof/pkg/system/netstat"
	"github.com/ja7ad/loadprof/pkg/system/proc"
)

// CounterReader reads the accounting of a process. Any error is terminal.
type CounterReader interface {
	Read(pid int) (proc.Counters, error)
}

// QueueProber estimates socket queue depths. It never fails.
type QueueProber interface {
	Probe(pid int) netstat.QueueDepths
}

// Sink receives every finished record.
type Sink interface {
	Write(Record) error
}

type State int

const (
	Starting State = iota
	Sampling
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Sampling:
		return "sampling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config bounds a run. The loop ticks every Interval until Duration has
// elapsed since the first tick.
type Config struct {
	Interval time.Duration
	Duration time.Duration
}

// Sampler runs the sampling loop for one process. It is not safe for
// concurrent use; the baseline it keeps is owned by Run.
type Sampler struct {
	cfg      Config
	counters CounterReader
	queues   QueueProber
	sink     Sink

	log      *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	progress func(elapsed time.Duration)
	observer func(Record)

	state State
}

type Option func(*Sampler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.log = l }
}

// WithClock replaces the wall clock and the pacing sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Sampler) {
		s.now = now
		s.sleep = sleep
	}
}

// WithProgress is called roughly once per elapsed minute.
func WithProgress(fn func(elapsed time.Duration)) Option {
	return func(s *Sampler) { s.progress = fn }
}

// WithObserver is called with every record after the sink accepted it.
func WithObserver(fn func(Record)) Option {
	return func(s *Sampler) { s.observer = fn }
}

func New(cfg Config, counters CounterReader, queues QueueProber, sink Sink, opts ...Option) (*Sampler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampler: interval must be > 0, got %s", cfg.Interval)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("sampler: duration must be > 0, got %s", cfg.Duration)
	}
	s := &Sampler{
		cfg:      cfg,
		counters: counters,
		queues:   queues,
		sink:     sink,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		sleep:    sleepCtx,
		state:    Starting,
	}
	for _, o := range opts {
		o(s)
	}
	if s.progress == nil {
		s.progress = func(elapsed time.Duration) {
			s.log.Info("sampling", "elapsed_min", int(elapsed/time.Minute))
		}
	}
	return s, nil
}

// State reports where the loop is.
func (s *Sampler) State() State { return s.state }

// Run samples pid until the configured duration elapses (nil error), the
// process disappears (ErrProcessEnded), the sink fails, or ctx is done
// (ctx.Err()). Cancellation is observed between ticks only.
func (s *Sampler) Run(ctx context.Context, pid int) (stats Stats, err error) {
	defer func() { s.state = Stopped }()

	seed, err := s.counters.Read(pid)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrProcessEnded, err)
	}
	tracker := NewTracker(seed)
	stats = Stats{CPUStart: seed.CPUUser + seed.CPUSystem}

	s.state = Sampling
	start := s.now()
	defer func() { stats.Elapsed = s.now().Sub(start) }()
	var lastProgress time.Duration
	for {
		elapsed := s.now().Sub(start)
		if elapsed >= s.cfg.Duration {
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if elapsed-lastProgress >= time.Minute {
			s.progress(elapsed)
			lastProgress = elapsed
		}

		tickStart := s.now()
		rec, err := s.tick(pid, tracker, start)
		if err != nil {
			return stats, err
		}
		stats.add(rec)
		if s.observer != nil {
			s.observer(rec)
		}

		// no drift correction: a late tick is not made up later
		if wait := s.cfg.Interval - s.now().Sub(tickStart); wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return stats, err
			}
		}
	}
}

func (s *Sampler) tick(pid int, tracker *Tracker, start time.Time) (Record, error) {
	c, err := s.counters.Read(pid)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrProcessEnded, err)
	}
	if !c.FaultsOK || !c.IOOK {
		s.log.Debug("partial counter read", "pid", pid, "faults", c.FaultsOK, "io", c.IOOK)
	}

	q := s.queues.Probe(pid)
	d := tracker.Observe(c)
	rec := newRecord(s.now().Sub(start), c, d, q)
	if err := s.sink.Write(rec); err != nil {
		return Record{}, fmt.Errorf("sampler: write record: %w", err)
	}
	return rec, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
