//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/loadprof/pkg/config"
	"github.com/ja7ad/loadprof/pkg/report"
	"github.com/ja7ad/loadprof/pkg/sampler"
	"github.com/ja7ad/loadprof/pkg/system/netstat"
	"github.com/ja7ad/loadprof/pkg/system/proc"
	"github.com/ja7ad/loadprof/pkg/system/util"
	"github.com/ja7ad/loadprof/pkg/types"
)

const exitNotFound = 2

func main() {
	var (
		fl         = config.Default()
		configPath string
	)

	root := &cobra.Command{
		Use:   "loadprof",
		Short: "Per-process resource profiler for idle vs. loaded comparisons",
		Long: `The loadprof tool finds the process listening on a TCP port and samples
its CPU time, threads, context switches, memory, page faults, disk I/O and
socket queue depth at a fixed cadence, writing one CSV row per tick.

Run it once with the service idle and once under load, then compare the two
CSV files.

Examples:
  loadprof -p 8080 -d 6000 -o metrics_load.csv
  loadprof --config loadprof.yaml --queue-source procfs
  LOADPROF_PORT=9090 loadprof --wait 30s`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), fl, configPath, os.LookupEnv)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newSummaryCmd())

	f := root.Flags()
	f.StringVar(&configPath, "config", "", "YAML or .toml config file (LOADPROF_* env and flags override it)")
	f.IntVarP(&fl.Port, "port", "p", fl.Port, "listening port of the process to profile")
	f.VarP(&fl.Interval, "interval", "i", "sampling interval (e.g. 1s, 500ms, or seconds)")
	f.VarP(&fl.Duration, "duration", "d", "total run duration (e.g. 5m, or seconds)")
	f.StringVarP(&fl.Output, "output", "o", fl.Output, "CSV output path")
	f.Var(&fl.Wait, "wait", "keep looking for the listener this long before giving up")
	f.StringVar(&fl.QueueSource, "queue-source", fl.QueueSource, "socket queue source: ss or procfs")
	f.BoolVar(&fl.Pretty, "pretty", fl.Pretty, "echo every sample as a table row on stdout")
	f.StringVar(&fl.LogLevel, "log-level", fl.LogLevel, "log level: debug, info, warn, error")

	if code := exitCode(root.Execute()); code != 0 {
		os.Exit(code)
	}
}

// exitCode logs err and maps it to the process exit status. Interrupts,
// including one during --wait, exit 0.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted")
		return 0
	case errors.Is(err, netstat.ErrNotFound):
		slog.Error(err.Error())
		return exitNotFound
	default:
		slog.Error(err.Error())
		return 1
	}
}

// resolveConfig layers defaults, the YAML file, the environment and the
// flags the user actually set.
func resolveConfig(fs *pflag.FlagSet, fl config.Config, path string, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path, cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	overrides := map[string]func(){
		"port":         func() { cfg.Port = fl.Port },
		"interval":     func() { cfg.Interval = fl.Interval },
		"duration":     func() { cfg.Duration = fl.Duration },
		"output":       func() { cfg.Output = fl.Output },
		"wait":         func() { cfg.Wait = fl.Wait },
		"queue-source": func() { cfg.QueueSource = fl.QueueSource },
		"pretty":       func() { cfg.Pretty = fl.Pretty },
		"log-level":    func() { cfg.LogLevel = fl.LogLevel },
	}
	fs.Visit(func(f *pflag.Flag) {
		if set, ok := overrides[f.Name]; ok {
			set()
		}
	})
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	lvl, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)

	if err := proc.ValidateStatLayout(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pid, err := locate(ctx, netstat.NewLocator(), cfg.Port, cfg.Wait.Std(), cfg.Interval.Std())
	if err != nil {
		return err
	}

	querier, err := newQuerier(cfg.QueueSource)
	if err != nil {
		return err
	}

	host, kernel, cpus, mem := util.SystemSummary()
	fmt.Printf(_console, host, kernel, cpus, mem, proc.ClockTicks(), types.ToBytes(uint64(proc.PageSize())).Humanized(),
		pid, cfg.Port, cfg.Output,
		cfg.Interval, cfg.Duration, time.Now().Format("2006-01-02 15:04:05"))

	sink, err := report.Open(cfg.Output)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Error("close csv", "path", cfg.Output, "err", err)
		}
	}()

	opts := []sampler.Option{
		sampler.WithLogger(log),
		sampler.WithProgress(func(elapsed time.Duration) {
			slog.Info(fmt.Sprintf("elapsed %d minutes", int(elapsed/time.Minute)), "pid", pid)
		}),
	}
	if cfg.Pretty {
		tbl := report.NewTable(os.Stdout)
		tbl.Header()
		opts = append(opts, sampler.WithObserver(tbl.Row))
	}

	s, err := sampler.New(
		sampler.Config{Interval: cfg.Interval.Std(), Duration: cfg.Duration.Std()},
		proc.NewReader(),
		netstat.NewProber(querier, log),
		sink,
		opts...,
	)
	if err != nil {
		return err
	}

	slog.Info("sampling started", "pid", pid, "port", cfg.Port, "output", cfg.Output)
	stats, err := s.Run(ctx, pid)
	switch {
	case err == nil:
	case errors.Is(err, sampler.ErrProcessEnded):
		fmt.Println("# process ended")
		slog.Debug("process ended", "err", err)
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted")
	default:
		return err
	}

	printSummary(os.Stdout, cfg.Output, stats)
	return nil
}

// locate re-invokes the locator every interval until the port is bound or
// wait has passed.
func locate(ctx context.Context, loc *netstat.Locator, port int, wait, every time.Duration) (int, error) {
	deadline := time.Now().Add(wait)
	for {
		pid, err := loc.Locate(port)
		if err == nil || !errors.Is(err, netstat.ErrNotFound) || !time.Now().Before(deadline) {
			return pid, err
		}
		slog.Info("waiting for listener", "port", port)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(every):
		}
	}
}

func newQuerier(source string) (netstat.Querier, error) {
	if source == config.QueueSourceProcfs {
		return netstat.NewProcfs(proc.DefaultRoot)
	}
	return netstat.NewSS(), nil
}

const _console = `loadprof - Per-Process Resource Profiler

       Host: %s
       Kernel: %s
       CPUs: %s
       Mem: %s
       Clock: %d Hz, page %s

       PID: %d (port %d)
       Output: %s
       Interval: %s, duration: %s

Sampling as of %s:

`
