//go:build linux

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shirou/gopsutil/net"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/loadprof/pkg/config"
	"github.com/ja7ad/loadprof/pkg/sampler"
	"github.com/ja7ad/loadprof/pkg/system/netstat"
)

func newFlags(fl *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("loadprof", pflag.ContinueOnError)
	f.IntVarP(&fl.Port, "port", "p", fl.Port, "")
	f.VarP(&fl.Interval, "interval", "i", "")
	f.VarP(&fl.Duration, "duration", "d", "")
	f.StringVarP(&fl.Output, "output", "o", fl.Output, "")
	f.StringVar(&fl.QueueSource, "queue-source", fl.QueueSource, "")
	f.BoolVar(&fl.Pretty, "pretty", fl.Pretty, "")
	return f
}

func noEnv(string) (string, bool) { return "", false }

func TestResolveConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadprof.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\ninterval: 2s\noutput: file.csv\n"), 0o644))

	env := func(k string) (string, bool) {
		if k == "LOADPROF_PORT" {
			return "9100", true
		}
		return "", false
	}

	fl := config.Default()
	fs := newFlags(&fl)
	require.NoError(t, fs.Parse([]string{"-d", "60", "--pretty=false"}))

	cfg, err := resolveConfig(fs, fl, path, env)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port, "env beats file")
	assert.Equal(t, 2*time.Second, cfg.Interval.Std(), "file beats default")
	assert.Equal(t, "file.csv", cfg.Output)
	assert.Equal(t, time.Minute, cfg.Duration.Std(), "flag beats default")
	assert.False(t, cfg.Pretty)

	fl = config.Default()
	fs = newFlags(&fl)
	require.NoError(t, fs.Parse([]string{"--port", "9200"}))
	cfg, err = resolveConfig(fs, fl, path, env)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Port, "flag beats env")
}

func TestResolveConfig_UnsetFlagsKeepLowerLayers(t *testing.T) {
	fl := config.Default()
	fl.Port = 1 // not marked as changed
	fs := newFlags(&fl)
	require.NoError(t, fs.Parse(nil))

	cfg, err := resolveConfig(fs, fl, "", noEnv)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolveConfig_Invalid(t *testing.T) {
	fl := config.Default()
	fs := newFlags(&fl)
	require.NoError(t, fs.Parse([]string{"--queue-source", "netstat"}))

	_, err := resolveConfig(fs, fl, "", noEnv)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func listener(port uint32, pid int32) net.ConnectionStat {
	return net.ConnectionStat{Status: "LISTEN", Laddr: net.Addr{IP: "0.0.0.0", Port: port}, Pid: pid}
}

func TestLocate_WaitsForListener(t *testing.T) {
	calls := 0
	loc := netstat.NewLocatorWith(func() ([]net.ConnectionStat, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		return []net.ConnectionStat{listener(8080, 4242)}, nil
	})

	pid, err := locate(context.Background(), loc, 8080, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
	assert.Equal(t, 3, calls)
}

func TestLocate_NoWait(t *testing.T) {
	calls := 0
	loc := netstat.NewLocatorWith(func() ([]net.ConnectionStat, error) {
		calls++
		return nil, nil
	})

	_, err := locate(context.Background(), loc, 8080, 0, time.Millisecond)
	assert.True(t, errors.Is(err, netstat.ErrNotFound))
	assert.Equal(t, 1, calls)
}

func TestLocate_Canceled(t *testing.T) {
	loc := netstat.NewLocatorWith(func() ([]net.ConnectionStat, error) { return nil, nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locate(ctx, loc, 8080, time.Hour, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPrintSummary(t *testing.T) {
	st := sampler.Stats{
		Records:      3,
		Elapsed:      3 * time.Second,
		CPUStart:     1,
		CPUEnd:       2.5,
		PeakRSSMB:    46,
		PeakThreads:  9,
		FaultsMinor:  17,
		IOWriteKB:    4,
		MaxRecvQueue: 5,
	}
	var buf bytes.Buffer
	printSummary(&buf, "metrics.csv", st)

	out := buf.String()
	assert.Contains(t, out, "metrics.csv: 3 samples over 3s")
	assert.Contains(t, out, "cpu time:     1.50 s")
	assert.Contains(t, out, "peak rss:     46.00 MB")
	assert.Contains(t, out, "17 minor, 0 major")
	assert.Contains(t, out, "recv 5, send 0")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("locate: %w", context.Canceled)))
	assert.Equal(t, exitNotFound, exitCode(fmt.Errorf("%w 8080", netstat.ErrNotFound)))
	assert.Equal(t, 1, exitCode(config.ErrInvalid))
}

func TestLocate_InterruptedWhileWaitingExitsClean(t *testing.T) {
	loc := netstat.NewLocatorWith(func() ([]net.ConnectionStat, error) { return nil, nil })
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(5*time.Millisecond, cancel)

	_, err := locate(ctx, loc, 8080, time.Hour, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 0, exitCode(err))
}
