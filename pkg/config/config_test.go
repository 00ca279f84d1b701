package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, time.Second, c.Interval.Std())
	assert.Equal(t, 300*time.Second, c.Duration.Std())
	assert.Equal(t, QueueSourceSS, c.QueueSource)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1s":    time.Second,
		"500ms": 500 * time.Millisecond,
		"2":     2 * time.Second,
		"0.5":   500 * time.Millisecond,
		" 6000": 6000 * time.Second,
		"1m30s": 90 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "soon", "NaN", "+Inf"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadprof.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
interval: 500ms
duration: 6000
output: out/metrics_idle.csv
queue_source: procfs
pretty: false
`), 0o644))

	c, err := Load(path, Default())
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, 500*time.Millisecond, c.Interval.Std())
	assert.Equal(t, 6000*time.Second, c.Duration.Std())
	assert.Equal(t, "out/metrics_idle.csv", c.Output)
	assert.Equal(t, QueueSourceProcfs, c.QueueSource)
	assert.False(t, c.Pretty)
	assert.Equal(t, "info", c.LogLevel, "unset keys keep the base value")
	require.NoError(t, c.Validate())
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadprof.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9090
interval = "500ms"
duration = 6000
queue_source = "procfs"
`), 0o644))

	c, err := Load(path, Default())
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, 500*time.Millisecond, c.Interval.Std())
	assert.Equal(t, 6000*time.Second, c.Duration.Std())
	assert.Equal(t, QueueSourceProcfs, c.QueueSource)
	assert.Equal(t, "metrics.csv", c.Output)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("prot = 9090\n"), 0o644))
	_, err = Load(unknown, Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prot")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"), Default())
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("prot: 9090\n"), 0o644))
	_, err = Load(unknown, Default())
	require.Error(t, err)

	badDur := filepath.Join(dir, "dur.yaml")
	require.NoError(t, os.WriteFile(badDur, []byte("interval: soon\n"), 0o644))
	_, err = Load(badDur, Default())
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	c, err := Load(empty, Default())
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(envMap(map[string]string{
		"LOADPROF_PORT":         "3000",
		"LOADPROF_INTERVAL":     "2",
		"LOADPROF_DURATION":     "10m",
		"LOADPROF_OUTPUT":       "load.csv",
		"LOADPROF_QUEUE_SOURCE": "procfs",
		"LOADPROF_LOG_LEVEL":    "debug",
		"LOADPROF_WAIT":         "",
		"PORT":                  "1",
	}))
	require.NoError(t, err)
	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, 2*time.Second, c.Interval.Std())
	assert.Equal(t, 10*time.Minute, c.Duration.Std())
	assert.Equal(t, "load.csv", c.Output)
	assert.Equal(t, QueueSourceProcfs, c.QueueSource)
	assert.Zero(t, c.Wait.Std())

	lvl, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestApplyEnv_Invalid(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(envMap(map[string]string{
		"LOADPROF_PORT":     "http",
		"LOADPROF_DURATION": "forever",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "LOADPROF_PORT")
	assert.Contains(t, err.Error(), "LOADPROF_DURATION")
}

func TestValidate(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.Port = 70000 },
		func(c *Config) { c.Interval = 0 },
		func(c *Config) { c.Interval = Duration(time.Millisecond) },
		func(c *Config) { c.Duration = 0 },
		func(c *Config) { c.Wait = Duration(-time.Second) },
		func(c *Config) { c.Output = " " },
		func(c *Config) { c.QueueSource = "netstat" },
		func(c *Config) { c.LogLevel = "loud" },
	}
	for i, m := range mutate {
		c := Default()
		m(&c)
		err := c.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, ErrInvalid), "case %d", i)
	}
}

func TestDuration_FlagValue(t *testing.T) {
	var d Duration
	require.NoError(t, d.Set("250ms"))
	assert.Equal(t, "250ms", d.String())
	assert.Equal(t, "duration", d.Type())
	assert.Error(t, d.Set("x"))
}
