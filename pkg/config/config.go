package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("config: invalid")

// Queue depth sources.
const (
	QueueSourceSS     = "ss"
	QueueSourceProcfs = "procfs"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOADPROF_"

// Config holds the run parameters. Precedence, lowest first: Default,
// YAML file, environment, command-line flags.
type Config struct {
	Port        int      `yaml:"port" toml:"port"`
	Interval    Duration `yaml:"interval" toml:"interval"`
	Duration    Duration `yaml:"duration" toml:"duration"`
	Output      string   `yaml:"output" toml:"output"`
	Wait        Duration `yaml:"wait" toml:"wait"`
	QueueSource string   `yaml:"queue_source" toml:"queue_source"`
	Pretty      bool     `yaml:"pretty" toml:"pretty"`
	LogLevel    string   `yaml:"log_level" toml:"log_level"`
}

func Default() Config {
	return Config{
		Port:        8080,
		Interval:    Duration(time.Second),
		Duration:    Duration(300 * time.Second),
		Output:      "metrics.csv",
		QueueSource: QueueSourceSS,
		Pretty:      true,
		LogLevel:    "info",
	}
}

// Load overlays the file at path onto base. Files ending in .toml are read
// as TOML, anything else as YAML. Unknown keys are rejected.
func Load(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: %w", err)
	}

	cfg := base
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(b), &cfg)
		if err != nil {
			return base, fmt.Errorf("config: %s: %w", path, err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return base, fmt.Errorf("config: %s: unknown keys %v", path, keys)
		}
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays LOADPROF_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	env := func(key string, set func(string) error) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err))
		}
	}

	env("PORT", func(v string) (err error) {
		c.Port, err = strconv.Atoi(v)
		return err
	})
	env("INTERVAL", func(v string) error { return c.Interval.Set(v) })
	env("DURATION", func(v string) error { return c.Duration.Set(v) })
	env("WAIT", func(v string) error { return c.Wait.Set(v) })
	env("OUTPUT", func(v string) error { c.Output = v; return nil })
	env("QUEUE_SOURCE", func(v string) error { c.QueueSource = v; return nil })
	env("LOG_LEVEL", func(v string) error { c.LogLevel = v; return nil })
	env("PRETTY", func(v string) (err error) {
		c.Pretty, err = strconv.ParseBool(v)
		return err
	})
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d not in 1..65535", ErrInvalid, c.Port)
	case c.Interval.Std() < 10*time.Millisecond:
		return fmt.Errorf("%w: interval %s below 10ms", ErrInvalid, c.Interval)
	case c.Duration.Std() <= 0:
		return fmt.Errorf("%w: duration must be > 0", ErrInvalid)
	case c.Wait.Std() < 0:
		return fmt.Errorf("%w: wait must be >= 0", ErrInvalid)
	case strings.TrimSpace(c.Output) == "":
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	case c.QueueSource != QueueSourceSS && c.QueueSource != QueueSourceProcfs:
		return fmt.Errorf("%w: queue source %q, want %s or %s", ErrInvalid, c.QueueSource, QueueSourceSS, QueueSourceProcfs)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto slog.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// Duration is a time.Duration that also accepts bare seconds ("2", "0.5").
type Duration time.Duration

func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("bad duration %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Set and Type make Duration a pflag.Value.
func (d *Duration) Set(s string) error {
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) Type() string { return "duration" }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", n.Line)
	}
	if err := d.Set(n.Value); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}
