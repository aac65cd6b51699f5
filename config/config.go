// Package config holds the settings of a joskern run. Defaults can be
// overridden by a .env file and by the process environment, and then by
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sarchlab/joskern/mem/vm"
)

// Environment variables read by Load.
const (
	KeyCPUs          = "JOSKERN_CPUS"
	KeyEnvs          = "JOSKERN_ENVS"
	KeyFrames        = "JOSKERN_FRAMES"
	KeyArch          = "JOSKERN_ARCH"
	KeyDepth         = "JOSKERN_DEPTH"
	KeyTimer         = "JOSKERN_TIMER"
	KeyLogLevel      = "JOSKERN_LOG_LEVEL"
	KeyLogFile       = "JOSKERN_LOG_FILE"
	KeyTrace         = "JOSKERN_TRACE"
	KeyMonitorPort   = "JOSKERN_MONITOR_PORT"
	KeyClickHouseDB  = "JOSKERN_CLICKHOUSE_DB"
	KeyClickHouseUsr = "JOSKERN_CLICKHOUSE_USER"
	KeyClickHousePwd = "JOSKERN_CLICKHOUSE_PASSWORD"
)

// Config describes the machine to boot and the tooling around it.
type Config struct {
	NumCPUs       int
	NumEnvs       int
	NumFrames     int
	Arch          string
	Depth         int
	TimerInterval time.Duration

	LogLevel string
	LogFile  string

	// Trace is empty for no trace, "sqlite" or "sqlite:<path>" for an
	// SQLite file, or "clickhouse:<host:port>".
	Trace string

	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	// MonitorPort is the port of the monitoring server, 0 for any.
	MonitorPort int
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		NumCPUs:            1,
		NumEnvs:            1024,
		NumFrames:          4096,
		Arch:               vm.X86.Name(),
		Depth:              3,
		TimerInterval:      10 * time.Millisecond,
		LogLevel:           "INFO",
		ClickHouseDatabase: "default",
		ClickHouseUser:     "default",
	}
}

// Load returns the defaults overridden by the variables of the given .env
// file and then by the process environment. A missing file is not an
// error when path is the default ".env".
func Load(path string) (Config, error) {
	c := Default()

	values, err := godotenv.Read(path)
	if err != nil {
		if path != ".env" || !errors.Is(err, fs.ErrNotExist) {
			return c, fmt.Errorf("reading %s: %w", path, err)
		}

		values = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := values[key]

		return v, ok
	}

	err = c.apply(lookup)

	return c, err
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{KeyCPUs, &c.NumCPUs},
		{KeyEnvs, &c.NumEnvs},
		{KeyFrames, &c.NumFrames},
		{KeyDepth, &c.Depth},
		{KeyMonitorPort, &c.MonitorPort},
	}

	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", i.key, err)
		}

		*i.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{KeyArch, &c.Arch},
		{KeyLogLevel, &c.LogLevel},
		{KeyLogFile, &c.LogFile},
		{KeyTrace, &c.Trace},
		{KeyClickHouseDB, &c.ClickHouseDatabase},
		{KeyClickHouseUsr, &c.ClickHouseUser},
		{KeyClickHousePwd, &c.ClickHousePassword},
	}

	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup(KeyTimer); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", KeyTimer, err)
		}

		c.TimerInterval = d
	}

	return nil
}

// Validate checks that the configuration describes a machine that can
// boot.
func (c Config) Validate() error {
	switch {
	case c.NumCPUs < 1:
		return fmt.Errorf("at least one CPU is needed, got %d", c.NumCPUs)
	case c.NumEnvs < 1 || c.NumEnvs > 1024:
		return fmt.Errorf("environment slots must be in [1, 1024], got %d",
			c.NumEnvs)
	case c.NumFrames < 1:
		return fmt.Errorf("at least one frame is needed, got %d", c.NumFrames)
	case c.Depth < 0:
		return fmt.Errorf("negative fork depth %d", c.Depth)
	case c.TimerInterval <= 0:
		return fmt.Errorf("timer interval must be positive, got %s",
			c.TimerInterval)
	}

	_, err := c.PagingArch()

	return err
}

// PagingArch returns the paging layout named by Arch.
func (c Config) PagingArch() (vm.Arch, error) {
	arch := vm.ArchByName(c.Arch)
	if arch == nil {
		return nil, fmt.Errorf("unknown architecture %q", c.Arch)
	}

	return arch, nil
}
