// Package config loads the timing parameters and cluster roster a peer
// starts with: environment variables for the former, a flat roster file
// for the latter.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Timing holds the millisecond-granularity parameters that govern
// election timeouts, heartbeat cadence, and replication deadlines.
type Timing struct {
	LowTimeout      time.Duration
	HighTimeout     time.Duration
	HBTime          time.Duration
	MaxLogWait      time.Duration
	RequestsTimeout time.Duration
}

// defaults mirror the source's documented defaults for a 3-5 node
// cluster on a local network.
var defaults = Timing{
	LowTimeout:      150 * time.Millisecond,
	HighTimeout:     300 * time.Millisecond,
	HBTime:          50 * time.Millisecond,
	MaxLogWait:      500 * time.Millisecond,
	RequestsTimeout: 100 * time.Millisecond,
}

// LoadTiming reads LOW_TIMEOUT, HIGH_TIMEOUT, HB_TIME, MAX_LOG_WAIT, and
// REQUESTS_TIMEOUT from the environment (all integer milliseconds),
// falling back to defaults for any unset variable.
func LoadTiming() (Timing, error) {
	t := defaults

	var err error
	if t.LowTimeout, err = envDuration("LOW_TIMEOUT", defaults.LowTimeout); err != nil {
		return Timing{}, err
	}
	if t.HighTimeout, err = envDuration("HIGH_TIMEOUT", defaults.HighTimeout); err != nil {
		return Timing{}, err
	}
	if t.HBTime, err = envDuration("HB_TIME", defaults.HBTime); err != nil {
		return Timing{}, err
	}
	if t.MaxLogWait, err = envDuration("MAX_LOG_WAIT", defaults.MaxLogWait); err != nil {
		return Timing{}, err
	}
	if t.RequestsTimeout, err = envDuration("REQUESTS_TIMEOUT", defaults.RequestsTimeout); err != nil {
		return Timing{}, err
	}

	return t, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", name)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// LoadRoster reads an ordered file of scheme:host:port entries, one per
// line, and returns them in order. Blank lines are skipped.
func LoadRoster(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open roster file %s", path)
	}
	defer f.Close()

	var addrs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		addrs = append(addrs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read roster file %s", path)
	}

	return addrs, nil
}
