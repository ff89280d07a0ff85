// Package config assembles the daemon configuration from defaults, an
// optional configuration file and command line flags, in that order of
// precedence (flags win).
//
// Sample file:
//
//	[phasecut]
//	device=pwr
//	broker=tcp://192.168.1.200:1883
//	chip=gpiochip0
//	zerocross=17
//	outputs=27,22,23,24
//	halfcycle=10ms
//	tick=1us
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	aconfig "github.com/aamcrae/config"

	"github.com/sweeney/phasecut/internal/gpio"
	"github.com/sweeney/phasecut/internal/phase"
)

// Section is the configuration file section read by ApplyFile.
const Section = "phasecut"

// Config is the daemon configuration. It is read-only once loaded.
type Config struct {
	Device       string
	Broker       string
	TimeServer   string // informational; the host synchronises its own clock
	Timezone     string // IANA zone name applied to telemetry timestamps
	Chip         string
	ZeroCrossPin int
	OutputPins   []int
	HalfCycle    time.Duration
	TickPeriod   time.Duration
	HTTPAddr     string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Device:       "pwr",
		Broker:       "tcp://192.168.1.200:1883",
		TimeServer:   "pool.ntp.org",
		Timezone:     "Australia/Sydney",
		Chip:         gpio.DefaultChip,
		ZeroCrossPin: gpio.DefaultPinZeroCross,
		OutputPins:   append([]int(nil), gpio.DefaultOutputPins...),
		HalfCycle:    phase.DefaultCalibration.HalfCycle,
		TickPeriod:   phase.DefaultCalibration.TickPeriod,
		HTTPAddr:     ":80",
	}
}

// Load builds the configuration from args (without the program name).
// If -config names a file, its values replace the defaults and flags given
// explicitly on the command line replace the file's values.
func Load(name string, args []string) (Config, error) {
	cfg := Default()
	var file string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&file, "config", "", "Configuration file (optional)")
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Device name used in MQTT topics")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address")
	fs.StringVar(&cfg.TimeServer, "time-server", cfg.TimeServer, "Time server the host synchronises to (informational)")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "Time zone for telemetry timestamps")
	fs.StringVar(&cfg.Chip, "chip", cfg.Chip, "GPIO chip")
	fs.IntVar(&cfg.ZeroCrossPin, "pin-zc", cfg.ZeroCrossPin, "BCM pin number for the zero-cross detector")
	fs.Var((*pinList)(&cfg.OutputPins), "pins", "Comma separated BCM pin numbers for the outputs")
	fs.DurationVar(&cfg.HalfCycle, "half-cycle", cfg.HalfCycle, "Mains half-cycle period")
	fs.DurationVar(&cfg.TickPeriod, "tick", cfg.TickPeriod, "Phase timer tick period")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if file != "" {
		if err := cfg.ApplyFile(file); err != nil {
			return Config{}, err
		}
		// Second pass so explicit flags override the file.
		if err := fs.Parse(args); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFile overlays values from the [phasecut] section of a config file.
// Keys not present in the file are left unchanged. A key given twice, or a
// scalar key with more than one value, is an error.
func (c *Config) ApplyFile(path string) error {
	conf, err := aconfig.ParseFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s := conf.GetSection(Section)
	if s == nil {
		return fmt.Errorf("%s: no [%s] section", path, Section)
	}

	// The file format splits values on '=' and ','. Args holds the tokens
	// rejoined with ',', which is what a pin list needs. Scalars must be a
	// single token.
	entry := func(key string) (*aconfig.Entry, error) {
		entries := s.Get(key)
		switch len(entries) {
		case 0:
			return nil, nil
		case 1:
			return entries[0], nil
		default:
			return nil, fmt.Errorf("%s: %s set %d times", path, key, len(entries))
		}
	}
	get := func(key string) (string, bool, error) {
		e, err := entry(key)
		if e == nil || err != nil {
			return "", false, err
		}
		if len(e.Tokens) > 1 {
			return "", false, fmt.Errorf("%s:%d: %s: expected one value, got %q", path, e.Lineno, key, e.Args)
		}
		return strings.TrimSpace(e.Args), true, nil
	}

	for key, dst := range map[string]*string{
		"device":     &c.Device,
		"broker":     &c.Broker,
		"timeserver": &c.TimeServer,
		"tz":         &c.Timezone,
		"chip":       &c.Chip,
		"http":       &c.HTTPAddr,
	} {
		v, ok, err := get(key)
		if err != nil {
			return err
		}
		if ok {
			*dst = v
		}
	}

	v, ok, err := get("zerocross")
	if err != nil {
		return err
	}
	if ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: zerocross: %w", path, err)
		}
		c.ZeroCrossPin = n
	}
	e, err := entry("outputs")
	if err != nil {
		return err
	}
	if e != nil {
		pins, err := ParsePins(e.Args)
		if err != nil {
			return fmt.Errorf("%s:%d: outputs: %w", path, e.Lineno, err)
		}
		c.OutputPins = pins
	}
	for key, dst := range map[string]*time.Duration{
		"halfcycle": &c.HalfCycle,
		"tick":      &c.TickPeriod,
	} {
		v, ok, err := get(key)
		if err != nil {
			return err
		}
		if ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", path, key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Calibration returns the timing calibration.
func (c Config) Calibration() phase.Calibration {
	return phase.Calibration{HalfCycle: c.HalfCycle, TickPeriod: c.TickPeriod}
}

// Location returns the time zone for telemetry timestamps.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

var (
	ErrDevice  = errors.New("device name must be non-empty and contain no '/', '+' or '#'")
	ErrBroker  = errors.New("broker address required")
	ErrNoPins  = errors.New("at least one output pin required")
	ErrPinUsed = errors.New("pin used more than once")
)

// Validate checks the configuration before any hardware is touched.
func (c Config) Validate() error {
	if c.Device == "" || strings.ContainsAny(c.Device, "/+#") {
		return ErrDevice
	}
	if c.Broker == "" {
		return ErrBroker
	}
	if len(c.OutputPins) == 0 {
		return ErrNoPins
	}
	seen := map[int]bool{c.ZeroCrossPin: true}
	if c.ZeroCrossPin < 0 {
		return fmt.Errorf("invalid zero-cross pin %d", c.ZeroCrossPin)
	}
	for _, p := range c.OutputPins {
		if p < 0 {
			return fmt.Errorf("invalid output pin %d", p)
		}
		if seen[p] {
			return fmt.Errorf("%w: %d", ErrPinUsed, p)
		}
		seen[p] = true
	}
	if err := c.Calibration().Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	return nil
}

// ParsePins parses a comma separated list of pin numbers.
func ParsePins(s string) ([]int, error) {
	var pins []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("pin %q: %w", f, err)
		}
		pins = append(pins, n)
	}
	if len(pins) == 0 {
		return nil, ErrNoPins
	}
	return pins, nil
}

// pinList is a flag.Value for a comma separated pin list.
type pinList []int

func (p *pinList) String() string {
	if p == nil {
		return ""
	}
	s := make([]string, len(*p))
	for i, n := range *p {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}

func (p *pinList) Set(v string) error {
	pins, err := ParsePins(v)
	if err != nil {
		return err
	}
	*p = pins
	return nil
}
