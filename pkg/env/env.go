// Package env sets up the bridge from command line flags and environment.
package env

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"time"

	fx "github.com/robotalks/sh2bridge/pkg/framework"
	"github.com/robotalks/sh2bridge/pkg/hal/clock"
	"github.com/robotalks/sh2bridge/pkg/hostlink"
	"github.com/robotalks/sh2bridge/pkg/hostlink/mqtt"
	"github.com/robotalks/sh2bridge/pkg/hostlink/websocket"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
	"github.com/robotalks/sh2bridge/pkg/sim"
)

// Backends.
const (
	BackendSim    = "sim"
	BackendI2CDev = "i2cdev"
)

// Config provides common options to setup the bridge.
type Config struct {
	// Backend is either sim or i2cdev.
	Backend string
	I2CBus  int
	Addr    uint
	IntGPIO int

	// LinkURL specifies the host link, e.g.
	// stdio:, file:///dev/ttyGS0, tcp://host:port,
	// mqtt://host:port/topic-prefix/, ws://:8080/frames
	LinkURL  string
	DeviceID string

	SimInterval    time.Duration
	StartupTimeout time.Duration
	StampAtSignal  bool
}

var defaultConfig = Config{
	Backend:        BackendSim,
	I2CBus:         1,
	Addr:           uint(hal.DefaultAddr),
	IntGPIO:        17,
	LinkURL:        "stdio:",
	SimInterval:    10 * time.Millisecond,
	StartupTimeout: hal.DefaultConfig.StartupTimeout,
}

func init() {
	if val := os.Getenv("SH2_LINK_URL"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("SH2_BACKEND"); val != "" {
		defaultConfig.Backend = val
	}
	defaultConfig.DeviceID = MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Backend, "backend", defaultConfig.Backend, "Sensor hub backend: sim or i2cdev")
	flag.IntVar(&defaultConfig.I2CBus, "i2c-bus", defaultConfig.I2CBus, "I2C bus number")
	flag.UintVar(&defaultConfig.Addr, "addr", defaultConfig.Addr, "Sensor hub bus address")
	flag.IntVar(&defaultConfig.IntGPIO, "int-gpio", defaultConfig.IntGPIO, "GPIO of the interrupt line")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Host link URL")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID")
	flag.DurationVar(&defaultConfig.SimInterval, "sim-interval", defaultConfig.SimInterval, "Report interval of the simulated hub")
	flag.DurationVar(&defaultConfig.StartupTimeout, "startup-timeout", defaultConfig.StartupTimeout, "Wait for the sensor hub on open")
	flag.BoolVar(&defaultConfig.StampAtSignal, "stamp-at-signal", defaultConfig.StampAtSignal, "Timestamp frames at interrupt instead of delivery")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// HALConfig derives the adapter configuration.
func (c *Config) HALConfig() hal.Config {
	conf := hal.DefaultConfig
	conf.Addr = uint16(c.Addr)
	conf.StartupTimeout = c.StartupTimeout
	conf.StampAtSignal = c.StampAtSignal
	return conf
}

// NewAdapter creates the adapter on the configured backend. The returned
// runnables must run for the backend to work.
func (c *Config) NewAdapter() (*hal.Adapter, []fx.Runnable, error) {
	clk := clock.New(clock.NewTickerCounter())
	switch c.Backend {
	case BackendSim:
		peer := sim.NewPeer(uint16(c.Addr))
		hub := sim.NewHub(peer)
		if c.SimInterval > 0 {
			hub.Interval = c.SimInterval
		}
		return hal.New(c.HALConfig(), peer, peer.Line(), clk), []fx.Runnable{hub}, nil
	case BackendI2CDev:
		master, line, err := newHardwareBackend(c)
		if err != nil {
			return nil, nil, err
		}
		return hal.New(c.HALConfig(), master, line, clk), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

// NewLink creates the host link. The returned runnable, if not nil, must
// run for the link to work.
func (c *Config) NewLink() (hostlink.PacketReadWriter, fx.Runnable, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid link URL: %w", err)
	}
	switch u.Scheme {
	case "", "stdio":
		return hostlink.NewStream(stdio{Reader: os.Stdin, Writer: os.Stdout}), nil, nil
	case "file":
		f, err := os.OpenFile(u.Path, os.O_RDWR, 0)
		if err != nil {
			return nil, nil, err
		}
		return hostlink.NewStream(f), nil, nil
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, nil, err
		}
		return hostlink.NewStream(conn), nil, nil
	case "mqtt", "ssl", "tls":
		link, err := mqtt.NewLink(c.LinkURL, c.DeviceID)
		if err != nil {
			return nil, nil, err
		}
		return link, link, nil
	case "ws":
		srv := websocket.NewServer(u.Host, u.Path)
		return srv, srv, nil
	default:
		return nil, nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

// Env is the assembled bridge.
type Env struct {
	Config    *Config
	Adapter   *hal.Adapter
	Link      hostlink.PacketReadWriter
	Forwarder *hostlink.Forwarder
	// Runnables serve the backend and the link.
	Runnables []fx.Runnable
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	adapter, runnables, err := c.NewAdapter()
	if err != nil {
		return nil, fmt.Errorf("create adapter error: %w", err)
	}
	link, runnable, err := c.NewLink()
	if err != nil {
		return nil, fmt.Errorf("create link error: %w", err)
	}
	if runnable != nil {
		runnables = append(runnables, runnable)
	}
	return &Env{
		Config:    c,
		Adapter:   adapter,
		Link:      link,
		Forwarder: hostlink.NewForwarder(adapter, link),
		Runnables: runnables,
	}, nil
}

// MustNewEnv creates Env or fail.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// Run runs all parts of the bridge until a stop is requested or the
// forwarder stops.
func (e *Env) Run() error {
	return fx.NewRunner().
		HandleSignals().
		Go(e.Runnables...).
		GoUntil(e.Forwarder).
		Wait()
}
