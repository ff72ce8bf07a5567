package config

import (
	"fmt"
	"os"
	"time"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/scope"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Capture    CaptureConfig    `yaml:"capture"`
	CSV        CSVConfig        `yaml:"csv"`
	Stream     StreamConfig     `yaml:"stream"`
	Timescale  TimescaleConfig  `yaml:"timescale"`
	RawLog     RawLogConfig     `yaml:"rawlog"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type InstrumentConfig struct {
	// Transport selects the session adapter: usbtmc, lxi, gpib or sim.
	Transport string `yaml:"transport"`
	// Resource is transport specific: a VISA resource string for usbtmc
	// (USB0::0x0699::0x0363::C102220::INSTR), host:port for lxi, a serial
	// device path for gpib.
	Resource    string         `yaml:"resource"`
	GPIBAddress int            `yaml:"gpib_address"`
	Dialect     domain.Dialect `yaml:"dialect"`
	Source      string         `yaml:"source"`
	Timeout     time.Duration  `yaml:"timeout"`
}

type CaptureConfig struct {
	Count        int           `yaml:"count"`
	RecordLength int           `yaml:"record_length"`
	Framing      scope.Framing `yaml:"framing"`
}

type CSVConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type StreamConfig struct {
	Broker     string `yaml:"broker"`
	Topic      string `yaml:"topic"`
	ClientID   string `yaml:"client_id"`
	QoS        byte   `yaml:"qos"`
	Decimation int    `yaml:"decimation"`
	Buffer     int    `yaml:"buffer"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type RawLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Instrument.Transport == "" {
		c.Instrument.Transport = "usbtmc"
	}
	if c.Instrument.Dialect == "" {
		c.Instrument.Dialect = domain.DialectTek
	}
	if c.Instrument.Source == "" {
		c.Instrument.Source = "CH1"
	}
	if c.Instrument.Timeout == 0 {
		c.Instrument.Timeout = 5 * time.Second
	}
	if c.Capture.Count == 0 {
		c.Capture.Count = 100
	}
	if c.CSV.Dir == "" {
		c.CSV.Dir = "./captures"
	}
	if c.Stream.Topic == "" {
		c.Stream.Topic = "scopeflow/waveform"
	}
	if c.Stream.Decimation == 0 {
		c.Stream.Decimation = 1
	}
	if c.Stream.Buffer == 0 {
		c.Stream.Buffer = 64
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "captures"
	}
	if c.RawLog.Dir == "" {
		c.RawLog.Dir = "./data/rawlog"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) validate() error {
	switch c.Instrument.Transport {
	case "usbtmc", "lxi", "gpib", "sim":
	default:
		return fmt.Errorf("instrument.transport %q is not one of usbtmc, lxi, gpib, sim", c.Instrument.Transport)
	}
	if c.Instrument.Transport != "sim" && c.Instrument.Resource == "" {
		return fmt.Errorf("instrument.resource is required for transport %q", c.Instrument.Transport)
	}
	if c.Instrument.Transport == "gpib" && c.Instrument.GPIBAddress == 0 {
		return fmt.Errorf("instrument.gpib_address is required for the gpib transport")
	}
	if !c.Instrument.Dialect.Valid() {
		return fmt.Errorf("instrument.dialect %q is not one of tek, agilent", c.Instrument.Dialect)
	}
	if c.Instrument.Timeout < 0 {
		return fmt.Errorf("instrument.timeout must be positive")
	}
	if c.Capture.Count < 1 {
		return fmt.Errorf("capture.count must be at least 1")
	}
	if c.Capture.RecordLength < 0 {
		return fmt.Errorf("capture.record_length must not be negative")
	}
	if c.Capture.Framing != "" && !c.Capture.Framing.Valid() {
		return fmt.Errorf("capture.framing %q is not one of tek, agilent, none", c.Capture.Framing)
	}
	if c.Stream.QoS > 2 {
		return fmt.Errorf("stream.qos must be 0, 1 or 2")
	}
	if c.Stream.Decimation < 1 {
		return fmt.Errorf("stream.decimation must be at least 1")
	}
	return nil
}
