// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Serial drivers
const (
	DriverGridX = "gridx"
	DriverBugst = "bugst"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config defines the global configuration structure
type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	Reader ReaderConfig `mapstructure:"reader"`
	Poll   PollConfig   `mapstructure:"poll"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Driver      string        `mapstructure:"driver"` // "gridx" or "bugst"
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stop_bits"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // Per-read wait while draining the driver
}

// ReaderConfig defines the polling discipline of a read cycle
type ReaderConfig struct {
	CommandDelay     time.Duration `mapstructure:"command_delay"` // Pause between the two commands
	ChargerAttempts  int           `mapstructure:"charger_attempts"`
	ChargerInterval  time.Duration `mapstructure:"charger_interval"`
	InverterTimeout  time.Duration `mapstructure:"inverter_timeout"`
	InverterInterval time.Duration `mapstructure:"inverter_interval"`
	InverterChunk    int           `mapstructure:"inverter_chunk"`
}

// PollConfig defines periodic reading. Zero interval reads once and exits.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// OutputConfig defines how records are written to stdout
type OutputConfig struct {
	Format string `mapstructure:"format"` // json, yaml
}

// Flags returns the command line flags understood by LoadConfig.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("must-reader", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Configuration file path.")
	fs.Bool("list-fields", false, "Print the telemetry field names and exit.")
	fs.StringP("serial.device", "p", "", "Serial port device name.")
	fs.IntP("serial.baud_rate", "s", 0, "Serial port speed.")
	fs.String("serial.driver", "", "Serial driver (gridx, bugst).")
	fs.DurationP("poll.interval", "i", 0, "Read periodically at this interval (0 reads once).")
	fs.StringP("output.format", "o", "", "Output format (json, yaml).")
	fs.StringP("log.level", "v", "", "Log verbosity level (debug, info, warn, error).")
	fs.StringP("log.file", "L", "", "Log file name ('-' for logging to STDERR only).")
	return fs
}

// LoadConfig loads configuration from file, then applies flags that were
// set explicitly. fs may be nil.
func LoadConfig(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/must-reader/")
		v.AddConfigPath("$HOME/.must-reader")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Without a file every setting comes from defaults and flags.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || f.Name == "list-fields" || !f.Changed || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind pflags: %w", bindErr)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Serial)
	config.Output.Format = strings.ToLower(config.Output.Format)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.driver", DriverGridX)
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 19200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.read_timeout", 5*time.Millisecond)

	v.SetDefault("reader.command_delay", 30*time.Millisecond)
	v.SetDefault("reader.charger_attempts", 40)
	v.SetDefault("reader.charger_interval", 100*time.Millisecond)
	v.SetDefault("reader.inverter_timeout", 600*time.Millisecond)
	v.SetDefault("reader.inverter_interval", 20*time.Millisecond)
	v.SetDefault("reader.inverter_chunk", 512)

	v.SetDefault("poll.interval", time.Duration(0))
	v.SetDefault("output.format", FormatJSON)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	s.Driver = strings.ToLower(s.Driver)
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
}

// Validate reports settings the reader cannot work with.
func (c *Config) Validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be > 0, got %d", c.Serial.BaudRate)
	}
	switch c.Serial.Driver {
	case DriverGridX, DriverBugst:
	default:
		return fmt.Errorf("unknown serial.driver %q", c.Serial.Driver)
	}
	if c.Reader.ChargerAttempts <= 0 {
		return fmt.Errorf("reader.charger_attempts must be > 0")
	}
	if c.Reader.InverterTimeout <= 0 {
		return fmt.Errorf("reader.inverter_timeout must be > 0")
	}
	if c.Reader.InverterChunk <= 0 {
		return fmt.Errorf("reader.inverter_chunk must be > 0")
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must not be negative")
	}
	switch c.Output.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown output.format %q", c.Output.Format)
	}
	return nil
}
