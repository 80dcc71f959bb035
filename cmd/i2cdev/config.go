package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cdev"
	"github.com/mklimuk/i2cdev/adapter"
	"github.com/mklimuk/i2cdev/bitbang"
)

// Config describes how to reach the bus: which adapter carries the two
// lines and which of its pins they hang on. Pin names are adapter
// specific: GP indexes ("0".."3") for the mcp2221, periph registry names
// ("GPIO2", "GPIO3") for gpio.
type Config struct {
	Adapter        string        `yaml:"adapter"`
	SDA            string        `yaml:"sda"`
	SCL            string        `yaml:"scl"`
	Frequency      int           `yaml:"frequency"`
	StretchTimeout time.Duration `yaml:"stretch_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Adapter:   "mcp2221",
		SDA:       "0",
		SCL:       "1",
		Frequency: bitbang.DefaultFrequency,
	}
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	return config, nil
}

// openBus assembles the register access layer from the cli context:
// config file first, then flag overrides.
func openBus(c *cli.Context) (*i2cdev.Registers, error) {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	var sda, scl bitbang.Pin
	switch config.Adapter {
	case "mcp2221":
		mcp2221 := adapter.NewMCP2221()
		if err := mcp2221.Init(); err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		sdaIdx, err := strconv.Atoi(config.SDA)
		if err != nil {
			return nil, fmt.Errorf("invalid mcp2221 sda pin %q: %w", config.SDA, err)
		}
		sclIdx, err := strconv.Atoi(config.SCL)
		if err != nil {
			return nil, fmt.Errorf("invalid mcp2221 scl pin %q: %w", config.SCL, err)
		}
		sda, scl = mcp2221.Pin(sdaIdx), mcp2221.Pin(sclIdx)
	case "gpio":
		sda, scl, err = bitbang.OpenPins(config.SDA, config.SCL)
		if err != nil {
			return nil, fmt.Errorf("could not open gpio pins: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown adapter %q", config.Adapter)
	}
	opts := []bitbang.Option{bitbang.WithFrequency(config.Frequency)}
	if config.StretchTimeout > 0 {
		opts = append(opts, bitbang.WithStretchTimeout(config.StretchTimeout))
	}
	return i2cdev.NewRegisters(bitbang.New(sda, scl, opts...)), nil
}
