package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// FEATHERLINK_ENDPOINT or FEATHERLINK_SIMULATOR_LISTEN.
const EnvPrefix = "FEATHERLINK"

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SimulatorConfig holds configuration for the local camera simulator
type SimulatorConfig struct {
	Listen        string        `mapstructure:"listen"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	Width         int           `mapstructure:"width"`
	Height        int           `mapstructure:"height"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

type AppConfig struct {
	Endpoint  string          `mapstructure:"endpoint"`
	Transport string          `mapstructure:"transport"`
	Log       LogConfig       `mapstructure:"log"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Default config
func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "ws://localhost:8765/ws/camera")
	v.SetDefault("transport", "gorilla")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "featherlink.log")
	v.SetDefault("simulator.listen", ":8765")
	v.SetDefault("simulator.frame_interval", 100*time.Millisecond) // 10 FPS
	v.SetDefault("simulator.width", 640)
	v.SetDefault("simulator.height", 480)
	v.SetDefault("metrics.listen", "")
}

// DefaultPath returns $XDG_CONFIG_HOME/featherlink/config.yaml, creating the
// directory if needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile("featherlink/config.yaml")
	if err != nil {
		return "", errors.Wrap(err, "unable to determine config path")
	}
	return path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, falling back to DefaultPath when path
// is empty. A missing file yields the defaults; environment variables
// override both.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v := newViper()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "error checking config file %s", path)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *AppConfig, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	v := viper.New()
	v.Set("endpoint", cfg.Endpoint)
	v.Set("transport", cfg.Transport)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("simulator.listen", cfg.Simulator.Listen)
	v.Set("simulator.frame_interval", cfg.Simulator.FrameInterval.String())
	v.Set("simulator.width", cfg.Simulator.Width)
	v.Set("simulator.height", cfg.Simulator.Height)
	v.Set("metrics.listen", cfg.Metrics.Listen)

	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrapf(err, "error writing config file %s", path)
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	switch c.Transport {
	case "gorilla", "coder":
	default:
		return fmt.Errorf("unknown transport %q (want gorilla or coder)", c.Transport)
	}
	if c.Simulator.FrameInterval <= 0 {
		return fmt.Errorf("simulator.frame_interval must be positive, got %s", c.Simulator.FrameInterval)
	}
	if c.Simulator.Width <= 0 || c.Simulator.Height <= 0 {
		return fmt.Errorf("simulator size must be positive, got %dx%d", c.Simulator.Width, c.Simulator.Height)
	}
	return nil
}
