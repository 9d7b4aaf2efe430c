package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/petems/micrecorder/internal/audio"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MICRECORDER_AUDIO_SAMPLE_RATE
const EnvPrefix = "MICRECORDER"

type Config struct {
	Backend     string      `json:"backend" mapstructure:"backend" yaml:"backend"`
	Audio       AudioConfig `json:"audio" mapstructure:"audio" yaml:"audio"`
	Meter       MeterConfig `json:"meter" mapstructure:"meter" yaml:"meter"`
	LogLevel    string      `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
	LogFile     string      `json:"log_file" mapstructure:"log_file" yaml:"log_file"`
	MetricsAddr string      `json:"metrics_addr" mapstructure:"metrics_addr" yaml:"metrics_addr"` // empty disables
}

type AudioConfig struct {
	DeviceID           string        `json:"device_id" mapstructure:"device_id" yaml:"device_id"` // empty = platform default
	SampleRate         int           `json:"sample_rate" mapstructure:"sample_rate" yaml:"sample_rate"`
	ProcessingInterval time.Duration `json:"processing_interval" mapstructure:"processing_interval" yaml:"processing_interval"`
}

type MeterConfig struct {
	MaxDuration time.Duration `json:"max_duration" mapstructure:"max_duration" yaml:"max_duration"` // 0 = unlimited
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend: audio.KindPortAudio,
		Audio: AudioConfig{
			DeviceID:           "",
			SampleRate:         44100,
			ProcessingInterval: 100 * time.Millisecond,
		},
		LogLevel: "info",
		LogFile:  DefaultLogPath(),
	}
}

// Load reads the config from path, or from the platform config path when
// path is empty. A missing file yields defaults; environment variables
// override both.
func Load(path string) (*Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		path = Path()
	}
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	_, statErr := os.Stat(path)
	if explicit || statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	def := Default()
	v.SetDefault("backend", def.Backend)
	v.SetDefault("audio.device_id", def.Audio.DeviceID)
	v.SetDefault("audio.sample_rate", def.Audio.SampleRate)
	v.SetDefault("audio.processing_interval", def.Audio.ProcessingInterval)
	v.SetDefault("meter.max_duration", def.Meter.MaxDuration)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Validate rejects settings the recorder cannot run with
func (c *Config) Validate() error {
	if !slices.Contains(audio.Kinds(), strings.ToLower(c.Backend)) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(audio.Kinds(), ", "))
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.ProcessingInterval < 0 {
		return fmt.Errorf("processing interval must not be negative, got %s", c.Audio.ProcessingInterval)
	}
	if c.Meter.MaxDuration < 0 {
		return fmt.Errorf("meter max duration must not be negative, got %s", c.Meter.MaxDuration)
	}
	return nil
}

// Save writes the config to path, or the platform config path when empty
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the platform-specific config file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "micrecorder", "config.json")
}

// DefaultLogPath returns the platform-specific log file path
func DefaultLogPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "micrecorder", "micrecorder.log")
}

// YAML renders the config for display
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
