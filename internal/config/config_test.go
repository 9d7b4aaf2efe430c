package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := Default()
	if cfg.Backend != def.Backend {
		t.Errorf("expected backend %q, got %q", def.Backend, cfg.Backend)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ProcessingInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", cfg.Audio.ProcessingInterval)
	}
	if cfg.Audio.DeviceID != "" {
		t.Errorf("expected default device, got %q", cfg.Audio.DeviceID)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micrecorder.yaml")
	data := `
backend: synth
audio:
  device_id: "Synth Silence"
  sample_rate: 16000
  processing_interval: 20ms
meter:
  max_duration: 5s
metrics_addr: ":9101"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend != "synth" || cfg.Audio.DeviceID != "Synth Silence" {
		t.Errorf("unexpected backend/device: %q/%q", cfg.Backend, cfg.Audio.DeviceID)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("expected 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ProcessingInterval != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", cfg.Audio.ProcessingInterval)
	}
	if cfg.Meter.MaxDuration != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Meter.MaxDuration)
	}
	if cfg.MetricsAddr != ":9101" {
		t.Errorf("expected :9101, got %q", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"audio": {"sample_rate": 22050}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MICRECORDER_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("MICRECORDER_AUDIO_PROCESSING_INTERVAL", "250ms")
	t.Setenv("MICRECORDER_BACKEND", "malgo")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected env sample rate 48000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ProcessingInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.Audio.ProcessingInterval)
	}
	if cfg.Backend != "malgo" {
		t.Errorf("expected malgo, got %q", cfg.Backend)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Backend = "synth"
	cfg.Audio.DeviceID = "USB Mic"
	cfg.Audio.ProcessingInterval = 50 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Audio.DeviceID != "USB Mic" || loaded.Audio.ProcessingInterval != 50*time.Millisecond {
		t.Errorf("unexpected loaded audio config: %+v", loaded.Audio)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "backend case insensitive", mutate: func(c *Config) { c.Backend = "PortAudio" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "oss" }, wantErr: "unknown backend"},
		{name: "zero sample rate", mutate: func(c *Config) { c.Audio.SampleRate = 0 }, wantErr: "sample rate"},
		{name: "negative interval", mutate: func(c *Config) { c.Audio.ProcessingInterval = -time.Second }, wantErr: "processing interval"},
		{name: "zero interval allowed", mutate: func(c *Config) { c.Audio.ProcessingInterval = 0 }},
		{name: "negative max duration", mutate: func(c *Config) { c.Meter.MaxDuration = -1 }, wantErr: "max duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYAML(t *testing.T) {
	cfg := Default()
	cfg.Meter.MaxDuration = 90 * time.Second
	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(out)
	for _, want := range []string{"backend: portaudio", "sample_rate: 44100", "processing_interval: 100ms", "max_duration: 1m30s"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in:\n%s", want, s)
		}
	}
	if strings.Contains(s, "100000000") {
		t.Errorf("durations should not render as nanoseconds:\n%s", s)
	}
}

func TestPathsUseXDG(t *testing.T) {
	if filepath.Base(Path()) != "config.json" {
		t.Errorf("unexpected config file name: %s", Path())
	}
	if filepath.Base(DefaultLogPath()) != "micrecorder.log" {
		t.Errorf("unexpected log file name: %s", DefaultLogPath())
	}
}
