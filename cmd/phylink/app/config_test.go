package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Writing config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "mode: sound\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Radio.SampleRate != 1e6 {
		t.Errorf("Expected default sample rate 1e6, got %g", config.Radio.SampleRate)
	}
	if config.Radio.BlockLen != 10000 {
		t.Errorf("Expected default block length 10000, got %d", config.Radio.BlockLen)
	}
	if config.Probe.Length != 256 {
		t.Errorf("Expected default probe length 256, got %d", config.Probe.Length)
	}
	if config.Modem.SPS != 100 {
		t.Errorf("Expected default SPS 100, got %d", config.Modem.SPS)
	}
	if got := config.Radio.TxInterval(); got != 500*time.Millisecond {
		t.Errorf("Expected default transmit interval 500ms, got %s", got)
	}
}

func TestLoadConfig_EmptyModeDefaultsToSounder(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "radio:\n  sampleRate: 2000000\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Mode != ModeSound {
		t.Errorf("Expected default mode %q, got %q", ModeSound, config.Mode)
	}
	if config.Radio.SampleRate != 2e6 {
		t.Errorf("Expected configured sample rate 2e6, got %g", config.Radio.SampleRate)
	}
}

func TestLoadConfig_UnknownMode(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "mode: sideways\n")); err == nil {
		t.Error("Unknown mode should fail validation")
	}
}

func TestLoadConfig_TwoChannelModes(t *testing.T) {
	for _, mode := range []Mode{ModeDoA, ModeBeam} {
		content := "mode: " + string(mode) + "\nradio:\n  channels: 1\n"
		if _, err := LoadConfig(writeConfig(t, content)); err == nil {
			t.Errorf("Mode %q with one channel should fail validation", mode)
		}

		content = "mode: " + string(mode) + "\nradio:\n  channels: 2\n"
		if _, err := LoadConfig(writeConfig(t, content)); err != nil {
			t.Errorf("Mode %q with two channels failed: %v", mode, err)
		}
	}
}

func TestLoadConfig_BlockShorterThanProbe(t *testing.T) {
	content := "mode: sound\nradio:\n  blockLen: 100\nprobe:\n  length: 256\n"
	if _, err := LoadConfig(writeConfig(t, content)); err == nil {
		t.Error("Block shorter than the probe should fail validation")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Missing file should fail")
	}
}

func TestSettings_Level(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := (Settings{LogLevel: tt.in}).Level(); got != tt.want {
			t.Errorf("Level(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestRadioConfig_LoopbackTaps(t *testing.T) {
	c := RadioConfig{}
	if taps := c.LoopbackTaps(); len(taps) != 1 || taps[0].Gain != 1.0 {
		t.Errorf("Expected single unit tap, got %v", taps)
	}

	c.Loopback.EchoDelay = 8
	c.Loopback.EchoGain = 0.5
	taps := c.LoopbackTaps()
	if len(taps) != 2 || taps[1].Delay != 8 || taps[1].Gain != 0.5 {
		t.Errorf("Expected echo tap, got %v", taps)
	}
}
