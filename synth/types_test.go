package synth

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelWarn},
		{"verbose", LevelWarn},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LevelInfo, &buf).With(map[string]any{"run": "r1"})

	log.Debugf("hidden %d", 1)
	log.Infof("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug output to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "r1") {
		t.Errorf("Expected the info line with its fields, got %q", out)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testgen.yaml")
	content := `package: example.com/app
log_level: debug
eager_forward: false
max_depth: 50
data_dir: testdata
adaptors:
  disable: [setup.large-list, matcher.array]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != "testdata" {
		t.Errorf("Unexpected data dir %q", cfg.DataDir)
	}

	opts := cfg.Apply(DefaultOptions())
	if opts.Package != "example.com/app" || opts.LogLevel != "debug" || opts.EagerForward || opts.MaxDepth != 50 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if len(opts.Disabled) != 2 || opts.Disabled[1] != "matcher.array" {
		t.Errorf("Unexpected disabled adaptors %v", opts.Disabled)
	}

	var nilCfg *Config
	if got := nilCfg.Apply(DefaultOptions()); !got.EagerForward {
		t.Error("Expected a nil config to keep the defaults")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
