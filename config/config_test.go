package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultConfig(t *testing.T) {
	GetDefaultOptions()
	opts, err := GetConfig()
	if err != nil {
		t.Fatalf("Error loading config: %s", err)
	}

	t.Logf(`Config
		Data: %s
		DSN: %s
		LogLevel: %s
		LogFile: %s
		`, opts.Data, opts.DSN, opts.LogLevel, opts.LogFile)

	if opts.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel not set")
	}
	if opts.DSN == "" {
		t.Errorf("DSN not derived from data dir")
	}
	if !filepath.IsAbs(opts.Data) {
		t.Errorf("Data dir %q is not absolute", opts.Data)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	content := `log_level = "debug"
log_file = "test.log"
data = "` + dir + `"
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	GetDefaultOptions()
	opts, err := ParseFile(file)
	if err != nil {
		t.Fatalf("Error loading config: %s", err)
	}
	if opts.LogLevel != "debug" {
		t.Errorf("LogLevel not set")
	}
	if opts.LogFile != "test.log" {
		t.Errorf("LogFile not set")
	}
	if opts.Data != dir {
		t.Errorf("Data not set")
	}
}
