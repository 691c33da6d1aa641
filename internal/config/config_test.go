package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	if cfg.VM.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("Expected %d, got %d", DefaultMaxCallDepth, cfg.VM.MaxCallDepth)
	}
	if len(cfg.VM.ClassPath) != 1 || cfg.VM.ClassPath[0] != "." {
		t.Errorf("Expected classpath [.], got %v", cfg.VM.ClassPath)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Errorf("Unexpected log defaults %+v", cfg.Log)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
[vm]
classpath = ["build/classes", "lib/util.jar"]
main = "com/example/Main"

[log]
level = "debug"
trace = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cfg.VM.ClassPath) != 2 || cfg.VM.ClassPath[1] != "lib/util.jar" {
		t.Errorf("Unexpected classpath %v", cfg.VM.ClassPath)
	}
	if cfg.VM.MainClass != "com/example/Main" {
		t.Errorf("Expected com/example/Main, got %s", cfg.VM.MainClass)
	}
	// 未出现的键保留默认值
	if cfg.VM.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("Expected default max_call_depth, got %d", cfg.VM.MaxCallDepth)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Expected default format, got %s", cfg.Log.Format)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Trace {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[vm\nmain = 1", "failed to parse"},
		{"depth", "[vm]\nmax_call_depth = 0", "max_call_depth"},
		{"level", "[log]\nlevel = \"verbose\"", "log.level"},
		{"format", "[log]\nformat = \"xml\"", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Expected error for missing file")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.VM.MainClass = "Main"
	want := filepath.Join(root, ConfigFileName)
	if err := cfg.Save(want); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, path, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}
	if got.VM.MainClass != "Main" {
		t.Errorf("Expected Main, got %s", got.VM.MainClass)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.VM.ClassPath = []string{"out", "deps.jar"}
	cfg.VM.MaxCallDepth = 64
	cfg.Log.Format = "json"

	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded.VM.MaxCallDepth != 64 || loaded.Log.Format != "json" || len(loaded.VM.ClassPath) != 2 {
		t.Errorf("Unexpected config after round trip %+v", loaded)
	}
}
