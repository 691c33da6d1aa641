package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/tangzhangming/sjvm/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
		wantErr  bool
	}{
		{"", zapcore.WarnLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && level != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, level)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		debug   bool
		wantErr bool
	}{
		{"console", config.LogConfig{Level: "info", Format: "console"}, false, false},
		{"json", config.LogConfig{Level: "debug", Format: "json"}, true, false},
		{"defaults", config.LogConfig{}, false, false},
		{"bad format", config.LogConfig{Format: "xml"}, false, true},
		{"bad level", config.LogConfig{Level: "loud"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("Expected debug enabled %v, got %v", tt.debug, got)
			}
		})
	}
}
