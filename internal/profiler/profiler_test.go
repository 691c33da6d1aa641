package profiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/sjvm/internal/bytecode"
)

func TestProfilerCallsAndInstructions(t *testing.T) {
	p := New()

	p.Enter("Main.main:([Ljava/lang/String;)V")
	p.Instruction(byte(bytecode.OpIconst1))
	p.Enter("Main.add:(II)I")
	p.Instruction(byte(bytecode.OpIload0))
	p.Instruction(byte(bytecode.OpIload1))
	p.Instruction(byte(bytecode.OpIadd))
	p.Exit()
	p.Enter("Main.add:(II)I")
	p.Instruction(byte(bytecode.OpIreturn))
	p.Exit()
	p.Instruction(byte(bytecode.OpReturn))
	p.Exit()

	profile := p.Profile()
	if profile.Instructions != 6 {
		t.Errorf("Expected 6 instructions, got %d", profile.Instructions)
	}
	if len(profile.Methods) != 2 {
		t.Fatalf("Expected 2 methods, got %d", len(profile.Methods))
	}

	stats := map[string]*MethodStats{}
	for _, m := range profile.Methods {
		stats[m.Name] = m
	}
	add := stats["Main.add:(II)I"]
	if add == nil {
		t.Fatalf("Expected stats for Main.add")
	}
	if add.CallCount != 2 {
		t.Errorf("Expected 2 calls, got %d", add.CallCount)
	}
	if add.Instructions != 4 {
		t.Errorf("Expected 4 instructions, got %d", add.Instructions)
	}
	if add.Callers["Main.main:([Ljava/lang/String;)V"] != 2 {
		t.Errorf("Expected main as caller twice, got %v", add.Callers)
	}

	mainStats := stats["Main.main:([Ljava/lang/String;)V"]
	if mainStats.Instructions != 2 {
		t.Errorf("Expected 2 instructions, got %d", mainStats.Instructions)
	}
	if mainStats.SelfTime > mainStats.TotalTime {
		t.Errorf("Expected self time <= total time, got %v > %v", mainStats.SelfTime, mainStats.TotalTime)
	}

	if len(profile.Opcodes) != 6 {
		t.Errorf("Expected 6 distinct opcodes, got %v", profile.Opcodes)
	}
	if profile.Opcodes[0].Opcode != "iadd" {
		t.Errorf("Expected iadd first by name, got %s", profile.Opcodes[0].Opcode)
	}
}

func TestProfilerUnwind(t *testing.T) {
	p := New()
	p.Enter("A.a:()V")
	p.Enter("A.b:()V")
	p.Unwind()

	// 再次退出不应出错
	p.Exit()

	profile := p.Profile()
	if len(profile.Methods) != 2 {
		t.Fatalf("Expected 2 methods, got %d", len(profile.Methods))
	}
	for _, m := range profile.Methods {
		if m.CallCount != 1 {
			t.Errorf("Expected 1 call for %s, got %d", m.Name, m.CallCount)
		}
	}
}

func TestProfilerReset(t *testing.T) {
	p := New()
	p.Enter("A.a:()V")
	p.Instruction(byte(bytecode.OpNop))
	p.Exit()
	p.Reset()

	profile := p.Profile()
	if len(profile.Methods) != 0 || profile.Instructions != 0 {
		t.Errorf("Expected empty profile, got %d methods, %d instructions",
			len(profile.Methods), profile.Instructions)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFormat
		wantErr  bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"xml", FormatText, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteProfile(t *testing.T) {
	p := New()
	p.Enter("Main.main:([Ljava/lang/String;)V")
	p.Instruction(byte(bytecode.OpReturn))
	p.Exit()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := p.WriteProfile(&buf, FormatText); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Execution Profile", "Main.main", "return"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := p.WriteProfile(&buf, FormatJSON); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		var profile Profile
		if err := json.Unmarshal(buf.Bytes(), &profile); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if profile.Instructions != 1 || len(profile.Methods) != 1 {
			t.Errorf("Expected 1 instruction and 1 method, got %d and %d",
				profile.Instructions, len(profile.Methods))
		}
	})
}

func TestTruncateName(t *testing.T) {
	if got := truncateName("short", 10); got != "short" {
		t.Errorf("Expected short, got %s", got)
	}
	if got := truncateName("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("Expected abcde..., got %s", got)
	}
}
