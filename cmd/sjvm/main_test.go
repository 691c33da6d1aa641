package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/jvmgen"
	"github.com/tangzhangming/sjvm/internal/profiler"
)

// writeProject 在临时目录中生成 demo/Hello.class 和配置文件
func writeProject(t *testing.T, configText string) (classDir, configPath string) {
	t.Helper()
	root := t.TempDir()
	classDir = filepath.Join(root, "classes")
	if err := os.MkdirAll(filepath.Join(classDir, "demo"), 0o755); err != nil {
		t.Fatal(err)
	}

	a := jvmgen.NewAssembler("demo/Hello")
	a.AddMethod(jvmgen.AccPublic|jvmgen.AccStatic, "main", "([Ljava/lang/String;)V", jvmgen.NewCode(2, 1).
		Ref(bytecode.OpGetstatic, a.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")).
		Ldc(a.String("hi")).
		Ref(bytecode.OpInvokevirtual, a.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")).
		Op(bytecode.OpReturn))
	if err := os.WriteFile(filepath.Join(classDir, "demo", "Hello.class"), a.MustBuild(), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath = filepath.Join(root, "sjvm.toml")
	if err := os.WriteFile(configPath, []byte(configText), 0o644); err != nil {
		t.Fatal(err)
	}
	return classDir, configPath
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-lang", "en", "-no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI("-version")
	if code != 0 || stdout != "sjvm "+Version+"\n" {
		t.Errorf("Expected version output, got %d %q", code, stdout)
	}
}

func TestHelpAndBadFlags(t *testing.T) {
	code, _, stderr := runCLI("-h")
	if code != 0 || !strings.Contains(stderr, "Usage: sjvm") {
		t.Errorf("Expected usage with exit 0, got %d %q", code, stderr)
	}
	if code, _, _ := runCLI("-bogus"); code != 2 {
		t.Errorf("Expected exit 2, got %d", code)
	}
}

func TestRunFromClassPath(t *testing.T) {
	dir, cfg := writeProject(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"slash name", []string{"-config", cfg, "-cp", dir, "demo/Hello"}},
		{"dotted name", []string{"-config", cfg, "-cp", dir, "demo.Hello", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			if code != 0 {
				t.Fatalf("Expected exit 0, got %d: %s", code, stderr)
			}
			if stdout != "hi\n" {
				t.Errorf("Expected %q, got %q", "hi\n", stdout)
			}
		})
	}
}

func TestMainClassFromConfig(t *testing.T) {
	root := t.TempDir()
	dir, _ := writeProject(t, "")
	cfg := filepath.Join(root, "sjvm.toml")
	text := "[vm]\nmain = \"demo/Hello\"\nclasspath = [" + tomlLiteral(dir) + "]\n"
	if err := os.WriteFile(cfg, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI("-config", cfg)
	if code != 0 || stdout != "hi\n" {
		t.Errorf("Expected hi with exit 0, got %d %q (%s)", code, stdout, stderr)
	}
}

// tomlLiteral 生成 TOML 字面字符串
func tomlLiteral(s string) string {
	return "'" + s + "'"
}

func TestErrors(t *testing.T) {
	dir, cfg := writeProject(t, "")
	_, badCfg := writeProject(t, "[vm]\nmax_call_depth = 0\n")

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no main class", []string{"-config", cfg}, 1, "no main class given"},
		{"missing class", []string{"-config", cfg, "-cp", dir, "demo/Nope"}, 1, "R0304"},
		{"bad config", []string{"-config", badCfg, "demo/Hello"}, 1, "configuration error"},
		{"bad log level", []string{"-config", cfg, "-log", "loud", "demo/Hello"}, 1, "configuration error"},
		{"bad profile format", []string{"-config", cfg, "-cp", dir, "-prof", "xml", "demo/Hello"}, 2, "configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			if code != tt.code {
				t.Errorf("Expected exit %d, got %d", tt.code, code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("Expected stderr to contain %q, got %q", tt.want, stderr)
			}
		})
	}
}

func TestProfileJSON(t *testing.T) {
	dir, cfg := writeProject(t, "")
	code, stdout, stderr := runCLI("-config", cfg, "-cp", dir, "-prof", "json", "demo/Hello")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr)
	}
	if stdout != "hi\n" {
		t.Errorf("Expected program output on stdout, got %q", stdout)
	}

	var p profiler.Profile
	if err := json.Unmarshal([]byte(stderr), &p); err != nil {
		t.Fatalf("Expected a JSON profile on stderr, got %q: %v", stderr, err)
	}
	if p.Instructions != 4 || len(p.Methods) != 1 {
		t.Errorf("Expected 4 instructions in 1 method, got %d in %d", p.Instructions, len(p.Methods))
	}
}

func TestDumpAndDisasm(t *testing.T) {
	dir, cfg := writeProject(t, "")

	code, stdout, stderr := runCLI("-config", cfg, "-cp", dir, "-dump", "demo/Hello")
	if code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, stderr)
	}
	var dump struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(stdout), &dump); err != nil || dump.Name != "demo/Hello" {
		t.Errorf("Expected a class dump, got %q (%v)", stdout, err)
	}

	code, stdout, _ = runCLI("-config", cfg, "-cp", dir, "-disasm", "demo/Hello")
	if code != 0 || !strings.Contains(stdout, "invokevirtual") {
		t.Errorf("Expected a disassembly, got %d %q", code, stdout)
	}
}

func TestPreprocessArgs(t *testing.T) {
	tests := []struct {
		args []string
		rest []string
		lang string
	}{
		{[]string{"-lang", "zh", "Main"}, []string{"Main"}, "zh"},
		{[]string{"--lang=en", "-cp", "."}, []string{"-cp", "."}, "en"},
		{[]string{"-lang=zh"}, nil, "zh"},
		{[]string{"Main", "-lang"}, []string{"Main", "-lang"}, ""},
		{[]string{"Main", "-lang", "zh"}, []string{"Main", "-lang", "zh"}, ""},
		{[]string{"-cp", ".", "Main", "--lang=zh"}, []string{"-cp", ".", "Main", "--lang=zh"}, ""},
		{[]string{"-cp", ".", "-lang", "zh", "Main", "x"}, []string{"-cp", ".", "Main", "x"}, "zh"},
		{[]string{"-trace", "-lang=en", "Main"}, []string{"-trace", "Main"}, "en"},
		{[]string{"--", "-lang", "zh"}, []string{"--", "-lang", "zh"}, ""},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			rest, lang := preprocessArgs(tt.args)
			if lang != tt.lang {
				t.Errorf("Expected lang %q, got %q", tt.lang, lang)
			}
			if strings.Join(rest, " ") != strings.Join(tt.rest, " ") {
				t.Errorf("Expected %v, got %v", tt.rest, rest)
			}
		})
	}
}
