package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/config"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/jvmgen"
	"github.com/tangzhangming/sjvm/internal/loader"
	"github.com/tangzhangming/sjvm/internal/profiler"
)

func helloClass() []byte {
	a := jvmgen.NewAssembler("demo/Hello").SetSourceFile("Hello.java")
	a.AddField(jvmgen.AccPrivate|jvmgen.AccStatic, "count", "I")
	a.AddMethod(jvmgen.AccPublic|jvmgen.AccStatic, "main", "([Ljava/lang/String;)V", jvmgen.NewCode(2, 1).
		Line(5).
		Ref(bytecode.OpGetstatic, a.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")).
		Ldc(a.String("Hello from sjvm")).
		Ref(bytecode.OpInvokevirtual, a.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")).
		Op(bytecode.OpReturn).
		Local(0, 9, "args", "[Ljava/lang/String;", 0))
	a.AddMethod(jvmgen.AccStatic, "square", "(I)I", jvmgen.NewCode(2, 1).
		Op(bytecode.OpIload0, bytecode.OpIload0, bytecode.OpImul, bytecode.OpIreturn))
	return a.MustBuild()
}

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	opts = append([]Option{
		WithResolver(loader.MapResolver{"demo/Hello": helloClass()}),
		WithStdout(&stdout),
		WithStderr(&stdout),
	}, opts...)
	rt, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt, &stdout
}

func TestRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rt, stdout := newTestRuntime(t, WithLogger(zap.New(core)))

	if err := rt.Run("demo.Hello", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := stdout.String(); got != "Hello from sjvm\n" {
		t.Errorf("Expected %q, got %q", "Hello from sjvm\n", got)
	}
	if rt.Stats().Instructions != 4 {
		t.Errorf("Expected 4 instructions, got %d", rt.Stats().Instructions)
	}

	if logs.FilterMessage("run").Len() != 1 {
		t.Errorf("Expected one run entry, got %v", logs.All())
	}
	finished := logs.FilterMessage("finished").All()
	if len(finished) != 1 {
		t.Fatalf("Expected one finished entry, got %v", logs.All())
	}
	if state := finished[0].ContextMap()["state"]; state != "terminated" {
		t.Errorf("Expected terminated state, got %v", state)
	}
}

func TestRunMissingClass(t *testing.T) {
	rt, _ := newTestRuntime(t)
	err := rt.Run("demo/Missing", nil)
	if !errors.HasCode(err, errors.R0304) {
		t.Errorf("Expected R0304, got %v", err)
	}
}

func TestInvoke(t *testing.T) {
	rt, _ := newTestRuntime(t)
	got, err := rt.Invoke("demo/Hello", "square", "(I)I", int32(12))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != int32(144) {
		t.Errorf("Expected 144, got %v", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.VM.MaxCallDepth = 0
	if _, err := New(cfg); err == nil {
		t.Errorf("Expected invalid config to be rejected")
	}
}

func TestMainClass(t *testing.T) {
	cfg := config.Default()
	cfg.VM.MainClass = "demo/Hello"
	rt, err := New(cfg, WithResolver(loader.MapResolver{}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := rt.MainClass(""); got != "demo/Hello" {
		t.Errorf("Expected demo/Hello, got %s", got)
	}
	if got := rt.MainClass("other/Main"); got != "other/Main" {
		t.Errorf("Expected other/Main, got %s", got)
	}
}

func TestClassPathFromConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "demo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "demo", "Hello.class"), helloClass(), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.VM.ClassPath = []string{dir}
	var stdout bytes.Buffer
	rt, err := New(cfg, WithStdout(&stdout))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer rt.Close()

	if err := rt.Run("demo/Hello", []string{"x"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stdout.String() != "Hello from sjvm\n" {
		t.Errorf("Unexpected output %q", stdout.String())
	}
}

func TestProfiler(t *testing.T) {
	p := profiler.New()
	rt, _ := newTestRuntime(t, WithProfiler(p))
	if err := rt.Run("demo/Hello", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := p.Profile().Instructions; got != 4 {
		t.Errorf("Expected 4 profiled instructions, got %d", got)
	}
}

func TestCustomNative(t *testing.T) {
	a := jvmgen.NewAssembler("demo/Ext")
	a.AddMethod(jvmgen.AccStatic, "f", "()J", jvmgen.NewCode(2, 0).
		Ref(bytecode.OpInvokestatic, a.Methodref("demo/Clock", "ticks", "()J")).
		Op(bytecode.OpLreturn))
	rt, err := New(nil, WithResolver(loader.MapResolver{"demo/Ext": a.MustBuild()}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	rt.Natives().Register("demo/Clock", "ticks", "()J", func(args []any) (any, error) {
		return int64(99), nil
	})

	got, err := rt.Invoke("demo/Ext", "f", "()J")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != int64(99) {
		t.Errorf("Expected 99, got %v", got)
	}
}

// ============================================================================
// 工具
// ============================================================================

func TestDisassemble(t *testing.T) {
	rt, _ := newTestRuntime(t)
	var buf bytes.Buffer
	if err := rt.Disassemble("demo/Hello", &buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"public class demo.Hello {",
		"  public static main([Ljava/lang/String;)V;",
		"    Code: stack=2, locals=1",
		"      0: getstatic #",
		"Hello from sjvm",
		"static square(I)I;",
		"imul",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Errorf("Expected closing brace, got:\n%s", out)
	}
}

func TestDump(t *testing.T) {
	rt, _ := newTestRuntime(t)
	var buf bytes.Buffer
	if err := rt.Dump("demo/Hello", &buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var d ClassDump
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if d.Name != "demo/Hello" || d.Super != "java/lang/Object" || d.SourceFile != "Hello.java" {
		t.Errorf("Unexpected header %+v", d)
	}
	if d.Version != "52.0" {
		t.Errorf("Expected version 52.0, got %s", d.Version)
	}
	if len(d.Fields) != 1 || d.Fields[0].AccessFlags != "0x000a" {
		t.Errorf("Unexpected fields %+v", d.Fields)
	}
	if len(d.Methods) != 2 {
		t.Fatalf("Expected 2 methods, got %d", len(d.Methods))
	}
	main := d.Methods[0].Code
	if main == nil || main.Length != 9 || main.Lines != 1 || !main.HasLocalVar {
		t.Errorf("Unexpected main code %+v", main)
	}
}

func TestIndent(t *testing.T) {
	if got := indent("a\nb\n", "  "); got != "  a\n  b\n" {
		t.Errorf("Expected indented text, got %q", got)
	}
	if indent("", "  ") != "" {
		t.Errorf("Expected empty text to stay empty")
	}
}
