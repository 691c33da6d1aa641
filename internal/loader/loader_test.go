package loader

import (
	"archive/zip"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/atomic"

	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/jvmgen"
)

func classBytes(name string) []byte {
	return jvmgen.NewAssembler(name).MustBuild()
}

// countingResolver 记录 Resolve 调用次数
type countingResolver struct {
	MapResolver
	calls atomic.Int64
}

func (r *countingResolver) Resolve(name string) ([]byte, error) {
	r.calls.Inc()
	return r.MapResolver.Resolve(name)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Main", "Main"},
		{"com.example.Main", "com/example/Main"},
		{"com/example/Main", "com/example/Main"},
		{"com/example/Main.class", "com/example/Main"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestLoadCachesClasses(t *testing.T) {
	res := &countingResolver{MapResolver: MapResolver{
		"a/A": classBytes("a/A"),
		"a/B": classBytes("a/B"),
	}}
	l := New(res)

	a1, err := l.Load("a/A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	a2, err := l.Load("a.A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a1 != a2 {
		t.Errorf("Expected the same Klass for repeated loads")
	}
	if res.calls.Load() != 1 {
		t.Errorf("Expected 1 resolve, got %d", res.calls.Load())
	}

	b, err := l.Load("a/B")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a1.ID != 1 || b.ID != 2 {
		t.Errorf("Expected ids 1 and 2, got %d and %d", a1.ID, b.ID)
	}
	if k, ok := l.ByID(b.ID); !ok || k != b {
		t.Errorf("Expected ByID to return a/B")
	}
	if _, ok := l.ByID(0); ok {
		t.Errorf("Expected id 0 to be invalid")
	}
	if _, ok := l.ByID(3); ok {
		t.Errorf("Expected id 3 to be invalid")
	}
	if loaded := l.Loaded(); len(loaded) != 2 || loaded[0] != a1 || loaded[1] != b {
		t.Errorf("Expected load order [a/A a/B], got %v", loaded)
	}
	if _, ok := l.FindLoaded("a/C"); ok {
		t.Errorf("Expected a/C not loaded")
	}
}

func TestLoadBindsMethodOwner(t *testing.T) {
	data := jvmgen.NewAssembler("M").
		AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(0, 0).Op(bytecode.OpReturn)).
		MustBuild()
	l := New(MapResolver{"M": data})
	k, err := l.Load("M")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if k.Methods[0].Owner != k.ID || k.ID == 0 {
		t.Errorf("Expected method owner %d, got %d", k.ID, k.Methods[0].Owner)
	}
}

func TestLoadConcurrent(t *testing.T) {
	res := &countingResolver{MapResolver: MapResolver{"C": classBytes("C")}}
	l := New(res)

	var wg sync.WaitGroup
	results := make([]interface{}, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := l.Load("C")
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			results[i] = k
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("Expected every goroutine to get the same Klass")
		}
	}
	if res.calls.Load() != 1 {
		t.Errorf("Expected 1 resolve, got %d", res.calls.Load())
	}
	if len(l.Loaded()) != 1 {
		t.Errorf("Expected 1 loaded class, got %d", len(l.Loaded()))
	}
}

func TestLoadErrors(t *testing.T) {
	l := New(MapResolver{
		"Wrong": classBytes("Other"),
		"Bad":   []byte{0, 1, 2, 3},
	})

	tests := []struct {
		name string
		kind errors.Kind
		code string
	}{
		{"Missing", errors.KindResolution, errors.R0304},
		{"Wrong", errors.KindResolution, errors.R0304},
		{"Bad", errors.KindParse, errors.P0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(tt.name)
			if !errors.IsKind(err, tt.kind) || !errors.HasCode(err, tt.code) {
				t.Fatalf("Expected %s %s, got %v", tt.kind, tt.code, err)
			}
			f, _ := errors.AsFault(err)
			if f.Context["class"] != tt.name {
				t.Errorf("Expected class context %s, got %v", tt.name, f.Context["class"])
			}
		})
	}

	// 失败的加载不会被缓存
	if len(l.Loaded()) != 0 {
		t.Errorf("Expected no loaded classes, got %d", len(l.Loaded()))
	}
}

// ============================================================================
// 类路径
// ============================================================================

func TestClassPathDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b", "C.class"), classBytes("a/b/C"), 0o644); err != nil {
		t.Fatal(err)
	}

	cp := NewClassPath("", dir)
	defer cp.Close()
	if got := cp.Entries(); len(got) != 1 || got[0] != dir {
		t.Errorf("Expected [%s], got %v", dir, got)
	}

	l := New(cp)
	k, err := l.Load("a.b.C")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if k.Name != "a/b/C" {
		t.Errorf("Expected a/b/C, got %s", k.Name)
	}

	if _, err := cp.Resolve("a/b/D"); !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestClassPathJar(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "lib.jar")
	f, err := os.Create(jar)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("x/Y.class")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(classBytes("x/Y")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cp := NewClassPath(t.TempDir(), "", jar)
	defer cp.Close()
	// 空条目被忽略
	if len(cp.Entries()) != 2 {
		t.Fatalf("Expected 2 entries, got %v", cp.Entries())
	}

	data, err := cp.Resolve("x/Y")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("Expected class bytes")
	}
	if _, err := cp.Resolve("x/Z"); !stderrors.Is(err, ErrClassNotFound) {
		t.Errorf("Expected ErrClassNotFound, got %v", err)
	}
}

func TestClassPathBrokenJar(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "broken.jar")
	if err := os.WriteFile(jar, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	cp := NewClassPath(jar)
	defer cp.Close()

	_, err := cp.Resolve("A")
	if err == nil {
		t.Fatalf("Expected error")
	}
	// 仍然报告为找不到，同时附带读取失败的原因
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected ErrNotExist in chain, got %v", err)
	}
	_, err = New(cp).Load("A")
	if !errors.HasCode(err, errors.R0304) {
		t.Errorf("Expected R0304, got %v", err)
	}
}

func TestChain(t *testing.T) {
	c := Chain{MapResolver{"A": classBytes("A")}, MapResolver{"B": classBytes("B")}}
	for _, name := range []string{"A", "B"} {
		if _, err := c.Resolve(name); err != nil {
			t.Errorf("Unexpected error for %s: %v", name, err)
		}
	}
	if _, err := c.Resolve("C"); !stderrors.Is(err, ErrClassNotFound) {
		t.Errorf("Expected ErrClassNotFound, got %v", err)
	}
}
