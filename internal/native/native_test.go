package native

import (
	"bytes"
	"fmt"
	"math"
	"testing"
)

func newTestRegistry() (*Registry, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return NewRegistry(&stdout, &stderr), &stdout, &stderr
}

func call(t *testing.T, r *Registry, class, name, desc string, args ...any) any {
	t.Helper()
	fn, ok := r.Lookup(class, name, desc)
	if !ok {
		t.Fatalf("Expected %s to be registered", Key(class, name, desc))
	}
	v, err := fn(args)
	if err != nil {
		t.Fatalf("Unexpected error from %s: %v", Key(class, name, desc), err)
	}
	return v
}

// ============================================================================
// 注册表
// ============================================================================

func TestRegistryClasses(t *testing.T) {
	r, _, _ := newTestRegistry()

	for _, cls := range []string{
		"java/lang/Object",
		"java/lang/System",
		"java/io/PrintStream",
		"java/lang/String",
		"java/lang/StringBuilder",
		"java/lang/Integer",
		"java/lang/RuntimeException",
		"java/lang/Math",
	} {
		if !r.HasClass(cls) {
			t.Errorf("Expected %s to be a host class", cls)
		}
	}
	if r.HasClass("com/example/Main") {
		t.Errorf("Expected com/example/Main not to be a host class")
	}

	if _, ok := r.New("java/lang/String"); ok {
		t.Errorf("Expected String not to be instantiable with new")
	}
	obj, ok := r.New("java/lang/StringBuilder")
	if !ok {
		t.Fatalf("Expected StringBuilder to be instantiable")
	}
	if _, ok := obj.(*StringBuilder); !ok {
		t.Errorf("Expected *StringBuilder, got %T", obj)
	}

	methods := r.Methods("java/lang/Math")
	if len(methods) == 0 || methods[0] != "abs:(D)D" {
		t.Errorf("Expected sorted Math methods, got %v", methods)
	}
}

func TestRegistryCustom(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.Register("a/B", "twice", "(I)I", func(args []any) (any, error) {
		return args[0].(int32) * 2, nil
	})
	r.RegisterField("a/B", "LIMIT", "I", int32(7))

	if got := call(t, r, "a/B", "twice", "(I)I", int32(21)); got != int32(42) {
		t.Errorf("Expected 42, got %v", got)
	}
	if v, ok := r.Field("a/B", "LIMIT", "I"); !ok || v != int32(7) {
		t.Errorf("Expected 7, got %v", v)
	}
	if _, ok := r.Lookup("a/B", "twice", "(J)J"); ok {
		t.Errorf("Expected lookup by descriptor to miss")
	}
}

// ============================================================================
// 输出
// ============================================================================

func TestPrintln(t *testing.T) {
	r, stdout, stderr := newTestRegistry()
	out, _ := r.Field("java/lang/System", "out", descPrintStream)
	errStream, _ := r.Field("java/lang/System", "err", descPrintStream)

	tests := []struct {
		desc string
		arg  any
		want string
	}{
		{"(I)V", int32(-5), "-5\n"},
		{"(J)V", int64(1) << 40, "1099511627776\n"},
		{"(Z)V", true, "true\n"},
		{"(C)V", Char('x'), "x\n"},
		{"(D)V", 2.5, "2.5\n"},
		{"(F)V", float32(1.1), "1.1\n"},
		{"(" + descString + ")V", "hello", "hello\n"},
		{"(" + descObject + ")V", nil, "null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			stdout.Reset()
			call(t, r, "java/io/PrintStream", "println", tt.desc, out, tt.arg)
			if got := stdout.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	stdout.Reset()
	call(t, r, "java/io/PrintStream", "print", "("+descString+")V", errStream, "oops")
	call(t, r, "java/io/PrintStream", "println", "()V", errStream)
	if stderr.String() != "oops\n" || stdout.Len() != 0 {
		t.Errorf("Expected output on stderr only, got %q / %q", stderr.String(), stdout.String())
	}
}

type fakeChars []uint16

func (c fakeChars) Chars() ([]uint16, bool) { return c, true }

func TestPrintlnCharArray(t *testing.T) {
	r, stdout, _ := newTestRegistry()
	out, _ := r.Field("java/lang/System", "out", descPrintStream)
	call(t, r, "java/io/PrintStream", "println", "([C)V", out, fakeChars{'h', 'i'})
	if stdout.String() != "hi\n" {
		t.Errorf("Expected %q, got %q", "hi\n", stdout.String())
	}
}

func TestPrintlnWrongReceiver(t *testing.T) {
	r, _, _ := newTestRegistry()
	fn, _ := r.Lookup("java/io/PrintStream", "println", "(I)V")

	if _, err := fn([]any{"not a stream", int32(1)}); err == nil {
		t.Errorf("Expected an argument error")
	} else if _, ok := err.(*ArgError); !ok {
		t.Errorf("Expected *ArgError, got %T", err)
	}
	if _, err := fn([]any{nil, int32(1)}); err == nil {
		t.Errorf("Expected a null error")
	} else if _, ok := err.(*NullError); !ok {
		t.Errorf("Expected *NullError, got %T", err)
	}
}

// ============================================================================
// 字符串
// ============================================================================

func TestStringMethods(t *testing.T) {
	r, _, _ := newTestRegistry()
	const cls = "java/lang/String"

	tests := []struct {
		name string
		desc string
		args []any
		want any
	}{
		{"length", "()I", []any{"héllo"}, int32(5)},
		{"length", "()I", []any{"😀"}, int32(2)},
		{"isEmpty", "()Z", []any{""}, true},
		{"hashCode", "()I", []any{"hello"}, int32(99162322)},
		{"charAt", "(I)C", []any{"abc", int32(1)}, Char('b')},
		{"concat", "(" + descString + ")" + descString, []any{"foo", "bar"}, "foobar"},
		{"contains", "(" + descCharSequence + ")Z", []any{"foobar", "oba"}, true},
		{"indexOf", "(" + descString + ")I", []any{"héllo", "llo"}, int32(2)},
		{"indexOf", "(" + descString + ")I", []any{"abc", "z"}, int32(-1)},
		{"substring", "(I)" + descString, []any{"abcdef", int32(2)}, "cdef"},
		{"substring", "(II)" + descString, []any{"abcdef", int32(1), int32(3)}, "bc"},
		{"toUpperCase", "()" + descString, []any{"abc"}, "ABC"},
		{"trim", "()" + descString, []any{"  x \n"}, "x"},
		{"equals", "(" + descObject + ")Z", []any{"a", "a"}, true},
		{"equals", "(" + descObject + ")Z", []any{"a", nil}, false},
		{"valueOf", "(I)" + descString, []any{int32(42)}, "42"},
		{"valueOf", "(Z)" + descString, []any{false}, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name+tt.desc, func(t *testing.T) {
			if got := call(t, r, cls, tt.name, tt.desc, tt.args...); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStringIndexErrors(t *testing.T) {
	r, _, _ := newTestRegistry()
	charAt, _ := r.Lookup("java/lang/String", "charAt", "(I)C")
	if _, err := charAt([]any{"abc", int32(3)}); err == nil {
		t.Errorf("Expected index error")
	} else if err.Error() != "index 3 out of bounds for length 3" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	sub, _ := r.Lookup("java/lang/String", "substring", "(II)"+descString)
	if _, err := sub([]any{"abc", int32(2), int32(1)}); err == nil {
		t.Errorf("Expected index error for begin > end")
	}
}

func TestStringBuilder(t *testing.T) {
	r, _, _ := newTestRegistry()
	const cls = "java/lang/StringBuilder"

	obj, _ := r.New(cls)
	call(t, r, cls, "<init>", "("+descString+")V", obj, "x=")
	call(t, r, cls, "append", "(I)"+descStringBuilder, obj, int32(3))
	call(t, r, cls, "append", "(C)"+descStringBuilder, obj, Char(','))
	call(t, r, cls, "append", "(D)"+descStringBuilder, obj, 1.0)
	call(t, r, cls, "append", "("+descObject+")"+descStringBuilder, obj, nil)

	if got := call(t, r, cls, "toString", "()"+descString, obj); got != "x=3,1.0null" {
		t.Errorf("Expected x=3,1.0null, got %v", got)
	}
	if got := call(t, r, cls, "length", "()I", obj); got != int32(11) {
		t.Errorf("Expected 11, got %v", got)
	}
	call(t, r, cls, "reverse", "()"+descStringBuilder, obj)
	if got := ToString(obj); got != "llun0.1,3=x" {
		t.Errorf("Expected reversed content, got %s", got)
	}
}

// ============================================================================
// 装箱、异常、Math
// ============================================================================

func TestBoxes(t *testing.T) {
	r, _, _ := newTestRegistry()

	boxed := call(t, r, "java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;", int32(7))
	if got := call(t, r, "java/lang/Integer", "intValue", "()I", boxed); got != int32(7) {
		t.Errorf("Expected 7, got %v", got)
	}
	other := call(t, r, "java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;", int32(7))
	if got := call(t, r, "java/lang/Integer", "equals", "("+descObject+")Z", boxed, other); got != true {
		t.Errorf("Expected boxed values to be equal")
	}
	if ToString(boxed) != "7" {
		t.Errorf("Expected 7, got %s", ToString(boxed))
	}

	tests := []struct {
		value any
		want  int32
	}{
		{int32(-3), -3},
		{int64(1) << 32, 1},
		{true, 1231},
		{false, 1237},
		{Char('A'), 65},
	}
	for _, tt := range tests {
		if got := boxHash(tt.value); got != tt.want {
			t.Errorf("Expected %d, got %d", tt.want, got)
		}
	}
}

func TestThrowable(t *testing.T) {
	r, _, _ := newTestRegistry()
	const cls = "java/lang/IllegalStateException"

	obj, ok := r.New(cls)
	if !ok {
		t.Fatalf("Expected %s to be instantiable", cls)
	}
	call(t, r, cls, "<init>", "("+descString+")V", obj, "bad state")
	if got := call(t, r, cls, "getMessage", "()"+descString, obj); got != "bad state" {
		t.Errorf("Expected bad state, got %v", got)
	}
	if got := ToString(obj); got != "java.lang.IllegalStateException: bad state" {
		t.Errorf("Unexpected string %q", got)
	}

	bare := &Throwable{Class: "java/lang/RuntimeException"}
	if got := ToString(bare); got != "java.lang.RuntimeException" {
		t.Errorf("Unexpected string %q", got)
	}
}

func TestMath(t *testing.T) {
	r, _, _ := newTestRegistry()
	const cls = "java/lang/Math"

	if got := call(t, r, cls, "abs", "(I)I", int32(-4)); got != int32(4) {
		t.Errorf("Expected 4, got %v", got)
	}
	if got := call(t, r, cls, "max", "(JJ)J", int64(3), int64(9)); got != int64(9) {
		t.Errorf("Expected 9, got %v", got)
	}
	if got := call(t, r, cls, "sqrt", "(D)D", 16.0); got != 4.0 {
		t.Errorf("Expected 4, got %v", got)
	}
	if got := call(t, r, cls, "pow", "(DD)D", 2.0, 10.0); got != 1024.0 {
		t.Errorf("Expected 1024, got %v", got)
	}
}

// ============================================================================
// 格式化
// ============================================================================

func TestFormatDouble(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{1, "1.0"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{1e7, "1.0E7"},
		{123456789, "1.23456789E8"},
		{1e-4, "1.0E-4"},
		{0.001, "0.001"},
		{math.Copysign(0, -1), "-0.0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDouble(tt.value); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	if got := FormatFloat(1.1); got != "1.1" {
		t.Errorf("Expected 1.1, got %s", got)
	}
}

func TestToString(t *testing.T) {
	obj := &HostObject{Class: "java/lang/Object"}
	tests := []struct {
		value any
		want  string
	}{
		{nil, "null"},
		{int32(42), "42"},
		{int64(-1), "-1"},
		{true, "true"},
		{Char(0x263A), "☺"},
		{"s", "s"},
	}
	for _, tt := range tests {
		if got := ToString(tt.value); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}

	got := ToString(obj)
	want := fmt.Sprintf("java.lang.Object@%x", IdentityHash(obj))
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if IdentityHash(obj) != IdentityHash(obj) {
		t.Errorf("Expected a stable identity hash")
	}
	if IdentityHash(nil) != 0 {
		t.Errorf("Expected 0 for null")
	}
}

func TestJavaStrings(t *testing.T) {
	if JavaLength("a😀b") != 4 {
		t.Errorf("Expected 4, got %d", JavaLength("a😀b"))
	}
	if JavaHashCode("") != 0 {
		t.Errorf("Expected 0 for empty string")
	}
	if JavaHashCode("Aa") != JavaHashCode("BB") {
		t.Errorf("Expected Aa and BB to collide")
	}
}
