package vm

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/jvmgen"
	"github.com/tangzhangming/sjvm/internal/loader"
	"github.com/tangzhangming/sjvm/internal/native"
	"github.com/tangzhangming/sjvm/internal/profiler"
)

const (
	descString = "Ljava/lang/String;"
	mainDesc   = "([Ljava/lang/String;)V"
)

type testEnv struct {
	vm     *VM
	in     *Interpreter
	stdout *bytes.Buffer
}

func newEnv(classes map[string][]byte, opts ...Option) *testEnv {
	var stdout, stderr bytes.Buffer
	v := New(loader.New(loader.MapResolver(classes)), native.NewRegistry(&stdout, &stderr), opts...)
	return &testEnv{vm: v, in: v.NewInterpreter(), stdout: &stdout}
}

// frame 为已有方法建帧
func (e *testEnv) frame(t *testing.T, class, name, descriptor string) *Frame {
	t.Helper()
	k, err := e.vm.Loader().Load(class)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	m, ok := k.FindMethod(name, descriptor)
	if !ok {
		t.Fatalf("Expected method %s.%s:%s", class, name, descriptor)
	}
	f, err := NewFrame(k, m)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return f
}

// staticMethod 只有一个静态方法 f()V 的类
func staticMethod(name string, code *jvmgen.Code) map[string][]byte {
	return map[string][]byte{
		name: jvmgen.NewAssembler(name).AddMethod(jvmgen.AccStatic, "f", "()V", code).MustBuild(),
	}
}

func expectFault(t *testing.T, err error, kind errors.Kind, code string) *errors.Fault {
	t.Helper()
	f, ok := errors.AsFault(err)
	if !ok {
		t.Fatalf("Expected a fault, got %v", err)
	}
	if f.Kind != kind || f.Code != code {
		t.Fatalf("Expected %s[%s], got %v", kind, code, err)
	}
	return f
}

// ============================================================================
// 端到端场景
// ============================================================================

func TestReturnOnly(t *testing.T) {
	env := newEnv(staticMethod("A", jvmgen.NewCode(0, 0).Op(bytecode.OpReturn)))
	f := env.frame(t, "A", "f", "()V")

	if err := env.in.Execute(f); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	th := env.in.Thread()
	if th.Depth() != 0 || th.Top() != nil {
		t.Errorf("Expected empty call stack, got depth %d", th.Depth())
	}
	if th.State() != StateTerminated {
		t.Errorf("Expected terminated, got %s", th.State())
	}
	stats := env.vm.Stats()
	if stats.Instructions != 1 || stats.Invocations != 1 {
		t.Errorf("Expected 1 instruction and 1 invocation, got %+v", stats)
	}
}

func TestAddAndStore(t *testing.T) {
	code := jvmgen.NewCode(2, 1).
		Bipush(5).
		Bipush(3).
		Op(bytecode.OpIadd, bytecode.OpIstore0, bytecode.OpReturn)
	env := newEnv(staticMethod("A", code))
	f := env.frame(t, "A", "f", "()V")

	if err := env.in.Execute(f); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Locals[0] != Int(8) {
		t.Errorf("Expected int(8), got %s", f.Locals[0])
	}
	if f.StackDepth() != 0 {
		t.Errorf("Expected empty operand stack, got %v", f.Stack())
	}
}

func byteArrayCode(index int8) *jvmgen.Code {
	return jvmgen.NewCode(3, 1).
		Op(bytecode.OpIconst2, bytecode.OpNewarray).U1(uint8(classfile.TByte)).
		Op(bytecode.OpAstore0, bytecode.OpAload0, bytecode.OpIconst0).
		Bipush(9).
		Op(bytecode.OpBastore, bytecode.OpAload0).
		Bipush(index).
		Op(bytecode.OpBaload, bytecode.OpReturn)
}

func TestByteArrayStoreLoad(t *testing.T) {
	env := newEnv(staticMethod("A", byteArrayCode(0)))
	f := env.frame(t, "A", "f", "()V")

	if err := env.in.Execute(f); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	top, ok := f.Peek()
	if !ok || top != Int(9) {
		t.Errorf("Expected int(9) on top, got %s", top)
	}
	arr, ok := f.Locals[0].Ref.(*ArrayObject)
	if !ok || arr.Len() != 2 || arr.Class != "[B" {
		t.Errorf("Expected a [B of length 2, got %v", f.Locals[0])
	}
}

func TestByteArrayLoadAtLength(t *testing.T) {
	env := newEnv(staticMethod("A", byteArrayCode(2)))
	f := env.frame(t, "A", "f", "()V")

	fault := expectFault(t, env.in.Execute(f), errors.KindBounds, errors.R0100)
	if fault.Context["index"] != int32(2) || fault.Context["length"] != 2 {
		t.Errorf("Unexpected context %v", fault.Context)
	}
	if len(fault.Frames) != 1 || fault.Frames[0].MethodName != "f" {
		t.Errorf("Expected a one-frame trace at A.f, got %v", fault.Frames)
	}
	if env.in.Thread().State() != StateFaulted || env.in.Thread().Depth() != 0 {
		t.Errorf("Expected faulted thread with empty stack")
	}
}

func TestInvokestaticLoadsCallee(t *testing.T) {
	main := jvmgen.NewAssembler("Main")
	add := main.Methodref("Helper", "add", "(II)I")
	main.AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(2, 1).
		Op(bytecode.OpIconst3, bytecode.OpIconst4).
		Ref(bytecode.OpInvokestatic, add).
		Op(bytecode.OpIstore0, bytecode.OpReturn))

	helper := jvmgen.NewAssembler("Helper").
		AddMethod(jvmgen.AccStatic, "add", "(II)I", jvmgen.NewCode(2, 2).
			Op(bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIadd, bytecode.OpIreturn))

	env := newEnv(map[string][]byte{"Main": main.MustBuild(), "Helper": helper.MustBuild()})
	f := env.frame(t, "Main", "f", "()V")
	if _, ok := env.vm.Loader().FindLoaded("Helper"); ok {
		t.Fatalf("Expected Helper not loaded before execution")
	}

	if err := env.in.Execute(f); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := env.vm.Loader().FindLoaded("Helper"); !ok {
		t.Errorf("Expected Helper to be loaded by invokestatic")
	}
	if f.Locals[0] != Int(7) {
		t.Errorf("Expected int(7), got %s", f.Locals[0])
	}
	if got := env.vm.Stats().Invocations; got != 2 {
		t.Errorf("Expected 2 invocations, got %d", got)
	}
}

// ============================================================================
// 故障
// ============================================================================

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		code *jvmgen.Code
		kind errors.Kind
		err  string
	}{
		{"type mismatch", jvmgen.NewCode(2, 0).Op(bytecode.OpIconst0, bytecode.OpFconst1, bytecode.OpIadd), errors.KindType, errors.R0201},
		{"int where long expected", jvmgen.NewCode(2, 0).Op(bytecode.OpIconst1, bytecode.OpIconst1, bytecode.OpLadd), errors.KindType, errors.R0201},
		{"stack overflow", jvmgen.NewCode(1, 0).Op(bytecode.OpIconst0, bytecode.OpIconst0), errors.KindBounds, errors.R0400},
		{"stack underflow", jvmgen.NewCode(2, 0).Op(bytecode.OpIadd), errors.KindBounds, errors.R0202},
		{"local out of range", jvmgen.NewCode(1, 1).Op(bytecode.OpIload3), errors.KindBounds, errors.R0102},
		{"unset local", jvmgen.NewCode(1, 1).Op(bytecode.OpIload0), errors.KindType, errors.R0201},
		{"divide by zero", jvmgen.NewCode(2, 0).Op(bytecode.OpIconst1, bytecode.OpIconst0, bytecode.OpIdiv), errors.KindRuntime, errors.R0200},
		{"null array", jvmgen.NewCode(1, 0).Op(bytecode.OpAconstNull, bytecode.OpArraylength), errors.KindRuntime, errors.R0300},
		{"negative size", jvmgen.NewCode(1, 0).Op(bytecode.OpIconstM1, bytecode.OpNewarray).U1(uint8(classfile.TInt)), errors.KindBounds, errors.R0101},
		{"wrong array kind", jvmgen.NewCode(2, 0).Op(bytecode.OpIconst1, bytecode.OpNewarray).U1(uint8(classfile.TInt)).Op(bytecode.OpIconst0, bytecode.OpBaload), errors.KindType, errors.R0201},
		{"unsupported", jvmgen.NewCode(0, 0).Op(bytecode.OpJsr).S2(3), errors.KindUnsupportedInstruction, errors.R0002},
		{"fell off end", jvmgen.NewCode(0, 0).Op(bytecode.OpNop), errors.KindRuntime, errors.R0004},
		{"throw null", jvmgen.NewCode(1, 0).Op(bytecode.OpAconstNull, bytecode.OpAthrow), errors.KindRuntime, errors.R0300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(staticMethod("A", tt.code))
			err := env.in.Execute(env.frame(t, "A", "f", "()V"))
			fault := expectFault(t, err, tt.kind, tt.err)
			if _, ok := fault.Context["thread"]; !ok {
				t.Errorf("Expected thread id in context, got %v", fault.Context)
			}
			if env.in.Thread().State() != StateFaulted {
				t.Errorf("Expected faulted thread, got %s", env.in.Thread().State())
			}
		})
	}
}

func TestCallDepthLimit(t *testing.T) {
	a := jvmgen.NewAssembler("R")
	self := a.Methodref("R", "f", "()V")
	a.AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(0, 0).
		Ref(bytecode.OpInvokestatic, self).
		Op(bytecode.OpReturn))

	env := newEnv(map[string][]byte{"R": a.MustBuild()}, WithMaxCallDepth(8))
	_, err := env.in.Invoke("R", "f", "()V")
	fault := expectFault(t, err, errors.KindRuntime, errors.R0402)
	if len(fault.Frames) != 8 {
		t.Errorf("Expected 8 frames in the trace, got %d", len(fault.Frames))
	}

	// 故障后解释器可以继续使用
	if env.in.Thread().Depth() != 0 {
		t.Errorf("Expected empty stack after fault, got %d", env.in.Thread().Depth())
	}
}

func TestMissingMembers(t *testing.T) {
	a := jvmgen.NewAssembler("A")
	missing := a.Methodref("A", "nope", "()V")
	field := a.Fieldref("A", "nope", "I")
	a.AddMethod(jvmgen.AccStatic, "call", "()V", jvmgen.NewCode(0, 0).
		Ref(bytecode.OpInvokestatic, missing).
		Op(bytecode.OpReturn))
	a.AddMethod(jvmgen.AccStatic, "read", "()V", jvmgen.NewCode(1, 0).
		Ref(bytecode.OpGetstatic, field).
		Op(bytecode.OpReturn))
	env := newEnv(map[string][]byte{"A": a.MustBuild()})

	_, err := env.in.Invoke("A", "call", "()V")
	expectFault(t, err, errors.KindResolution, errors.R0305)
	_, err = env.in.Invoke("A", "read", "()V")
	expectFault(t, err, errors.KindResolution, errors.R0302)
	_, err = env.in.Invoke("Missing", "f", "()V")
	expectFault(t, err, errors.KindResolution, errors.R0304)
	err = env.in.RunMain("A", nil)
	expectFault(t, err, errors.KindResolution, errors.R0307)
}

// ============================================================================
// 算术与转换
// ============================================================================

func TestInvokeArithmetic(t *testing.T) {
	a := jvmgen.NewAssembler("M")
	a.AddMethod(jvmgen.AccStatic, "lcmp", "(JJ)I", jvmgen.NewCode(4, 4).
		Op(bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLcmp, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "d2i", "(D)I", jvmgen.NewCode(2, 2).
		Op(bytecode.OpDload0, bytecode.OpD2i, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "i2b", "(I)I", jvmgen.NewCode(1, 1).
		Op(bytecode.OpIload0, bytecode.OpI2b, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "idiv", "(II)I", jvmgen.NewCode(2, 2).
		Op(bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIdiv, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "ladd", "(JJ)J", jvmgen.NewCode(4, 4).
		Op(bytecode.OpLload0, bytecode.OpLload2, bytecode.OpLadd, bytecode.OpLreturn))
	a.AddMethod(jvmgen.AccStatic, "ishr", "(II)I", jvmgen.NewCode(2, 2).
		Op(bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIushr, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "dcmpg", "(DD)I", jvmgen.NewCode(4, 4).
		Op(bytecode.OpDload0, bytecode.OpDload2, bytecode.OpDcmpg, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "isPositive", "(I)Z", jvmgen.NewCode(1, 1).
		Op(bytecode.OpIload0, bytecode.OpIfgt).S2(5).
		Op(bytecode.OpIconst0, bytecode.OpIreturn, bytecode.OpIconst1, bytecode.OpIreturn))
	env := newEnv(map[string][]byte{"M": a.MustBuild()})

	tests := []struct {
		name string
		desc string
		args []any
		want any
	}{
		{"lcmp", "(JJ)I", []any{int64(1), int64(2)}, int32(-1)},
		{"lcmp", "(JJ)I", []any{int64(math.MaxInt64), int64(-1)}, int32(1)},
		{"d2i", "(D)I", []any{1e20}, int32(math.MaxInt32)},
		{"d2i", "(D)I", []any{math.NaN()}, int32(0)},
		{"d2i", "(D)I", []any{-2.9}, int32(-2)},
		{"i2b", "(I)I", []any{int32(200)}, int32(-56)},
		{"idiv", "(II)I", []any{int32(math.MinInt32), int32(-1)}, int32(math.MinInt32)},
		{"idiv", "(II)I", []any{int32(-7), int32(2)}, int32(-3)},
		{"ladd", "(JJ)J", []any{int64(math.MaxInt64), int64(1)}, int64(math.MinInt64)},
		{"ishr", "(II)I", []any{int32(-1), int32(28)}, int32(15)},
		{"dcmpg", "(DD)I", []any{math.NaN(), 1.0}, int32(1)},
		{"isPositive", "(I)Z", []any{int32(3)}, true},
		{"isPositive", "(I)Z", []any{int32(-3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.in.Invoke("M", tt.name, tt.desc, tt.args...)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := env.in.Invoke("M", "idiv", "(II)I", int32(1)); !errors.IsKind(err, errors.KindType) {
		t.Errorf("Expected TypeError for missing argument, got %v", err)
	}
}

func TestLdcConstants(t *testing.T) {
	a := jvmgen.NewAssembler("C")
	a.AddMethod(jvmgen.AccStatic, "big", "()J", jvmgen.NewCode(2, 0).
		Ref(bytecode.OpLdc2W, a.Long(1<<40)).
		Op(bytecode.OpLreturn))
	a.AddMethod(jvmgen.AccStatic, "pi", "()F", jvmgen.NewCode(1, 0).
		Ldc(a.Float(3.5)).
		Op(bytecode.OpFreturn))
	a.AddMethod(jvmgen.AccStatic, "greeting", "()"+descString, jvmgen.NewCode(1, 0).
		Ldc(a.String("héllo")).
		Op(bytecode.OpAreturn))
	a.AddMethod(jvmgen.AccStatic, "bad", "()I", jvmgen.NewCode(1, 0).
		Ldc(a.Utf8("raw")).
		Op(bytecode.OpIreturn))
	env := newEnv(map[string][]byte{"C": a.MustBuild()})

	if got, _ := env.in.Invoke("C", "big", "()J"); got != int64(1<<40) {
		t.Errorf("Expected %d, got %v", int64(1<<40), got)
	}
	if got, _ := env.in.Invoke("C", "pi", "()F"); got != float32(3.5) {
		t.Errorf("Expected 3.5, got %v", got)
	}
	if got, _ := env.in.Invoke("C", "greeting", "()"+descString); got != "héllo" {
		t.Errorf("Expected héllo, got %v", got)
	}
	_, err := env.in.Invoke("C", "bad", "()I")
	expectFault(t, err, errors.KindType, errors.R0201)
}

// ============================================================================
// 宿主类
// ============================================================================

func helloWorld() []byte {
	a := jvmgen.NewAssembler("Hello").SetSourceFile("Hello.java")
	out := a.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := a.Methodref("java/io/PrintStream", "println", "("+descString+")V")
	msg := a.String("Hello, World")
	a.AddMethod(jvmgen.AccPublic|jvmgen.AccStatic, "main", mainDesc, jvmgen.NewCode(2, 1).
		Line(3).
		Ref(bytecode.OpGetstatic, out).
		Ldc(msg).
		Ref(bytecode.OpInvokevirtual, printlnRef).
		Op(bytecode.OpReturn))
	return a.MustBuild()
}

func TestRunMainPrintln(t *testing.T) {
	env := newEnv(map[string][]byte{"Hello": helloWorld()})
	if err := env.in.RunMain("Hello", []string{"a"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := env.stdout.String(); got != "Hello, World\n" {
		t.Errorf("Expected %q, got %q", "Hello, World\n", got)
	}
	if got := env.vm.Stats().NativeCalls; got != 1 {
		t.Errorf("Expected 1 native call, got %d", got)
	}
}

func TestStringBuilderChain(t *testing.T) {
	a := jvmgen.NewAssembler("S")
	const sb = "java/lang/StringBuilder"
	a.AddMethod(jvmgen.AccStatic, "build", "(I)"+descString, jvmgen.NewCode(3, 1).
		Ref(bytecode.OpNew, a.Class(sb)).
		Op(bytecode.OpDup).
		Ref(bytecode.OpInvokespecial, a.Methodref(sb, "<init>", "()V")).
		Ldc(a.String("n=")).
		Ref(bytecode.OpInvokevirtual, a.Methodref(sb, "append", "("+descString+")L"+sb+";")).
		Op(bytecode.OpIload0).
		Ref(bytecode.OpInvokevirtual, a.Methodref(sb, "append", "(I)L"+sb+";")).
		Ref(bytecode.OpInvokevirtual, a.Methodref(sb, "toString", "()"+descString)).
		Op(bytecode.OpAreturn))
	env := newEnv(map[string][]byte{"S": a.MustBuild()})

	got, err := env.in.Invoke("S", "build", "(I)"+descString, int32(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "n=42" {
		t.Errorf("Expected n=42, got %v", got)
	}
}

// ============================================================================
// 对象、字段、类初始化
// ============================================================================

func TestObjectsAndFields(t *testing.T) {
	counter := jvmgen.NewAssembler("Counter")
	n := counter.Fieldref("Counter", "n", "I")
	counter.AddField(0, "n", "I")
	counter.AddMethod(0, "<init>", "()V", jvmgen.NewCode(1, 1).
		Op(bytecode.OpAload0).
		Ref(bytecode.OpInvokespecial, counter.Methodref("java/lang/Object", "<init>", "()V")).
		Op(bytecode.OpReturn))
	counter.AddMethod(0, "inc", "()V", jvmgen.NewCode(3, 1).
		Op(bytecode.OpAload0, bytecode.OpDup).
		Ref(bytecode.OpGetfield, n).
		Op(bytecode.OpIconst1, bytecode.OpIadd).
		Ref(bytecode.OpPutfield, n).
		Op(bytecode.OpReturn))

	main := jvmgen.NewAssembler("Main")
	inc := main.Methodref("Counter", "inc", "()V")
	main.AddMethod(jvmgen.AccStatic, "run", "()I", jvmgen.NewCode(2, 1).
		Ref(bytecode.OpNew, main.Class("Counter")).
		Op(bytecode.OpDup).
		Ref(bytecode.OpInvokespecial, main.Methodref("Counter", "<init>", "()V")).
		Op(bytecode.OpAstore0, bytecode.OpAload0).
		Ref(bytecode.OpInvokevirtual, inc).
		Op(bytecode.OpAload0).
		Ref(bytecode.OpInvokevirtual, inc).
		Op(bytecode.OpAload0).
		Ref(bytecode.OpGetfield, main.Fieldref("Counter", "n", "I")).
		Op(bytecode.OpIreturn))

	env := newEnv(map[string][]byte{"Counter": counter.MustBuild(), "Main": main.MustBuild()})
	got, err := env.in.Invoke("Main", "run", "()I")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != int32(2) {
		t.Errorf("Expected 2, got %v", got)
	}
}

func TestStaticInitializer(t *testing.T) {
	s := jvmgen.NewAssembler("S")
	x := s.Fieldref("S", "X", "I")
	s.AddField(jvmgen.AccStatic, "X", "I")
	s.AddField(jvmgen.AccStatic, "Y", "J")
	s.AddMethod(jvmgen.AccStatic, "<clinit>", "()V", jvmgen.NewCode(1, 0).
		Bipush(42).
		Ref(bytecode.OpPutstatic, x).
		Op(bytecode.OpReturn))

	main := jvmgen.NewAssembler("Main")
	main.AddMethod(jvmgen.AccStatic, "get", "()I", jvmgen.NewCode(1, 0).
		Ref(bytecode.OpGetstatic, main.Fieldref("S", "X", "I")).
		Op(bytecode.OpIreturn))

	env := newEnv(map[string][]byte{"S": s.MustBuild(), "Main": main.MustBuild()})
	for i := 0; i < 2; i++ {
		got, err := env.in.Invoke("Main", "get", "()I")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != int32(42) {
			t.Errorf("Expected 42, got %v", got)
		}
	}
	if got := env.vm.Stats().ClassInits; got != 1 {
		t.Errorf("Expected 1 class init, got %d", got)
	}
	if v, ok := env.vm.Static("S", "Y"); !ok || len(v) != 2 || JoinLong(v[0], v[1]) != 0 {
		t.Errorf("Expected zeroed long static, got %v", v)
	}
}

func TestCustomException(t *testing.T) {
	const rte = "java/lang/RuntimeException"
	ex := jvmgen.NewAssembler("MyEx").SetSuper(rte)
	ex.AddMethod(0, "<init>", "("+descString+")V", jvmgen.NewCode(2, 2).
		Op(bytecode.OpAload0, bytecode.OpAload1).
		Ref(bytecode.OpInvokespecial, ex.Methodref(rte, "<init>", "("+descString+")V")).
		Op(bytecode.OpReturn))

	main := jvmgen.NewAssembler("Main")
	newEx := func() *jvmgen.Code {
		return jvmgen.NewCode(3, 0).
			Ref(bytecode.OpNew, main.Class("MyEx")).
			Op(bytecode.OpDup).
			Ldc(main.String("boom")).
			Ref(bytecode.OpInvokespecial, main.Methodref("MyEx", "<init>", "("+descString+")V"))
	}
	main.AddMethod(jvmgen.AccStatic, "message", "()"+descString, newEx().
		Ref(bytecode.OpInvokevirtual, main.Methodref("MyEx", "getMessage", "()"+descString)).
		Op(bytecode.OpAreturn))
	main.AddMethod(jvmgen.AccStatic, "isRuntime", "()Z", newEx().
		Ref(bytecode.OpInstanceof, main.Class(rte)).
		Op(bytecode.OpIreturn))
	main.AddMethod(jvmgen.AccStatic, "fail", "()V", newEx().
		Op(bytecode.OpAthrow))

	env := newEnv(map[string][]byte{"MyEx": ex.MustBuild(), "Main": main.MustBuild()})

	got, err := env.in.Invoke("Main", "message", "()"+descString)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "boom" {
		t.Errorf("Expected boom, got %v", got)
	}

	got, err = env.in.Invoke("Main", "isRuntime", "()Z")
	if err != nil || got != true {
		t.Errorf("Expected MyEx to be a RuntimeException, got %v (%v)", got, err)
	}

	_, err = env.in.Invoke("Main", "fail", "()V")
	fault := expectFault(t, err, errors.KindRuntime, errors.R0001)
	if !strings.Contains(fault.Message, "MyEx: boom") {
		t.Errorf("Expected message to name the exception, got %q", fault.Message)
	}
}

// ============================================================================
// invokedynamic
// ============================================================================

// metafactory LambdaMetafactory.metafactory 的方法句柄
func metafactory(a *jvmgen.Assembler) uint16 {
	return a.MethodHandle(classfile.RefInvokeStatic, a.Methodref("java/lang/invoke/LambdaMetafactory", "metafactory",
		"(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;"+
			"Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)"+
			"Ljava/lang/invoke/CallSite;"))
}

func TestLambda(t *testing.T) {
	const iface = "java/util/function/IntUnaryOperator"
	a := jvmgen.NewAssembler("L")
	meta := metafactory(a)
	impl := a.MethodHandle(classfile.RefInvokeStatic, a.Methodref("L", "twice", "(I)I"))
	bsm := a.BootstrapMethod(meta, a.MethodType("(I)I"), impl, a.MethodType("(I)I"))
	site := a.InvokeDynamic(bsm, "applyAsInt", "()L"+iface+";")

	a.AddMethod(jvmgen.AccStatic|jvmgen.AccPrivate|jvmgen.AccSynthetic, "twice", "(I)I", jvmgen.NewCode(2, 1).
		Op(bytecode.OpIload0, bytecode.OpIconst2, bytecode.OpImul, bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "apply", "(I)I", jvmgen.NewCode(2, 1).
		Ref(bytecode.OpInvokedynamic, site).
		Op(bytecode.OpIload0).
		InvokeInterface(a.InterfaceMethodref(iface, "applyAsInt", "(I)I"), 2).
		Op(bytecode.OpIreturn))

	env := newEnv(map[string][]byte{"L": a.MustBuild()})
	for _, n := range []int32{21, -4} {
		got, err := env.in.Invoke("L", "apply", "(I)I", n)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != n*2 {
			t.Errorf("Expected %d, got %v", n*2, got)
		}
	}
	if got := env.vm.Stats().CallSites; got != 1 {
		t.Errorf("Expected call site linked once, got %d", got)
	}
}

func TestStringConcat(t *testing.T) {
	a := jvmgen.NewAssembler("K")
	bsm := a.BootstrapMethod(
		a.MethodHandle(classfile.RefInvokeStatic, a.Methodref("java/lang/invoke/StringConcatFactory", "makeConcatWithConstants",
			"(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;"+
				"Ljava/lang/String;[Ljava/lang/Object;)Ljava/lang/invoke/CallSite;")),
		a.String("x=\u0001, y=\u0001\u0002"),
		a.String("!"),
	)
	site := a.InvokeDynamic(bsm, "makeConcatWithConstants", "(ID)"+descString)
	a.AddMethod(jvmgen.AccStatic, "show", "(ID)"+descString, jvmgen.NewCode(3, 3).
		Op(bytecode.OpIload0, bytecode.OpDload1).
		Ref(bytecode.OpInvokedynamic, site).
		Op(bytecode.OpAreturn))

	env := newEnv(map[string][]byte{"K": a.MustBuild()})
	got, err := env.in.Invoke("K", "show", "(ID)"+descString, int32(1), 2.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "x=1, y=2.5!" {
		t.Errorf("Expected x=1, y=2.5!, got %v", got)
	}
}

func TestUnsupportedBootstrap(t *testing.T) {
	a := jvmgen.NewAssembler("U")
	bsm := a.BootstrapMethod(a.MethodHandle(classfile.RefInvokeStatic, a.Methodref("my/Factory", "make", "()V")))
	site := a.InvokeDynamic(bsm, "run", "()Ljava/lang/Runnable;")
	a.AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(1, 0).
		Ref(bytecode.OpInvokedynamic, site).
		Op(bytecode.OpReturn))

	env := newEnv(map[string][]byte{"U": a.MustBuild()})
	_, err := env.in.Invoke("U", "f", "()V")
	expectFault(t, err, errors.KindResolution, errors.R0306)
}

// ============================================================================
// 分析器
// ============================================================================

func TestProfilerIntegration(t *testing.T) {
	p := profiler.New()
	env := newEnv(map[string][]byte{"Hello": helloWorld()}, WithProfiler(p))
	if err := env.in.RunMain("Hello", nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	profile := p.Profile()
	if profile.Instructions != env.vm.Stats().Instructions {
		t.Errorf("Expected %d instructions, got %d", env.vm.Stats().Instructions, profile.Instructions)
	}
	if len(profile.Methods) != 1 || profile.Methods[0].Name != "Hello.main:"+mainDesc {
		t.Errorf("Expected Hello.main in the profile, got %v", profile.Methods)
	}
}

func TestLambdaDefaultMethod(t *testing.T) {
	h := jvmgen.NewAssembler("H").SetAccess(jvmgen.AccPublic | jvmgen.AccInterface | jvmgen.AccAbstract)

	// interface G extends H { int run(); default int twice() { return run() + run(); } }
	g := jvmgen.NewAssembler("G").SetAccess(jvmgen.AccPublic | jvmgen.AccInterface | jvmgen.AccAbstract).AddInterface("H")
	run := g.InterfaceMethodref("G", "run", "()I")
	g.AddMethodAttributes(jvmgen.AccPublic|jvmgen.AccAbstract, "run", "()I")
	g.AddMethod(jvmgen.AccPublic, "twice", "()I", jvmgen.NewCode(2, 1).
		Op(bytecode.OpAload0).
		InvokeInterface(run, 1).
		Op(bytecode.OpAload0).
		InvokeInterface(run, 1).
		Op(bytecode.OpIadd, bytecode.OpIreturn))

	a := jvmgen.NewAssembler("L")
	impl := a.MethodHandle(classfile.RefInvokeStatic, a.Methodref("L", "seven", "()I"))
	bsm := a.BootstrapMethod(metafactory(a), a.MethodType("()I"), impl, a.MethodType("()I"))
	site := a.InvokeDynamic(bsm, "run", "()LG;")
	a.AddMethod(jvmgen.AccStatic|jvmgen.AccPrivate|jvmgen.AccSynthetic, "seven", "()I", jvmgen.NewCode(1, 0).
		Bipush(7).
		Op(bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "twice", "()I", jvmgen.NewCode(1, 0).
		Ref(bytecode.OpInvokedynamic, site).
		InvokeInterface(a.InterfaceMethodref("G", "twice", "()I"), 1).
		Op(bytecode.OpIreturn))
	a.AddMethod(jvmgen.AccStatic, "isH", "()Z", jvmgen.NewCode(1, 0).
		Ref(bytecode.OpInvokedynamic, site).
		Ref(bytecode.OpInstanceof, a.Class("H")).
		Op(bytecode.OpIreturn))

	env := newEnv(map[string][]byte{"H": h.MustBuild(), "G": g.MustBuild(), "L": a.MustBuild()})

	got, err := env.in.Invoke("L", "twice", "()I")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != int32(14) {
		t.Errorf("Expected 14, got %v", got)
	}

	// 超接口
	got, err = env.in.Invoke("L", "isH", "()Z")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("Expected lambda to be an instance of H, got %v", got)
	}
}

// ============================================================================
// 分支与重入
// ============================================================================

func TestIfIcmpeqBranch(t *testing.T) {
	tests := []struct {
		name string
		a, b int8
		want int32
	}{
		{"taken", 4, 4, 5},
		{"not taken", 4, 3, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 4: if_icmpeq +10 -> 14
			code := jvmgen.NewCode(2, 1).
				Bipush(tt.a).
				Bipush(tt.b).
				Op(bytecode.OpIfIcmpeq).S2(10).
				Bipush(7).
				Op(bytecode.OpIstore0, bytecode.OpReturn).
				Op(bytecode.OpNop, bytecode.OpNop, bytecode.OpNop).
				Op(bytecode.OpIconst5, bytecode.OpIstore0, bytecode.OpReturn)
			env := newEnv(staticMethod("B", code))
			f := env.frame(t, "B", "f", "()V")

			if err := env.in.Execute(f); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if f.Locals[0] != Int(tt.want) {
				t.Errorf("Expected int(%d), got %s", tt.want, f.Locals[0])
			}
		})
	}
}

func TestReinvocation(t *testing.T) {
	a := jvmgen.NewAssembler("Sum")
	sum := a.Methodref("Sum", "sum", "(I)I")

	// int sum(int n) { int acc = 0; while (n > 0) { acc += n; n--; } return acc; }
	code := jvmgen.NewCode(2, 2)
	loop, done := code.NewLabel(), code.NewLabel()
	code.Op(bytecode.OpIconst0, bytecode.OpIstore1).
		Mark(loop).
		Op(bytecode.OpIload0).
		Jump(bytecode.OpIfle, done).
		Op(bytecode.OpIload1, bytecode.OpIload0, bytecode.OpIadd, bytecode.OpIstore1).
		Op(bytecode.OpIinc).U1(0).U1(0xFF).
		Jump(bytecode.OpGoto, loop).
		Mark(done).
		Op(bytecode.OpIload1, bytecode.OpIreturn)
	a.AddMethod(jvmgen.AccStatic, "sum", "(I)I", code)
	a.AddMethod(jvmgen.AccStatic, "both", "()I", jvmgen.NewCode(2, 0).
		Op(bytecode.OpIconst4).
		Ref(bytecode.OpInvokestatic, sum).
		Op(bytecode.OpIconst4).
		Ref(bytecode.OpInvokestatic, sum).
		Op(bytecode.OpIadd, bytecode.OpIreturn))
	env := newEnv(map[string][]byte{"Sum": a.MustBuild()})

	first, err := env.in.Invoke("Sum", "sum", "(I)I", int32(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := env.in.Invoke("Sum", "sum", "(I)I", int32(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first != int32(10) || second != first {
		t.Errorf("Expected 10 twice, got %v and %v", first, second)
	}

	// 同一次执行中再次调用
	got, err := env.in.Invoke("Sum", "both", "()I")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != int32(20) {
		t.Errorf("Expected 20, got %v", got)
	}
}

func TestMalformedMultiArray(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		dims       uint8
	}{
		{"no element type", "[", 1},
		{"too many dimensions", "[I", 2},
		{"zero dimensions", "[[I", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := jvmgen.NewAssembler("A")
			a.AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(2, 0).
				Op(bytecode.OpIconst1, bytecode.OpIconst1).
				Ref(bytecode.OpMultianewarray, a.Class(tt.descriptor)).U1(tt.dims).
				Op(bytecode.OpReturn))
			env := newEnv(map[string][]byte{"A": a.MustBuild()})

			_, err := env.in.Invoke("A", "f", "()V")
			expectFault(t, err, errors.KindType, errors.R0201)
		})
	}
}

// ============================================================================
// 线程状态
// ============================================================================

// recordStates 记录线程进入的每个状态
func recordStates(th *Thread) *[]string {
	var states []string
	th.Observe(func(from, to ThreadState) {
		states = append(states, to.String())
	})
	return &states
}

func TestThreadStateTransitions(t *testing.T) {
	t.Run("invokestatic", func(t *testing.T) {
		main := jvmgen.NewAssembler("Main")
		add := main.Methodref("Helper", "add", "(II)I")
		main.AddMethod(jvmgen.AccStatic, "f", "()V", jvmgen.NewCode(2, 1).
			Op(bytecode.OpIconst3, bytecode.OpIconst4).
			Ref(bytecode.OpInvokestatic, add).
			Op(bytecode.OpIstore0, bytecode.OpReturn))
		helper := jvmgen.NewAssembler("Helper").
			AddMethod(jvmgen.AccStatic, "add", "(II)I", jvmgen.NewCode(2, 2).
				Op(bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIadd, bytecode.OpIreturn))
		env := newEnv(map[string][]byte{"Main": main.MustBuild(), "Helper": helper.MustBuild()})
		states := recordStates(env.in.Thread())

		if err := env.in.Execute(env.frame(t, "Main", "f", "()V")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := "running invoking running returning running returning terminated"
		if got := strings.Join(*states, " "); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("native call", func(t *testing.T) {
		env := newEnv(map[string][]byte{"Hello": helloWorld()})
		states := recordStates(env.in.Thread())

		if err := env.in.RunMain("Hello", nil); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := "invoking running invoking running returning terminated"
		if got := strings.Join(*states, " "); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("fault", func(t *testing.T) {
		env := newEnv(staticMethod("A", byteArrayCode(2)))
		states := recordStates(env.in.Thread())

		env.in.Execute(env.frame(t, "A", "f", "()V"))
		want := "running faulted"
		if got := strings.Join(*states, " "); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}
