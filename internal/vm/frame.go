package vm

import (
	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// Frame 调用帧：局部变量槽、操作数栈和本帧独占的字节码流。
// 每次调用都新建 Frame，因此同一方法再次调用总是从第一条指令开始。
type Frame struct {
	Klass  *classfile.Klass
	Method *classfile.MethodInfo
	Code   *bytecode.Stream
	Locals []Value

	stack    []Value
	maxStack int

	done   bool
	result []Value
}

// NewFrame 为方法创建调用帧
func NewFrame(k *classfile.Klass, m *classfile.MethodInfo) (*Frame, error) {
	code := m.Code()
	if code == nil {
		return nil, errors.NewResolutionError(errors.R0305, "method %s.%s has no code", k.Name, m.Signature()).
			With("method", k.Name+"."+m.Signature())
	}
	return &Frame{
		Klass:    k,
		Method:   m,
		Code:     bytecode.NewStream(code.Code),
		Locals:   make([]Value, code.MaxLocals),
		stack:    make([]Value, 0, code.MaxStack),
		maxStack: int(code.MaxStack),
	}, nil
}

// Stack 返回操作数栈的副本，栈底在前
func (f *Frame) Stack() []Value {
	out := make([]Value, len(f.stack))
	copy(out, f.stack)
	return out
}

// StackDepth 操作数栈当前深度
func (f *Frame) StackDepth() int {
	return len(f.stack)
}

// Peek 栈顶值
func (f *Frame) Peek() (Value, bool) {
	if len(f.stack) == 0 {
		return Value{}, false
	}
	return f.stack[len(f.stack)-1], true
}

// Result 方法返回的槽位，void 为空
func (f *Frame) Result() []Value {
	return f.result
}

// ============================================================================
// 操作数栈
// ============================================================================

func (f *Frame) push(v Value) {
	if len(f.stack) >= f.maxStack {
		panic(errors.NewBoundsError(errors.R0400, "operand stack overflow (max_stack %d)", f.maxStack))
	}
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() Value {
	n := len(f.stack)
	if n == 0 {
		panic(errors.NewBoundsError(errors.R0202, "operand stack underflow"))
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

// peekAt 距栈顶 distance 的值，0 为栈顶
func (f *Frame) peekAt(distance int) Value {
	n := len(f.stack)
	if distance >= n {
		panic(errors.NewBoundsError(errors.R0202, "operand stack underflow"))
	}
	return f.stack[n-1-distance]
}

// popSlots 弹出 n 个槽位，按压栈顺序返回
func (f *Frame) popSlots(n int) []Value {
	if n > len(f.stack) {
		panic(errors.NewBoundsError(errors.R0202, "operand stack underflow: need %d slots, have %d", n, len(f.stack)))
	}
	start := len(f.stack) - n
	out := make([]Value, n)
	copy(out, f.stack[start:])
	f.stack = f.stack[:start]
	return out
}

func (f *Frame) pushSlots(vs []Value) {
	for _, v := range vs {
		f.push(v)
	}
}

func expectType(v Value, want ValueType) {
	if v.Type != want {
		panic(errors.NewTypeError("expected %s, got %s", want, v.Type).
			With("expected", want.String()).
			With("actual", v.Type.String()))
	}
}

func (f *Frame) pushInt(v int32) { f.push(Int(v)) }

func (f *Frame) popInt() int32 {
	v := f.pop()
	expectType(v, TypeInt)
	return v.I
}

func (f *Frame) pushFloat(v float32) { f.push(Float(v)) }

func (f *Frame) popFloat() float32 {
	v := f.pop()
	expectType(v, TypeFloat)
	return v.F
}

func (f *Frame) pushLong(v int64) {
	hi, lo := Long(v)
	f.push(hi)
	f.push(lo)
}

func (f *Frame) popLong() int64 {
	lo := f.pop()
	hi := f.pop()
	expectType(lo, TypeLong)
	expectType(hi, TypeLong)
	return JoinLong(hi, lo)
}

func (f *Frame) pushDouble(v float64) {
	hi, lo := Double(v)
	f.push(hi)
	f.push(lo)
}

func (f *Frame) popDouble() float64 {
	lo := f.pop()
	hi := f.pop()
	expectType(lo, TypeDouble)
	expectType(hi, TypeDouble)
	return JoinDouble(hi, lo)
}

func (f *Frame) pushRef(v any) { f.push(Ref(v)) }

// popRef 弹出引用，null 返回 nil
func (f *Frame) popRef() any {
	v := f.pop()
	if !v.Type.IsReference() {
		panic(errors.NewTypeError("expected reference, got %s", v.Type).
			With("expected", "reference").
			With("actual", v.Type.String()))
	}
	return v.Ref
}

// popArray 弹出非空数组引用
func (f *Frame) popArray() *ArrayObject {
	v := f.pop()
	switch v.Type {
	case TypeArray:
		return v.Ref.(*ArrayObject)
	case TypeNull:
		panic(errors.NewRuntimeError(errors.R0300, "array reference is null"))
	}
	panic(errors.NewTypeError("expected array, got %s", v.Type).
		With("expected", "array").
		With("actual", v.Type.String()))
}

// ============================================================================
// 局部变量
// ============================================================================

func (f *Frame) checkLocal(index, width int) {
	if index < 0 || index+width > len(f.Locals) {
		panic(errors.NewBoundsError(errors.R0102, "local variable %d out of range (max_locals %d)", index, len(f.Locals)).
			With("index", index))
	}
}

func (f *Frame) loadLocal(index int, want ValueType) Value {
	f.checkLocal(index, 1)
	v := f.Locals[index]
	expectType(v, want)
	return v
}

func (f *Frame) loadRefLocal(index int) Value {
	f.checkLocal(index, 1)
	v := f.Locals[index]
	if !v.Type.IsReference() {
		panic(errors.NewTypeError("expected reference in local %d, got %s", index, v.Type))
	}
	return v
}

func (f *Frame) loadWideLocal(index int, want ValueType) (hi, lo Value) {
	f.checkLocal(index, 2)
	hi, lo = f.Locals[index], f.Locals[index+1]
	expectType(hi, want)
	expectType(lo, want)
	return hi, lo
}

func (f *Frame) storeLocal(index int, v Value) {
	f.checkLocal(index, 1)
	f.Locals[index] = v
}

func (f *Frame) storeWideLocal(index int, hi, lo Value) {
	f.checkLocal(index, 2)
	f.Locals[index] = hi
	f.Locals[index+1] = lo
}

// ============================================================================
// 调试信息
// ============================================================================

// Line 当前指令所在的源代码行，未知为 0
func (f *Frame) Line() int {
	code := f.Method.Code()
	if code == nil {
		return 0
	}
	return code.LineNumber(f.Code.InstructionStart())
}

// StackFrame 转换为故障堆栈帧
func (f *Frame) StackFrame() errors.StackFrame {
	return errors.StackFrame{
		ClassName:  f.Klass.Name,
		MethodName: f.Method.Name,
		Descriptor: f.Method.Descriptor,
		FileName:   f.Klass.SourceFile,
		LineNumber: f.Line(),
		PC:         f.Code.InstructionStart(),
	}
}
