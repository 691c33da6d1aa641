package vm

import (
	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 局部变量读写
// ============================================================================

func opLoad(t ValueType) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.push(f.loadLocal(int(readU1(f)), t))
	}
}

func opLoadN(t ValueType, n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.push(f.loadLocal(n, t))
	}
}

func opLoadWide(t ValueType) opHandler {
	return func(in *Interpreter, f *Frame) {
		hi, lo := f.loadWideLocal(int(readU1(f)), t)
		f.push(hi)
		f.push(lo)
	}
}

func opLoadWideN(t ValueType, n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		hi, lo := f.loadWideLocal(n, t)
		f.push(hi)
		f.push(lo)
	}
}

func opAload(in *Interpreter, f *Frame) {
	f.push(f.loadRefLocal(int(readU1(f))))
}

func opAloadN(n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.push(f.loadRefLocal(n))
	}
}

func opStore(t ValueType) opHandler {
	return func(in *Interpreter, f *Frame) {
		index := int(readU1(f))
		v := f.pop()
		expectType(v, t)
		f.storeLocal(index, v)
	}
}

func opStoreN(t ValueType, n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		v := f.pop()
		expectType(v, t)
		f.storeLocal(n, v)
	}
}

func opStoreWide(t ValueType) opHandler {
	return func(in *Interpreter, f *Frame) {
		storeWide(f, int(readU1(f)), t)
	}
}

func opStoreWideN(t ValueType, n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		storeWide(f, n, t)
	}
}

func storeWide(f *Frame, index int, t ValueType) {
	lo := f.pop()
	hi := f.pop()
	expectType(hi, t)
	expectType(lo, t)
	f.storeWideLocal(index, hi, lo)
}

// astore 也接受 jsr 产生的返回地址之外的任何引用
func opAstore(in *Interpreter, f *Frame) {
	index := int(readU1(f))
	f.storeLocal(index, popRefValue(f))
}

func opAstoreN(n int) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.storeLocal(n, popRefValue(f))
	}
}

func popRefValue(f *Frame) Value {
	v := f.pop()
	if !v.Type.IsReference() {
		panic(errors.NewTypeError("expected reference, got %s", v.Type).
			With("expected", "reference").
			With("actual", v.Type.String()))
	}
	return v
}

func opIinc(in *Interpreter, f *Frame) {
	index := int(readU1(f))
	delta := int32(readS1(f))
	iinc(f, index, delta)
}

func iinc(f *Frame, index int, delta int32) {
	v := f.loadLocal(index, TypeInt)
	f.storeLocal(index, Int(v.I+delta))
}

// opWide 以 16 位下标执行后一条 load/store/iinc
func opWide(in *Interpreter, f *Frame) {
	op := bytecode.OpCode(readU1(f))
	index := int(readU2(f))
	switch op {
	case bytecode.OpIload:
		f.push(f.loadLocal(index, TypeInt))
	case bytecode.OpFload:
		f.push(f.loadLocal(index, TypeFloat))
	case bytecode.OpAload:
		f.push(f.loadRefLocal(index))
	case bytecode.OpLload, bytecode.OpDload:
		t := TypeLong
		if op == bytecode.OpDload {
			t = TypeDouble
		}
		hi, lo := f.loadWideLocal(index, t)
		f.push(hi)
		f.push(lo)
	case bytecode.OpIstore, bytecode.OpFstore:
		t := TypeInt
		if op == bytecode.OpFstore {
			t = TypeFloat
		}
		v := f.pop()
		expectType(v, t)
		f.storeLocal(index, v)
	case bytecode.OpAstore:
		f.storeLocal(index, popRefValue(f))
	case bytecode.OpLstore:
		storeWide(f, index, TypeLong)
	case bytecode.OpDstore:
		storeWide(f, index, TypeDouble)
	case bytecode.OpIinc:
		iinc(f, index, int32(readS2(f)))
	default:
		panic(errors.NewUnsupportedInstructionError(byte(op), f.Code.InstructionStart()).
			With("prefix", "wide"))
	}
}
