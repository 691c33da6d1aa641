package vm

import (
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 常量
// ============================================================================

func opAconstNull(in *Interpreter, f *Frame) {
	f.push(Null())
}

func opIconst(n int32) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.pushInt(n)
	}
}

func opLconst(n int64) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.pushLong(n)
	}
}

func opFconst(n float32) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.pushFloat(n)
	}
}

func opDconst(n float64) opHandler {
	return func(in *Interpreter, f *Frame) {
		f.pushDouble(n)
	}
}

func opBipush(in *Interpreter, f *Frame) {
	f.pushInt(int32(readS1(f)))
}

func opSipush(in *Interpreter, f *Frame) {
	f.pushInt(int32(readS2(f)))
}

func opLdc(in *Interpreter, f *Frame) {
	ldc(f, uint16(readU1(f)))
}

func opLdcW(in *Interpreter, f *Frame) {
	ldc(f, readU2(f))
}

// ldc 单槽常量：float、String、Class
func ldc(f *Frame, index uint16) {
	cp := f.Klass.ConstantPool
	var err error
	switch tag := cp.Tag(index); tag {
	case classfile.ConstantFloat:
		var v float32
		if v, err = cp.Float(index); err == nil {
			f.pushFloat(v)
		}
	case classfile.ConstantString:
		var s string
		if s, err = cp.StringValue(index); err == nil {
			f.pushRef(s)
		}
	case classfile.ConstantClass:
		var name string
		if name, err = cp.ClassName(index); err == nil {
			f.pushRef(&ClassMirror{Name: name})
		}
	default:
		err = errors.NewTypeError("ldc cannot load constant #%d (%s)", index, classfile.ConstantTagName(tag)).
			With("index", index)
	}
	if err != nil {
		raise(err)
	}
}

// opLdc2W 双槽常量：long、double
func opLdc2W(in *Interpreter, f *Frame) {
	index := readU2(f)
	cp := f.Klass.ConstantPool
	switch tag := cp.Tag(index); tag {
	case classfile.ConstantLong:
		v, err := cp.Long(index)
		if err != nil {
			raise(err)
		}
		f.pushLong(v)
	case classfile.ConstantDouble:
		v, err := cp.Double(index)
		if err != nil {
			raise(err)
		}
		f.pushDouble(v)
	default:
		raise(errors.NewTypeError("ldc2_w cannot load constant #%d (%s)", index, classfile.ConstantTagName(tag)).
			With("index", index))
	}
}
