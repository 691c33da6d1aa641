package vm

import (
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 数组读取：..., arrayref, index -> ..., value
// ============================================================================

func loadInt(f *Frame, op string, kinds ...classfile.BasicType) {
	index := f.popInt()
	arr := f.popArray()
	v, err := arr.LoadInt(op, index, kinds...)
	if err != nil {
		raise(err)
	}
	f.pushInt(v)
}

func opIaload(in *Interpreter, f *Frame) { loadInt(f, "iaload", classfile.TInt) }
func opCaload(in *Interpreter, f *Frame) { loadInt(f, "caload", classfile.TChar) }
func opSaload(in *Interpreter, f *Frame) { loadInt(f, "saload", classfile.TShort) }

// baload 同时用于 byte[] 和 boolean[]
func opBaload(in *Interpreter, f *Frame) {
	loadInt(f, "baload", classfile.TByte, classfile.TBoolean)
}

func opLaload(in *Interpreter, f *Frame) {
	index := f.popInt()
	v, err := f.popArray().LoadLong(index)
	if err != nil {
		raise(err)
	}
	f.pushLong(v)
}

func opFaload(in *Interpreter, f *Frame) {
	index := f.popInt()
	v, err := f.popArray().LoadFloat(index)
	if err != nil {
		raise(err)
	}
	f.pushFloat(v)
}

func opDaload(in *Interpreter, f *Frame) {
	index := f.popInt()
	v, err := f.popArray().LoadDouble(index)
	if err != nil {
		raise(err)
	}
	f.pushDouble(v)
}

func opAaload(in *Interpreter, f *Frame) {
	index := f.popInt()
	v, err := f.popArray().LoadRef(index)
	if err != nil {
		raise(err)
	}
	f.pushRef(v)
}

// ============================================================================
// 数组写入：..., arrayref, index, value -> ...
// ============================================================================

func storeInt(f *Frame, op string, kinds ...classfile.BasicType) {
	v := f.popInt()
	index := f.popInt()
	arr := f.popArray()
	if err := arr.StoreInt(op, index, v, kinds...); err != nil {
		raise(err)
	}
}

func opIastore(in *Interpreter, f *Frame) { storeInt(f, "iastore", classfile.TInt) }
func opCastore(in *Interpreter, f *Frame) { storeInt(f, "castore", classfile.TChar) }
func opSastore(in *Interpreter, f *Frame) { storeInt(f, "sastore", classfile.TShort) }

func opBastore(in *Interpreter, f *Frame) {
	storeInt(f, "bastore", classfile.TByte, classfile.TBoolean)
}

func opLastore(in *Interpreter, f *Frame) {
	v := f.popLong()
	index := f.popInt()
	if err := f.popArray().StoreLong(index, v); err != nil {
		raise(err)
	}
}

func opFastore(in *Interpreter, f *Frame) {
	v := f.popFloat()
	index := f.popInt()
	if err := f.popArray().StoreFloat(index, v); err != nil {
		raise(err)
	}
}

func opDastore(in *Interpreter, f *Frame) {
	v := f.popDouble()
	index := f.popInt()
	if err := f.popArray().StoreDouble(index, v); err != nil {
		raise(err)
	}
}

func opAastore(in *Interpreter, f *Frame) {
	v := f.popRef()
	index := f.popInt()
	if err := f.popArray().StoreRef(index, v); err != nil {
		raise(err)
	}
}

// ============================================================================
// 创建
// ============================================================================

func opNewarray(in *Interpreter, f *Frame) {
	atype := classfile.BasicType(readU1(f))
	arr, err := NewArray(atype, f.popInt())
	if err != nil {
		raise(err)
	}
	f.pushRef(arr)
}

func opAnewarray(in *Interpreter, f *Frame) {
	name, err := f.Klass.ConstantPool.ClassName(readU2(f))
	if err != nil {
		raise(err)
	}
	arr, err := NewReferenceArray(arrayOf(name), f.popInt())
	if err != nil {
		raise(err)
	}
	f.pushRef(arr)
}

// arrayOf 元素类名对应的数组描述符
func arrayOf(name string) string {
	if len(name) > 0 && name[0] == '[' {
		return "[" + name
	}
	return "[L" + name + ";"
}

// opMultianewarray 各维长度按从外到内的顺序压栈
func opMultianewarray(in *Interpreter, f *Frame) {
	descriptor, err := f.Klass.ConstantPool.ClassName(readU2(f))
	if err != nil {
		raise(err)
	}
	dims := int(readU1(f))
	if dims < 1 || dims >= len(descriptor) || descriptor[dims-1] != '[' {
		raise(errors.NewTypeError("multianewarray: %d dimensions for %s", dims, descriptor))
	}
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		counts[i] = f.popInt()
	}
	for _, n := range counts {
		if n < 0 {
			raise(negativeSize(n))
		}
	}
	f.pushRef(newMultiArray(descriptor, counts))
}

func newMultiArray(descriptor string, counts []int32) *ArrayObject {
	if len(descriptor) < 2 || descriptor[0] != '[' {
		raise(errors.NewTypeError("malformed array descriptor %q", descriptor).With("descriptor", descriptor))
	}
	elem := descriptor[1:]
	var (
		arr *ArrayObject
		err error
	)
	if t, ok := classfile.BasicTypeFromDescriptor(elem[0]); ok && t.IsPrimitiveArrayElement() {
		arr, err = NewArray(t, counts[0])
	} else {
		arr, err = NewReferenceArray(descriptor, counts[0])
	}
	if err != nil {
		raise(err)
	}
	if len(counts) > 1 {
		for i := range arr.elems {
			arr.elems[i].ref = newMultiArray(elem, counts[1:])
		}
	}
	return arr
}

func opArraylength(in *Interpreter, f *Frame) {
	f.pushInt(int32(f.popArray().Len()))
}
