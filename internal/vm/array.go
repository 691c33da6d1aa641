package vm

import (
	"math"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// element 数组元素：基本类型存位模式，引用存 ref
type element struct {
	bits uint64
	ref  any
}

// ArrayObject 定长数组。所有元素共用一个带类型标签的序列，越界访问一律报错。
type ArrayObject struct {
	Elem  classfile.BasicType // 元素类型
	Class string              // 数组类型描述符，如 [B、[Ljava/lang/String;
	elems []element
}

// NewArray 创建基本类型数组，elem 为 newarray 的 atype
func NewArray(elem classfile.BasicType, length int32) (*ArrayObject, error) {
	if !elem.IsPrimitiveArrayElement() {
		return nil, errors.NewTypeError("invalid primitive array element type %d", elem)
	}
	if length < 0 {
		return nil, negativeSize(length)
	}
	return &ArrayObject{
		Elem:  elem,
		Class: "[" + string(elem.DescriptorChar()),
		elems: make([]element, length),
	}, nil
}

// NewReferenceArray 创建引用数组，descriptor 为数组自身的描述符
func NewReferenceArray(descriptor string, length int32) (*ArrayObject, error) {
	if length < 0 {
		return nil, negativeSize(length)
	}
	elem := classfile.TObject
	if len(descriptor) > 1 && descriptor[1] == '[' {
		elem = classfile.TArray
	}
	return &ArrayObject{Elem: elem, Class: descriptor, elems: make([]element, length)}, nil
}

func negativeSize(length int32) error {
	return errors.NewBoundsError(errors.R0101, "negative array size %d", length).With("size", length)
}

// JavaClassName 数组类型描述符
func (a *ArrayObject) JavaClassName() string { return a.Class }

// Len 数组长度
func (a *ArrayObject) Len() int {
	return len(a.elems)
}

func (a *ArrayObject) check(index int32) error {
	if index < 0 || int(index) >= len(a.elems) {
		return errors.NewBoundsError(errors.R0100, "index %d out of bounds for length %d", index, len(a.elems)).
			With("index", index).
			With("length", len(a.elems))
	}
	return nil
}

func (a *ArrayObject) expect(op string, kinds ...classfile.BasicType) error {
	for _, k := range kinds {
		if a.Elem == k {
			return nil
		}
	}
	return errors.NewTypeError("%s on %s array", op, a.Class).With("array", a.Class)
}

// ============================================================================
// int 族：boolean、byte、char、short、int
// ============================================================================

// LoadInt 读取元素并按元素类型扩展为 int
func (a *ArrayObject) LoadInt(op string, index int32, kinds ...classfile.BasicType) (int32, error) {
	if err := a.expect(op, kinds...); err != nil {
		return 0, err
	}
	if err := a.check(index); err != nil {
		return 0, err
	}
	return int32(uint32(a.elems[index].bits)), nil
}

// StoreInt 按元素类型截断后写入
func (a *ArrayObject) StoreInt(op string, index, v int32, kinds ...classfile.BasicType) error {
	if err := a.expect(op, kinds...); err != nil {
		return err
	}
	if err := a.check(index); err != nil {
		return err
	}
	switch a.Elem {
	case classfile.TBoolean:
		v &= 1
	case classfile.TByte:
		v = int32(int8(v))
	case classfile.TChar:
		v = int32(uint16(v))
	case classfile.TShort:
		v = int32(int16(v))
	}
	a.elems[index].bits = uint64(uint32(v))
	return nil
}

// ============================================================================
// long、float、double、引用
// ============================================================================

// LoadLong 读取 long 元素
func (a *ArrayObject) LoadLong(index int32) (int64, error) {
	if err := a.expect("laload", classfile.TLong); err != nil {
		return 0, err
	}
	if err := a.check(index); err != nil {
		return 0, err
	}
	return int64(a.elems[index].bits), nil
}

// StoreLong 写入 long 元素
func (a *ArrayObject) StoreLong(index int32, v int64) error {
	if err := a.expect("lastore", classfile.TLong); err != nil {
		return err
	}
	if err := a.check(index); err != nil {
		return err
	}
	a.elems[index].bits = uint64(v)
	return nil
}

// LoadFloat 读取 float 元素
func (a *ArrayObject) LoadFloat(index int32) (float32, error) {
	if err := a.expect("faload", classfile.TFloat); err != nil {
		return 0, err
	}
	if err := a.check(index); err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(a.elems[index].bits)), nil
}

// StoreFloat 写入 float 元素
func (a *ArrayObject) StoreFloat(index int32, v float32) error {
	if err := a.expect("fastore", classfile.TFloat); err != nil {
		return err
	}
	if err := a.check(index); err != nil {
		return err
	}
	a.elems[index].bits = uint64(math.Float32bits(v))
	return nil
}

// LoadDouble 读取 double 元素
func (a *ArrayObject) LoadDouble(index int32) (float64, error) {
	if err := a.expect("daload", classfile.TDouble); err != nil {
		return 0, err
	}
	if err := a.check(index); err != nil {
		return 0, err
	}
	return math.Float64frombits(a.elems[index].bits), nil
}

// StoreDouble 写入 double 元素
func (a *ArrayObject) StoreDouble(index int32, v float64) error {
	if err := a.expect("dastore", classfile.TDouble); err != nil {
		return err
	}
	if err := a.check(index); err != nil {
		return err
	}
	a.elems[index].bits = math.Float64bits(v)
	return nil
}

// LoadRef 读取引用元素
func (a *ArrayObject) LoadRef(index int32) (any, error) {
	if err := a.expect("aaload", classfile.TObject, classfile.TArray); err != nil {
		return nil, err
	}
	if err := a.check(index); err != nil {
		return nil, err
	}
	return a.elems[index].ref, nil
}

// StoreRef 写入引用元素
func (a *ArrayObject) StoreRef(index int32, v any) error {
	if err := a.expect("aastore", classfile.TObject, classfile.TArray); err != nil {
		return err
	}
	if err := a.check(index); err != nil {
		return err
	}
	a.elems[index].ref = v
	return nil
}

// ============================================================================
// 宿主接口
// ============================================================================

// CopyTo 实现 System.arraycopy
func (a *ArrayObject) CopyTo(srcPos int, dst any, dstPos, length int) error {
	d, ok := dst.(*ArrayObject)
	if !ok {
		return errors.NewTypeError("arraycopy: destination is not an array")
	}
	if d.Elem != a.Elem {
		return errors.NewTypeError("arraycopy: %s to %s", a.Class, d.Class)
	}
	if srcPos < 0 || dstPos < 0 || length < 0 || srcPos+length > len(a.elems) || dstPos+length > len(d.elems) {
		return errors.NewBoundsError(errors.R0100,
			"arraycopy: last source index %d out of bounds for length %d", srcPos+length, len(a.elems))
	}
	copy(d.elems[dstPos:dstPos+length], a.elems[srcPos:srcPos+length])
	return nil
}

// Chars char[] 的内容
func (a *ArrayObject) Chars() ([]uint16, bool) {
	if a.Elem != classfile.TChar {
		return nil, false
	}
	out := make([]uint16, len(a.elems))
	for i, e := range a.elems {
		out[i] = uint16(e.bits)
	}
	return out, true
}
