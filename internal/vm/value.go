package vm

import (
	"fmt"
	"math"

	"github.com/tangzhangming/sjvm/internal/native"
)

// ValueType 操作数栈和局部变量槽的类型标签
type ValueType uint8

const (
	TypeNone   ValueType = iota // 未初始化的槽位
	TypeInt                     // int/boolean/byte/char/short
	TypeFloat                   // float
	TypeLong                    // long 的一半
	TypeDouble                  // double 的一半
	TypeObject                  // 非数组引用
	TypeArray                   // 数组引用
	TypeNull                    // null
)

var valueTypeNames = [...]string{
	TypeNone:   "none",
	TypeInt:    "int",
	TypeFloat:  "float",
	TypeLong:   "long",
	TypeDouble: "double",
	TypeObject: "object",
	TypeArray:  "array",
	TypeNull:   "null",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "invalid"
}

// IsReference 是否为引用（含 null）
func (t ValueType) IsReference() bool {
	return t == TypeObject || t == TypeArray || t == TypeNull
}

// Value 一个槽位。long/double 拆成两个槽位，高 32 位在前。
type Value struct {
	Type ValueType
	I    int32   // int 值，或 long/double 的一半
	F    float32 // float 值
	Ref  any     // 引用
}

// ============================================================================
// 构造
// ============================================================================

// Int 创建 int 值
func Int(v int32) Value {
	return Value{Type: TypeInt, I: v}
}

// Float 创建 float 值
func Float(v float32) Value {
	return Value{Type: TypeFloat, F: v}
}

// Null 创建 null
func Null() Value {
	return Value{Type: TypeNull}
}

// Ref 创建引用，nil 视为 null
func Ref(v any) Value {
	switch v.(type) {
	case nil:
		return Null()
	case *ArrayObject:
		return Value{Type: TypeArray, Ref: v}
	}
	return Value{Type: TypeObject, Ref: v}
}

// Long 创建 long 的两个槽位（高位, 低位）
func Long(v int64) (hi, lo Value) {
	return Value{Type: TypeLong, I: int32(v >> 32)}, Value{Type: TypeLong, I: int32(v)}
}

// Double 创建 double 的两个槽位（高位, 低位）
func Double(v float64) (hi, lo Value) {
	bits := math.Float64bits(v)
	return Value{Type: TypeDouble, I: int32(bits >> 32)}, Value{Type: TypeDouble, I: int32(bits)}
}

// joinBits 由两个半槽还原 64 位
func joinBits(hi, lo Value) uint64 {
	return uint64(uint32(hi.I))<<32 | uint64(uint32(lo.I))
}

// JoinLong 由两个槽位还原 long
func JoinLong(hi, lo Value) int64 {
	return int64(joinBits(hi, lo))
}

// JoinDouble 由两个槽位还原 double
func JoinDouble(hi, lo Value) float64 {
	return math.Float64frombits(joinBits(hi, lo))
}

// ============================================================================
// 显示
// ============================================================================

func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return fmt.Sprintf("int(%d)", v.I)
	case TypeFloat:
		return "float(" + native.FormatFloat(v.F) + ")"
	case TypeLong:
		return fmt.Sprintf("long-half(%#08x)", uint32(v.I))
	case TypeDouble:
		return fmt.Sprintf("double-half(%#08x)", uint32(v.I))
	case TypeObject, TypeArray:
		return v.Type.String() + "(" + native.ToString(v.Ref) + ")"
	case TypeNull:
		return "null"
	}
	return "none"
}

// zeroSlots 某个描述符类型的默认值
func zeroSlots(descriptor string) []Value {
	if descriptor == "" {
		return []Value{Null()}
	}
	switch descriptor[0] {
	case 'J':
		hi, lo := Long(0)
		return []Value{hi, lo}
	case 'D':
		hi, lo := Double(0)
		return []Value{hi, lo}
	case 'F':
		return []Value{Float(0)}
	case 'L', '[':
		return []Value{Null()}
	}
	return []Value{Int(0)}
}
