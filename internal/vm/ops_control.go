package vm

import (
	"math"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 比较
// ============================================================================

func opLcmp(in *Interpreter, f *Frame) {
	b := f.popLong()
	a := f.popLong()
	f.pushInt(compare(a, b))
}

// opFcmp nanResult 为 fcmpl 的 -1 或 fcmpg 的 1
func opFcmp(nanResult int32) opHandler {
	return func(in *Interpreter, f *Frame) {
		b := f.popFloat()
		a := f.popFloat()
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			f.pushInt(nanResult)
			return
		}
		f.pushInt(compare(a, b))
	}
}

func opDcmp(nanResult int32) opHandler {
	return func(in *Interpreter, f *Frame) {
		b := f.popDouble()
		a := f.popDouble()
		if math.IsNaN(a) || math.IsNaN(b) {
			f.pushInt(nanResult)
			return
		}
		f.pushInt(compare(a, b))
	}
}

func compare[T int64 | float32 | float64](a, b T) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ============================================================================
// 跳转
// ============================================================================

func opIf(cond func(int32) bool) opHandler {
	return func(in *Interpreter, f *Frame) {
		offset := int32(readS2(f))
		if cond(f.popInt()) {
			branch(f, offset)
		}
	}
}

func opIfIcmp(cond func(a, b int32) bool) opHandler {
	return func(in *Interpreter, f *Frame) {
		offset := int32(readS2(f))
		b := f.popInt()
		a := f.popInt()
		if cond(a, b) {
			branch(f, offset)
		}
	}
}

// opIfAcmp 引用比较按同一性，字符串常量按内容
func opIfAcmp(eq bool) opHandler {
	return func(in *Interpreter, f *Frame) {
		offset := int32(readS2(f))
		b := f.popRef()
		a := f.popRef()
		if sameRef(a, b) == eq {
			branch(f, offset)
		}
	}
}

func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	return a == b
}

func opIfNull(isNull bool) opHandler {
	return func(in *Interpreter, f *Frame) {
		offset := int32(readS2(f))
		if (f.popRef() == nil) == isNull {
			branch(f, offset)
		}
	}
}

func opGoto(in *Interpreter, f *Frame) {
	branch(f, int32(readS2(f)))
}

func opGotoW(in *Interpreter, f *Frame) {
	branch(f, readS4(f))
}

// opTableswitch default、low、high 后跟 high-low+1 个偏移
func opTableswitch(in *Interpreter, f *Frame) {
	f.Code.AlignOperands()
	def := readS4(f)
	low := readS4(f)
	high := readS4(f)
	if high < low {
		raise(errors.NewBoundsError(errors.R0003, "tableswitch high %d < low %d", high, low))
	}
	index := f.popInt()
	if index < low || index > high {
		branch(f, def)
		return
	}
	var offset int32
	for i := low; ; i++ {
		offset = readS4(f)
		if i == index {
			break
		}
	}
	branch(f, offset)
}

// opLookupswitch default、npairs 后跟按键排序的 (key, offset) 对
func opLookupswitch(in *Interpreter, f *Frame) {
	f.Code.AlignOperands()
	def := readS4(f)
	npairs := readS4(f)
	if npairs < 0 {
		raise(errors.NewBoundsError(errors.R0003, "lookupswitch npairs %d < 0", npairs))
	}
	key := f.popInt()
	for i := int32(0); i < npairs; i++ {
		match := readS4(f)
		offset := readS4(f)
		if match == key {
			branch(f, offset)
			return
		}
	}
	branch(f, def)
}

// ============================================================================
// 返回
// ============================================================================

func opReturnValue(t ValueType, slots int) opHandler {
	return func(in *Interpreter, f *Frame) {
		result := f.popSlots(slots)
		for _, v := range result {
			expectType(v, t)
		}
		f.result = result
		f.done = true
	}
}

func opAreturn(in *Interpreter, f *Frame) {
	f.result = []Value{popRefValue(f)}
	f.done = true
}

func opReturn(in *Interpreter, f *Frame) {
	f.result = nil
	f.done = true
}
