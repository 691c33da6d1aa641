package vm

import (
	"math"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 算术运算
//
// 先弹出的是右操作数。整数运算按二进制补码回绕。
// ============================================================================

func intBinary(f *Frame, fn func(a, b int32) int32) {
	b := f.popInt()
	a := f.popInt()
	f.pushInt(fn(a, b))
}

func longBinary(f *Frame, fn func(a, b int64) int64) {
	b := f.popLong()
	a := f.popLong()
	f.pushLong(fn(a, b))
}

func floatBinary(f *Frame, fn func(a, b float32) float32) {
	b := f.popFloat()
	a := f.popFloat()
	f.pushFloat(fn(a, b))
}

func doubleBinary(f *Frame, fn func(a, b float64) float64) {
	b := f.popDouble()
	a := f.popDouble()
	f.pushDouble(fn(a, b))
}

func divideByZero(f *Frame) *errors.Fault {
	return errors.NewRuntimeError(errors.R0200, "/ by zero").With("pc", f.Code.InstructionStart())
}

func opIadd(in *Interpreter, f *Frame) { intBinary(f, func(a, b int32) int32 { return a + b }) }
func opLadd(in *Interpreter, f *Frame) { longBinary(f, func(a, b int64) int64 { return a + b }) }
func opFadd(in *Interpreter, f *Frame) { floatBinary(f, func(a, b float32) float32 { return a + b }) }
func opDadd(in *Interpreter, f *Frame) { doubleBinary(f, func(a, b float64) float64 { return a + b }) }

func opIsub(in *Interpreter, f *Frame) { intBinary(f, func(a, b int32) int32 { return a - b }) }
func opLsub(in *Interpreter, f *Frame) { longBinary(f, func(a, b int64) int64 { return a - b }) }
func opFsub(in *Interpreter, f *Frame) { floatBinary(f, func(a, b float32) float32 { return a - b }) }
func opDsub(in *Interpreter, f *Frame) { doubleBinary(f, func(a, b float64) float64 { return a - b }) }

func opImul(in *Interpreter, f *Frame) { intBinary(f, func(a, b int32) int32 { return a * b }) }
func opLmul(in *Interpreter, f *Frame) { longBinary(f, func(a, b int64) int64 { return a * b }) }
func opFmul(in *Interpreter, f *Frame) { floatBinary(f, func(a, b float32) float32 { return a * b }) }
func opDmul(in *Interpreter, f *Frame) { doubleBinary(f, func(a, b float64) float64 { return a * b }) }

// MinInt32 / -1 在 Go 中同样回绕为 MinInt32，与 Java 一致
func opIdiv(in *Interpreter, f *Frame) {
	intBinary(f, func(a, b int32) int32 {
		if b == 0 {
			panic(divideByZero(f))
		}
		return a / b
	})
}

func opLdiv(in *Interpreter, f *Frame) {
	longBinary(f, func(a, b int64) int64 {
		if b == 0 {
			panic(divideByZero(f))
		}
		return a / b
	})
}

func opFdiv(in *Interpreter, f *Frame) { floatBinary(f, func(a, b float32) float32 { return a / b }) }
func opDdiv(in *Interpreter, f *Frame) { doubleBinary(f, func(a, b float64) float64 { return a / b }) }

func opIrem(in *Interpreter, f *Frame) {
	intBinary(f, func(a, b int32) int32 {
		if b == 0 {
			panic(divideByZero(f))
		}
		return a % b
	})
}

func opLrem(in *Interpreter, f *Frame) {
	longBinary(f, func(a, b int64) int64 {
		if b == 0 {
			panic(divideByZero(f))
		}
		return a % b
	})
}

// 浮点取余结果与被除数同号，和 math.Mod 相同
func opFrem(in *Interpreter, f *Frame) {
	floatBinary(f, func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) })
}

func opDrem(in *Interpreter, f *Frame) {
	doubleBinary(f, math.Mod)
}

func opIneg(in *Interpreter, f *Frame) { f.pushInt(-f.popInt()) }
func opLneg(in *Interpreter, f *Frame) { f.pushLong(-f.popLong()) }
func opFneg(in *Interpreter, f *Frame) { f.pushFloat(-f.popFloat()) }
func opDneg(in *Interpreter, f *Frame) { f.pushDouble(-f.popDouble()) }

// ============================================================================
// 位运算
// ============================================================================

// long 移位的位数是一个 int
func longShift(f *Frame, fn func(a int64, n uint) int64) {
	n := f.popInt()
	a := f.popLong()
	f.pushLong(fn(a, uint(n&0x3f)))
}

func opIshl(in *Interpreter, f *Frame) {
	intBinary(f, func(a, b int32) int32 { return a << uint(b&0x1f) })
}

func opIshr(in *Interpreter, f *Frame) {
	intBinary(f, func(a, b int32) int32 { return a >> uint(b&0x1f) })
}

func opIushr(in *Interpreter, f *Frame) {
	intBinary(f, func(a, b int32) int32 { return int32(uint32(a) >> uint(b&0x1f)) })
}

func opLshl(in *Interpreter, f *Frame) {
	longShift(f, func(a int64, n uint) int64 { return a << n })
}

func opLshr(in *Interpreter, f *Frame) {
	longShift(f, func(a int64, n uint) int64 { return a >> n })
}

func opLushr(in *Interpreter, f *Frame) {
	longShift(f, func(a int64, n uint) int64 { return int64(uint64(a) >> n) })
}

func opIand(in *Interpreter, f *Frame) { intBinary(f, func(a, b int32) int32 { return a & b }) }
func opLand(in *Interpreter, f *Frame) { longBinary(f, func(a, b int64) int64 { return a & b }) }
func opIor(in *Interpreter, f *Frame)  { intBinary(f, func(a, b int32) int32 { return a | b }) }
func opLor(in *Interpreter, f *Frame)  { longBinary(f, func(a, b int64) int64 { return a | b }) }
func opIxor(in *Interpreter, f *Frame) { intBinary(f, func(a, b int32) int32 { return a ^ b }) }
func opLxor(in *Interpreter, f *Frame) { longBinary(f, func(a, b int64) int64 { return a ^ b }) }
