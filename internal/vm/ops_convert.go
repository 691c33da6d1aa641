package vm

import "math"

// ============================================================================
// 类型转换
// ============================================================================

func opI2l(in *Interpreter, f *Frame) { f.pushLong(int64(f.popInt())) }
func opI2f(in *Interpreter, f *Frame) { f.pushFloat(float32(f.popInt())) }
func opI2d(in *Interpreter, f *Frame) { f.pushDouble(float64(f.popInt())) }
func opL2i(in *Interpreter, f *Frame) { f.pushInt(int32(f.popLong())) }
func opL2f(in *Interpreter, f *Frame) { f.pushFloat(float32(f.popLong())) }
func opL2d(in *Interpreter, f *Frame) { f.pushDouble(float64(f.popLong())) }
func opF2d(in *Interpreter, f *Frame) { f.pushDouble(float64(f.popFloat())) }
func opD2f(in *Interpreter, f *Frame) { f.pushFloat(float32(f.popDouble())) }

func opF2i(in *Interpreter, f *Frame) { f.pushInt(toInt32(float64(f.popFloat()))) }
func opF2l(in *Interpreter, f *Frame) { f.pushLong(toInt64(float64(f.popFloat()))) }
func opD2i(in *Interpreter, f *Frame) { f.pushInt(toInt32(f.popDouble())) }
func opD2l(in *Interpreter, f *Frame) { f.pushLong(toInt64(f.popDouble())) }

func opI2b(in *Interpreter, f *Frame) { f.pushInt(int32(int8(f.popInt()))) }
func opI2c(in *Interpreter, f *Frame) { f.pushInt(int32(uint16(f.popInt()))) }
func opI2s(in *Interpreter, f *Frame) { f.pushInt(int32(int16(f.popInt()))) }

// toInt32 浮点转 int：NaN 为 0，超出范围时饱和
func toInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// toInt64 浮点转 long：NaN 为 0，超出范围时饱和
func toInt64(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}
