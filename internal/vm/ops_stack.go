package vm

// ============================================================================
// 栈操作
//
// long/double 在栈上占两个槽位，因此 pop2/dup2 等指令按槽位操作
// 即可同时覆盖 JVM 规范中的两种形式。
// ============================================================================

func opPop(in *Interpreter, f *Frame) {
	f.pop()
}

func opPop2(in *Interpreter, f *Frame) {
	f.popSlots(2)
}

// ..., v1 -> ..., v1, v1
func opDup(in *Interpreter, f *Frame) {
	f.push(f.peekAt(0))
}

// ..., v2, v1 -> ..., v1, v2, v1
func opDupX1(in *Interpreter, f *Frame) {
	s := f.popSlots(2)
	f.pushSlots([]Value{s[1], s[0], s[1]})
}

// ..., v3, v2, v1 -> ..., v1, v3, v2, v1
func opDupX2(in *Interpreter, f *Frame) {
	s := f.popSlots(3)
	f.pushSlots([]Value{s[2], s[0], s[1], s[2]})
}

// ..., v2, v1 -> ..., v2, v1, v2, v1
func opDup2(in *Interpreter, f *Frame) {
	s := f.popSlots(2)
	f.pushSlots([]Value{s[0], s[1], s[0], s[1]})
}

// ..., v3, v2, v1 -> ..., v2, v1, v3, v2, v1
func opDup2X1(in *Interpreter, f *Frame) {
	s := f.popSlots(3)
	f.pushSlots([]Value{s[1], s[2], s[0], s[1], s[2]})
}

// ..., v4, v3, v2, v1 -> ..., v2, v1, v4, v3, v2, v1
func opDup2X2(in *Interpreter, f *Frame) {
	s := f.popSlots(4)
	f.pushSlots([]Value{s[2], s[3], s[0], s[1], s[2], s[3]})
}

func opSwap(in *Interpreter, f *Frame) {
	s := f.popSlots(2)
	f.pushSlots([]Value{s[1], s[0]})
}
