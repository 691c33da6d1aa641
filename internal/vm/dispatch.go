package vm

import (
	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 分派表
// ============================================================================

// opHandler 操作码处理函数
type opHandler func(in *Interpreter, f *Frame)

// dispatchTable 分派表 (256 个操作码槽位)
var dispatchTable [256]opHandler

func init() {
	// 未注册的槽位一律报不支持的指令
	for i := range dispatchTable {
		dispatchTable[i] = opInvalid
	}

	// 常量
	dispatchTable[bytecode.OpNop] = opNop
	dispatchTable[bytecode.OpAconstNull] = opAconstNull
	dispatchTable[bytecode.OpIconstM1] = opIconst(-1)
	dispatchTable[bytecode.OpIconst0] = opIconst(0)
	dispatchTable[bytecode.OpIconst1] = opIconst(1)
	dispatchTable[bytecode.OpIconst2] = opIconst(2)
	dispatchTable[bytecode.OpIconst3] = opIconst(3)
	dispatchTable[bytecode.OpIconst4] = opIconst(4)
	dispatchTable[bytecode.OpIconst5] = opIconst(5)
	dispatchTable[bytecode.OpLconst0] = opLconst(0)
	dispatchTable[bytecode.OpLconst1] = opLconst(1)
	dispatchTable[bytecode.OpFconst0] = opFconst(0)
	dispatchTable[bytecode.OpFconst1] = opFconst(1)
	dispatchTable[bytecode.OpFconst2] = opFconst(2)
	dispatchTable[bytecode.OpDconst0] = opDconst(0)
	dispatchTable[bytecode.OpDconst1] = opDconst(1)
	dispatchTable[bytecode.OpBipush] = opBipush
	dispatchTable[bytecode.OpSipush] = opSipush
	dispatchTable[bytecode.OpLdc] = opLdc
	dispatchTable[bytecode.OpLdcW] = opLdcW
	dispatchTable[bytecode.OpLdc2W] = opLdc2W

	// 局部变量读取
	dispatchTable[bytecode.OpIload] = opLoad(TypeInt)
	dispatchTable[bytecode.OpLload] = opLoadWide(TypeLong)
	dispatchTable[bytecode.OpFload] = opLoad(TypeFloat)
	dispatchTable[bytecode.OpDload] = opLoadWide(TypeDouble)
	dispatchTable[bytecode.OpAload] = opAload
	for n := 0; n < 4; n++ {
		dispatchTable[int(bytecode.OpIload0)+n] = opLoadN(TypeInt, n)
		dispatchTable[int(bytecode.OpLload0)+n] = opLoadWideN(TypeLong, n)
		dispatchTable[int(bytecode.OpFload0)+n] = opLoadN(TypeFloat, n)
		dispatchTable[int(bytecode.OpDload0)+n] = opLoadWideN(TypeDouble, n)
		dispatchTable[int(bytecode.OpAload0)+n] = opAloadN(n)
	}

	// 局部变量写入
	dispatchTable[bytecode.OpIstore] = opStore(TypeInt)
	dispatchTable[bytecode.OpLstore] = opStoreWide(TypeLong)
	dispatchTable[bytecode.OpFstore] = opStore(TypeFloat)
	dispatchTable[bytecode.OpDstore] = opStoreWide(TypeDouble)
	dispatchTable[bytecode.OpAstore] = opAstore
	for n := 0; n < 4; n++ {
		dispatchTable[int(bytecode.OpIstore0)+n] = opStoreN(TypeInt, n)
		dispatchTable[int(bytecode.OpLstore0)+n] = opStoreWideN(TypeLong, n)
		dispatchTable[int(bytecode.OpFstore0)+n] = opStoreN(TypeFloat, n)
		dispatchTable[int(bytecode.OpDstore0)+n] = opStoreWideN(TypeDouble, n)
		dispatchTable[int(bytecode.OpAstore0)+n] = opAstoreN(n)
	}
	dispatchTable[bytecode.OpIinc] = opIinc
	dispatchTable[bytecode.OpWide] = opWide

	// 数组
	dispatchTable[bytecode.OpIaload] = opIaload
	dispatchTable[bytecode.OpLaload] = opLaload
	dispatchTable[bytecode.OpFaload] = opFaload
	dispatchTable[bytecode.OpDaload] = opDaload
	dispatchTable[bytecode.OpAaload] = opAaload
	dispatchTable[bytecode.OpBaload] = opBaload
	dispatchTable[bytecode.OpCaload] = opCaload
	dispatchTable[bytecode.OpSaload] = opSaload
	dispatchTable[bytecode.OpIastore] = opIastore
	dispatchTable[bytecode.OpLastore] = opLastore
	dispatchTable[bytecode.OpFastore] = opFastore
	dispatchTable[bytecode.OpDastore] = opDastore
	dispatchTable[bytecode.OpAastore] = opAastore
	dispatchTable[bytecode.OpBastore] = opBastore
	dispatchTable[bytecode.OpCastore] = opCastore
	dispatchTable[bytecode.OpSastore] = opSastore
	dispatchTable[bytecode.OpNewarray] = opNewarray
	dispatchTable[bytecode.OpAnewarray] = opAnewarray
	dispatchTable[bytecode.OpMultianewarray] = opMultianewarray
	dispatchTable[bytecode.OpArraylength] = opArraylength

	// 栈操作
	dispatchTable[bytecode.OpPop] = opPop
	dispatchTable[bytecode.OpPop2] = opPop2
	dispatchTable[bytecode.OpDup] = opDup
	dispatchTable[bytecode.OpDupX1] = opDupX1
	dispatchTable[bytecode.OpDupX2] = opDupX2
	dispatchTable[bytecode.OpDup2] = opDup2
	dispatchTable[bytecode.OpDup2X1] = opDup2X1
	dispatchTable[bytecode.OpDup2X2] = opDup2X2
	dispatchTable[bytecode.OpSwap] = opSwap

	// 算术运算
	dispatchTable[bytecode.OpIadd] = opIadd
	dispatchTable[bytecode.OpLadd] = opLadd
	dispatchTable[bytecode.OpFadd] = opFadd
	dispatchTable[bytecode.OpDadd] = opDadd
	dispatchTable[bytecode.OpIsub] = opIsub
	dispatchTable[bytecode.OpLsub] = opLsub
	dispatchTable[bytecode.OpFsub] = opFsub
	dispatchTable[bytecode.OpDsub] = opDsub
	dispatchTable[bytecode.OpImul] = opImul
	dispatchTable[bytecode.OpLmul] = opLmul
	dispatchTable[bytecode.OpFmul] = opFmul
	dispatchTable[bytecode.OpDmul] = opDmul
	dispatchTable[bytecode.OpIdiv] = opIdiv
	dispatchTable[bytecode.OpLdiv] = opLdiv
	dispatchTable[bytecode.OpFdiv] = opFdiv
	dispatchTable[bytecode.OpDdiv] = opDdiv
	dispatchTable[bytecode.OpIrem] = opIrem
	dispatchTable[bytecode.OpLrem] = opLrem
	dispatchTable[bytecode.OpFrem] = opFrem
	dispatchTable[bytecode.OpDrem] = opDrem
	dispatchTable[bytecode.OpIneg] = opIneg
	dispatchTable[bytecode.OpLneg] = opLneg
	dispatchTable[bytecode.OpFneg] = opFneg
	dispatchTable[bytecode.OpDneg] = opDneg

	// 位运算
	dispatchTable[bytecode.OpIshl] = opIshl
	dispatchTable[bytecode.OpLshl] = opLshl
	dispatchTable[bytecode.OpIshr] = opIshr
	dispatchTable[bytecode.OpLshr] = opLshr
	dispatchTable[bytecode.OpIushr] = opIushr
	dispatchTable[bytecode.OpLushr] = opLushr
	dispatchTable[bytecode.OpIand] = opIand
	dispatchTable[bytecode.OpLand] = opLand
	dispatchTable[bytecode.OpIor] = opIor
	dispatchTable[bytecode.OpLor] = opLor
	dispatchTable[bytecode.OpIxor] = opIxor
	dispatchTable[bytecode.OpLxor] = opLxor

	// 类型转换
	dispatchTable[bytecode.OpI2l] = opI2l
	dispatchTable[bytecode.OpI2f] = opI2f
	dispatchTable[bytecode.OpI2d] = opI2d
	dispatchTable[bytecode.OpL2i] = opL2i
	dispatchTable[bytecode.OpL2f] = opL2f
	dispatchTable[bytecode.OpL2d] = opL2d
	dispatchTable[bytecode.OpF2i] = opF2i
	dispatchTable[bytecode.OpF2l] = opF2l
	dispatchTable[bytecode.OpF2d] = opF2d
	dispatchTable[bytecode.OpD2i] = opD2i
	dispatchTable[bytecode.OpD2l] = opD2l
	dispatchTable[bytecode.OpD2f] = opD2f
	dispatchTable[bytecode.OpI2b] = opI2b
	dispatchTable[bytecode.OpI2c] = opI2c
	dispatchTable[bytecode.OpI2s] = opI2s

	// 比较
	dispatchTable[bytecode.OpLcmp] = opLcmp
	dispatchTable[bytecode.OpFcmpl] = opFcmp(-1)
	dispatchTable[bytecode.OpFcmpg] = opFcmp(1)
	dispatchTable[bytecode.OpDcmpl] = opDcmp(-1)
	dispatchTable[bytecode.OpDcmpg] = opDcmp(1)

	// 跳转
	dispatchTable[bytecode.OpIfeq] = opIf(func(v int32) bool { return v == 0 })
	dispatchTable[bytecode.OpIfne] = opIf(func(v int32) bool { return v != 0 })
	dispatchTable[bytecode.OpIflt] = opIf(func(v int32) bool { return v < 0 })
	dispatchTable[bytecode.OpIfge] = opIf(func(v int32) bool { return v >= 0 })
	dispatchTable[bytecode.OpIfgt] = opIf(func(v int32) bool { return v > 0 })
	dispatchTable[bytecode.OpIfle] = opIf(func(v int32) bool { return v <= 0 })
	dispatchTable[bytecode.OpIfIcmpeq] = opIfIcmp(func(a, b int32) bool { return a == b })
	dispatchTable[bytecode.OpIfIcmpne] = opIfIcmp(func(a, b int32) bool { return a != b })
	dispatchTable[bytecode.OpIfIcmplt] = opIfIcmp(func(a, b int32) bool { return a < b })
	dispatchTable[bytecode.OpIfIcmpge] = opIfIcmp(func(a, b int32) bool { return a >= b })
	dispatchTable[bytecode.OpIfIcmpgt] = opIfIcmp(func(a, b int32) bool { return a > b })
	dispatchTable[bytecode.OpIfIcmple] = opIfIcmp(func(a, b int32) bool { return a <= b })
	dispatchTable[bytecode.OpIfAcmpeq] = opIfAcmp(true)
	dispatchTable[bytecode.OpIfAcmpne] = opIfAcmp(false)
	dispatchTable[bytecode.OpIfnull] = opIfNull(true)
	dispatchTable[bytecode.OpIfnonnull] = opIfNull(false)
	dispatchTable[bytecode.OpGoto] = opGoto
	dispatchTable[bytecode.OpGotoW] = opGotoW
	dispatchTable[bytecode.OpTableswitch] = opTableswitch
	dispatchTable[bytecode.OpLookupswitch] = opLookupswitch

	// 返回
	dispatchTable[bytecode.OpIreturn] = opReturnValue(TypeInt, 1)
	dispatchTable[bytecode.OpLreturn] = opReturnValue(TypeLong, 2)
	dispatchTable[bytecode.OpFreturn] = opReturnValue(TypeFloat, 1)
	dispatchTable[bytecode.OpDreturn] = opReturnValue(TypeDouble, 2)
	dispatchTable[bytecode.OpAreturn] = opAreturn
	dispatchTable[bytecode.OpReturn] = opReturn

	// 字段与对象
	dispatchTable[bytecode.OpGetstatic] = opGetstatic
	dispatchTable[bytecode.OpPutstatic] = opPutstatic
	dispatchTable[bytecode.OpGetfield] = opGetfield
	dispatchTable[bytecode.OpPutfield] = opPutfield
	dispatchTable[bytecode.OpNew] = opNew
	dispatchTable[bytecode.OpCheckcast] = opCheckcast
	dispatchTable[bytecode.OpInstanceof] = opInstanceof
	dispatchTable[bytecode.OpAthrow] = opAthrow
	dispatchTable[bytecode.OpMonitorenter] = opMonitor
	dispatchTable[bytecode.OpMonitorexit] = opMonitor

	// 方法调用
	dispatchTable[bytecode.OpInvokevirtual] = opInvokevirtual
	dispatchTable[bytecode.OpInvokespecial] = opInvokespecial
	dispatchTable[bytecode.OpInvokestatic] = opInvokestatic
	dispatchTable[bytecode.OpInvokeinterface] = opInvokeinterface
	dispatchTable[bytecode.OpInvokedynamic] = opInvokedynamic
}

// opInvalid 未实现或未定义的操作码
func opInvalid(in *Interpreter, f *Frame) {
	pc := f.Code.InstructionStart()
	panic(errors.NewUnsupportedInstructionError(f.Code.Opcode(), pc))
}

func opNop(in *Interpreter, f *Frame) {}

// ============================================================================
// 操作数读取
// ============================================================================

func readU1(f *Frame) uint8 {
	v, err := f.Code.U1()
	if err != nil {
		raise(err)
	}
	return v
}

func readS1(f *Frame) int8 {
	v, err := f.Code.S1()
	if err != nil {
		raise(err)
	}
	return v
}

func readU2(f *Frame) uint16 {
	v, err := f.Code.U2()
	if err != nil {
		raise(err)
	}
	return v
}

func readS2(f *Frame) int16 {
	v, err := f.Code.S2()
	if err != nil {
		raise(err)
	}
	return v
}

func readS4(f *Frame) int32 {
	v, err := f.Code.S4()
	if err != nil {
		raise(err)
	}
	return v
}

// branch 跳转到本条指令起点加 offset 处
func branch(f *Frame, offset int32) {
	if err := f.Code.Branch(offset); err != nil {
		raise(err)
	}
}
