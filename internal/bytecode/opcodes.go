// Package bytecode 定义 JVM 指令集、指令流与反汇编
package bytecode

import "fmt"

// OpCode 操作码类型
type OpCode byte

const (
	// 常量
	OpNop        OpCode = 0x00
	OpAconstNull OpCode = 0x01
	OpIconstM1   OpCode = 0x02
	OpIconst0    OpCode = 0x03
	OpIconst1    OpCode = 0x04
	OpIconst2    OpCode = 0x05
	OpIconst3    OpCode = 0x06
	OpIconst4    OpCode = 0x07
	OpIconst5    OpCode = 0x08
	OpLconst0    OpCode = 0x09
	OpLconst1    OpCode = 0x0a
	OpFconst0    OpCode = 0x0b
	OpFconst1    OpCode = 0x0c
	OpFconst2    OpCode = 0x0d
	OpDconst0    OpCode = 0x0e
	OpDconst1    OpCode = 0x0f
	OpBipush     OpCode = 0x10
	OpSipush     OpCode = 0x11
	OpLdc        OpCode = 0x12
	OpLdcW       OpCode = 0x13
	OpLdc2W      OpCode = 0x14

	// 局部变量加载
	OpIload  OpCode = 0x15
	OpLload  OpCode = 0x16
	OpFload  OpCode = 0x17
	OpDload  OpCode = 0x18
	OpAload  OpCode = 0x19
	OpIload0 OpCode = 0x1a
	OpIload1 OpCode = 0x1b
	OpIload2 OpCode = 0x1c
	OpIload3 OpCode = 0x1d
	OpLload0 OpCode = 0x1e
	OpLload1 OpCode = 0x1f
	OpLload2 OpCode = 0x20
	OpLload3 OpCode = 0x21
	OpFload0 OpCode = 0x22
	OpFload1 OpCode = 0x23
	OpFload2 OpCode = 0x24
	OpFload3 OpCode = 0x25
	OpDload0 OpCode = 0x26
	OpDload1 OpCode = 0x27
	OpDload2 OpCode = 0x28
	OpDload3 OpCode = 0x29
	OpAload0 OpCode = 0x2a
	OpAload1 OpCode = 0x2b
	OpAload2 OpCode = 0x2c
	OpAload3 OpCode = 0x2d
	OpIaload OpCode = 0x2e
	OpLaload OpCode = 0x2f
	OpFaload OpCode = 0x30
	OpDaload OpCode = 0x31
	OpAaload OpCode = 0x32
	OpBaload OpCode = 0x33
	OpCaload OpCode = 0x34
	OpSaload OpCode = 0x35

	// 局部变量存储
	OpIstore  OpCode = 0x36
	OpLstore  OpCode = 0x37
	OpFstore  OpCode = 0x38
	OpDstore  OpCode = 0x39
	OpAstore  OpCode = 0x3a
	OpIstore0 OpCode = 0x3b
	OpIstore1 OpCode = 0x3c
	OpIstore2 OpCode = 0x3d
	OpIstore3 OpCode = 0x3e
	OpLstore0 OpCode = 0x3f
	OpLstore1 OpCode = 0x40
	OpLstore2 OpCode = 0x41
	OpLstore3 OpCode = 0x42
	OpFstore0 OpCode = 0x43
	OpFstore1 OpCode = 0x44
	OpFstore2 OpCode = 0x45
	OpFstore3 OpCode = 0x46
	OpDstore0 OpCode = 0x47
	OpDstore1 OpCode = 0x48
	OpDstore2 OpCode = 0x49
	OpDstore3 OpCode = 0x4a
	OpAstore0 OpCode = 0x4b
	OpAstore1 OpCode = 0x4c
	OpAstore2 OpCode = 0x4d
	OpAstore3 OpCode = 0x4e
	OpIastore OpCode = 0x4f
	OpLastore OpCode = 0x50
	OpFastore OpCode = 0x51
	OpDastore OpCode = 0x52
	OpAastore OpCode = 0x53
	OpBastore OpCode = 0x54
	OpCastore OpCode = 0x55
	OpSastore OpCode = 0x56

	// 栈操作
	OpPop    OpCode = 0x57
	OpPop2   OpCode = 0x58
	OpDup    OpCode = 0x59
	OpDupX1  OpCode = 0x5a
	OpDupX2  OpCode = 0x5b
	OpDup2   OpCode = 0x5c
	OpDup2X1 OpCode = 0x5d
	OpDup2X2 OpCode = 0x5e
	OpSwap   OpCode = 0x5f

	// 算术运算
	OpIadd OpCode = 0x60
	OpLadd OpCode = 0x61
	OpFadd OpCode = 0x62
	OpDadd OpCode = 0x63
	OpIsub OpCode = 0x64
	OpLsub OpCode = 0x65
	OpFsub OpCode = 0x66
	OpDsub OpCode = 0x67
	OpImul OpCode = 0x68
	OpLmul OpCode = 0x69
	OpFmul OpCode = 0x6a
	OpDmul OpCode = 0x6b
	OpIdiv OpCode = 0x6c
	OpLdiv OpCode = 0x6d
	OpFdiv OpCode = 0x6e
	OpDdiv OpCode = 0x6f
	OpIrem OpCode = 0x70
	OpLrem OpCode = 0x71
	OpFrem OpCode = 0x72
	OpDrem OpCode = 0x73
	OpIneg OpCode = 0x74
	OpLneg OpCode = 0x75
	OpFneg OpCode = 0x76
	OpDneg OpCode = 0x77

	// 位运算
	OpIshl  OpCode = 0x78
	OpLshl  OpCode = 0x79
	OpIshr  OpCode = 0x7a
	OpLshr  OpCode = 0x7b
	OpIushr OpCode = 0x7c
	OpLushr OpCode = 0x7d
	OpIand  OpCode = 0x7e
	OpLand  OpCode = 0x7f
	OpIor   OpCode = 0x80
	OpLor   OpCode = 0x81
	OpIxor  OpCode = 0x82
	OpLxor  OpCode = 0x83
	OpIinc  OpCode = 0x84

	// 类型转换
	OpI2l OpCode = 0x85
	OpI2f OpCode = 0x86
	OpI2d OpCode = 0x87
	OpL2i OpCode = 0x88
	OpL2f OpCode = 0x89
	OpL2d OpCode = 0x8a
	OpF2i OpCode = 0x8b
	OpF2l OpCode = 0x8c
	OpF2d OpCode = 0x8d
	OpD2i OpCode = 0x8e
	OpD2l OpCode = 0x8f
	OpD2f OpCode = 0x90
	OpI2b OpCode = 0x91
	OpI2c OpCode = 0x92
	OpI2s OpCode = 0x93

	// 比较与跳转
	OpLcmp     OpCode = 0x94
	OpFcmpl    OpCode = 0x95
	OpFcmpg    OpCode = 0x96
	OpDcmpl    OpCode = 0x97
	OpDcmpg    OpCode = 0x98
	OpIfeq     OpCode = 0x99
	OpIfne     OpCode = 0x9a
	OpIflt     OpCode = 0x9b
	OpIfge     OpCode = 0x9c
	OpIfgt     OpCode = 0x9d
	OpIfle     OpCode = 0x9e
	OpIfIcmpeq OpCode = 0x9f
	OpIfIcmpne OpCode = 0xa0
	OpIfIcmplt OpCode = 0xa1
	OpIfIcmpge OpCode = 0xa2
	OpIfIcmpgt OpCode = 0xa3
	OpIfIcmple OpCode = 0xa4
	OpIfAcmpeq OpCode = 0xa5
	OpIfAcmpne OpCode = 0xa6
	OpGoto     OpCode = 0xa7
	OpJsr      OpCode = 0xa8
	OpRet      OpCode = 0xa9

	// 分支表
	OpTableswitch  OpCode = 0xaa
	OpLookupswitch OpCode = 0xab

	// 返回
	OpIreturn OpCode = 0xac
	OpLreturn OpCode = 0xad
	OpFreturn OpCode = 0xae
	OpDreturn OpCode = 0xaf
	OpAreturn OpCode = 0xb0
	OpReturn  OpCode = 0xb1

	// 字段与方法
	OpGetstatic       OpCode = 0xb2
	OpPutstatic       OpCode = 0xb3
	OpGetfield        OpCode = 0xb4
	OpPutfield        OpCode = 0xb5
	OpInvokevirtual   OpCode = 0xb6
	OpInvokespecial   OpCode = 0xb7
	OpInvokestatic    OpCode = 0xb8
	OpInvokeinterface OpCode = 0xb9
	OpInvokedynamic   OpCode = 0xba

	// 对象
	OpNew          OpCode = 0xbb
	OpNewarray     OpCode = 0xbc
	OpAnewarray    OpCode = 0xbd
	OpArraylength  OpCode = 0xbe
	OpAthrow       OpCode = 0xbf
	OpCheckcast    OpCode = 0xc0
	OpInstanceof   OpCode = 0xc1
	OpMonitorenter OpCode = 0xc2
	OpMonitorexit  OpCode = 0xc3

	// 扩展
	OpWide           OpCode = 0xc4
	OpMultianewarray OpCode = 0xc5
	OpIfnull         OpCode = 0xc6
	OpIfnonnull      OpCode = 0xc7
	OpGotoW          OpCode = 0xc8
	OpJsrW           OpCode = 0xc9
)

// 操作数布局
const (
	operandsVariable = -1 // tableswitch、lookupswitch、wide
)

// opInfo 操作码的助记符与操作数字节数
type opInfo struct {
	name     string
	operands int
}

var opInfos = map[OpCode]opInfo{
	OpNop: {"nop", 0}, OpAconstNull: {"aconst_null", 0},
	OpIconstM1: {"iconst_m1", 0}, OpIconst0: {"iconst_0", 0}, OpIconst1: {"iconst_1", 0},
	OpIconst2: {"iconst_2", 0}, OpIconst3: {"iconst_3", 0}, OpIconst4: {"iconst_4", 0},
	OpIconst5: {"iconst_5", 0}, OpLconst0: {"lconst_0", 0}, OpLconst1: {"lconst_1", 0},
	OpFconst0: {"fconst_0", 0}, OpFconst1: {"fconst_1", 0}, OpFconst2: {"fconst_2", 0},
	OpDconst0: {"dconst_0", 0}, OpDconst1: {"dconst_1", 0},
	OpBipush: {"bipush", 1}, OpSipush: {"sipush", 2},
	OpLdc: {"ldc", 1}, OpLdcW: {"ldc_w", 2}, OpLdc2W: {"ldc2_w", 2},

	OpIload: {"iload", 1}, OpLload: {"lload", 1}, OpFload: {"fload", 1},
	OpDload: {"dload", 1}, OpAload: {"aload", 1},
	OpIload0: {"iload_0", 0}, OpIload1: {"iload_1", 0}, OpIload2: {"iload_2", 0}, OpIload3: {"iload_3", 0},
	OpLload0: {"lload_0", 0}, OpLload1: {"lload_1", 0}, OpLload2: {"lload_2", 0}, OpLload3: {"lload_3", 0},
	OpFload0: {"fload_0", 0}, OpFload1: {"fload_1", 0}, OpFload2: {"fload_2", 0}, OpFload3: {"fload_3", 0},
	OpDload0: {"dload_0", 0}, OpDload1: {"dload_1", 0}, OpDload2: {"dload_2", 0}, OpDload3: {"dload_3", 0},
	OpAload0: {"aload_0", 0}, OpAload1: {"aload_1", 0}, OpAload2: {"aload_2", 0}, OpAload3: {"aload_3", 0},
	OpIaload: {"iaload", 0}, OpLaload: {"laload", 0}, OpFaload: {"faload", 0}, OpDaload: {"daload", 0},
	OpAaload: {"aaload", 0}, OpBaload: {"baload", 0}, OpCaload: {"caload", 0}, OpSaload: {"saload", 0},

	OpIstore: {"istore", 1}, OpLstore: {"lstore", 1}, OpFstore: {"fstore", 1},
	OpDstore: {"dstore", 1}, OpAstore: {"astore", 1},
	OpIstore0: {"istore_0", 0}, OpIstore1: {"istore_1", 0}, OpIstore2: {"istore_2", 0}, OpIstore3: {"istore_3", 0},
	OpLstore0: {"lstore_0", 0}, OpLstore1: {"lstore_1", 0}, OpLstore2: {"lstore_2", 0}, OpLstore3: {"lstore_3", 0},
	OpFstore0: {"fstore_0", 0}, OpFstore1: {"fstore_1", 0}, OpFstore2: {"fstore_2", 0}, OpFstore3: {"fstore_3", 0},
	OpDstore0: {"dstore_0", 0}, OpDstore1: {"dstore_1", 0}, OpDstore2: {"dstore_2", 0}, OpDstore3: {"dstore_3", 0},
	OpAstore0: {"astore_0", 0}, OpAstore1: {"astore_1", 0}, OpAstore2: {"astore_2", 0}, OpAstore3: {"astore_3", 0},
	OpIastore: {"iastore", 0}, OpLastore: {"lastore", 0}, OpFastore: {"fastore", 0}, OpDastore: {"dastore", 0},
	OpAastore: {"aastore", 0}, OpBastore: {"bastore", 0}, OpCastore: {"castore", 0}, OpSastore: {"sastore", 0},

	OpPop: {"pop", 0}, OpPop2: {"pop2", 0}, OpDup: {"dup", 0}, OpDupX1: {"dup_x1", 0},
	OpDupX2: {"dup_x2", 0}, OpDup2: {"dup2", 0}, OpDup2X1: {"dup2_x1", 0}, OpDup2X2: {"dup2_x2", 0},
	OpSwap: {"swap", 0},

	OpIadd: {"iadd", 0}, OpLadd: {"ladd", 0}, OpFadd: {"fadd", 0}, OpDadd: {"dadd", 0},
	OpIsub: {"isub", 0}, OpLsub: {"lsub", 0}, OpFsub: {"fsub", 0}, OpDsub: {"dsub", 0},
	OpImul: {"imul", 0}, OpLmul: {"lmul", 0}, OpFmul: {"fmul", 0}, OpDmul: {"dmul", 0},
	OpIdiv: {"idiv", 0}, OpLdiv: {"ldiv", 0}, OpFdiv: {"fdiv", 0}, OpDdiv: {"ddiv", 0},
	OpIrem: {"irem", 0}, OpLrem: {"lrem", 0}, OpFrem: {"frem", 0}, OpDrem: {"drem", 0},
	OpIneg: {"ineg", 0}, OpLneg: {"lneg", 0}, OpFneg: {"fneg", 0}, OpDneg: {"dneg", 0},

	OpIshl: {"ishl", 0}, OpLshl: {"lshl", 0}, OpIshr: {"ishr", 0}, OpLshr: {"lshr", 0},
	OpIushr: {"iushr", 0}, OpLushr: {"lushr", 0}, OpIand: {"iand", 0}, OpLand: {"land", 0},
	OpIor: {"ior", 0}, OpLor: {"lor", 0}, OpIxor: {"ixor", 0}, OpLxor: {"lxor", 0},
	OpIinc: {"iinc", 2},

	OpI2l: {"i2l", 0}, OpI2f: {"i2f", 0}, OpI2d: {"i2d", 0}, OpL2i: {"l2i", 0},
	OpL2f: {"l2f", 0}, OpL2d: {"l2d", 0}, OpF2i: {"f2i", 0}, OpF2l: {"f2l", 0},
	OpF2d: {"f2d", 0}, OpD2i: {"d2i", 0}, OpD2l: {"d2l", 0}, OpD2f: {"d2f", 0},
	OpI2b: {"i2b", 0}, OpI2c: {"i2c", 0}, OpI2s: {"i2s", 0},

	OpLcmp: {"lcmp", 0}, OpFcmpl: {"fcmpl", 0}, OpFcmpg: {"fcmpg", 0},
	OpDcmpl: {"dcmpl", 0}, OpDcmpg: {"dcmpg", 0},
	OpIfeq: {"ifeq", 2}, OpIfne: {"ifne", 2}, OpIflt: {"iflt", 2},
	OpIfge: {"ifge", 2}, OpIfgt: {"ifgt", 2}, OpIfle: {"ifle", 2},
	OpIfIcmpeq: {"if_icmpeq", 2}, OpIfIcmpne: {"if_icmpne", 2}, OpIfIcmplt: {"if_icmplt", 2},
	OpIfIcmpge: {"if_icmpge", 2}, OpIfIcmpgt: {"if_icmpgt", 2}, OpIfIcmple: {"if_icmple", 2},
	OpIfAcmpeq: {"if_acmpeq", 2}, OpIfAcmpne: {"if_acmpne", 2},
	OpGoto: {"goto", 2}, OpJsr: {"jsr", 2}, OpRet: {"ret", 1},
	OpTableswitch: {"tableswitch", operandsVariable}, OpLookupswitch: {"lookupswitch", operandsVariable},

	OpIreturn: {"ireturn", 0}, OpLreturn: {"lreturn", 0}, OpFreturn: {"freturn", 0},
	OpDreturn: {"dreturn", 0}, OpAreturn: {"areturn", 0}, OpReturn: {"return", 0},

	OpGetstatic: {"getstatic", 2}, OpPutstatic: {"putstatic", 2},
	OpGetfield: {"getfield", 2}, OpPutfield: {"putfield", 2},
	OpInvokevirtual: {"invokevirtual", 2}, OpInvokespecial: {"invokespecial", 2},
	OpInvokestatic: {"invokestatic", 2}, OpInvokeinterface: {"invokeinterface", 4},
	OpInvokedynamic: {"invokedynamic", 4},

	OpNew: {"new", 2}, OpNewarray: {"newarray", 1}, OpAnewarray: {"anewarray", 2},
	OpArraylength: {"arraylength", 0}, OpAthrow: {"athrow", 0},
	OpCheckcast: {"checkcast", 2}, OpInstanceof: {"instanceof", 2},
	OpMonitorenter: {"monitorenter", 0}, OpMonitorexit: {"monitorexit", 0},

	OpWide: {"wide", operandsVariable}, OpMultianewarray: {"multianewarray", 3},
	OpIfnull: {"ifnull", 2}, OpIfnonnull: {"ifnonnull", 2},
	OpGotoW: {"goto_w", 4}, OpJsrW: {"jsr_w", 4},
}

// String 返回助记符
func (op OpCode) String() string {
	if info, ok := opInfos[op]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(op))
}

// Known 是否为 JVM 规范定义的操作码
func (op OpCode) Known() bool {
	_, ok := opInfos[op]
	return ok
}

// OperandWidth 返回定长操作数的字节数，变长指令返回 -1
func (op OpCode) OperandWidth() int {
	if info, ok := opInfos[op]; ok {
		return info.operands
	}
	return 0
}

// IsBranch 是否为带 16 位偏移的条件/无条件跳转
func (op OpCode) IsBranch() bool {
	return (op >= OpIfeq && op <= OpJsr) || op == OpIfnull || op == OpIfnonnull
}
