package jvmgen

import (
	"fmt"

	"github.com/tangzhangming/sjvm/internal/bytecode"
)

// Label 跳转目标
type Label int

type branchFixup struct {
	at    int // 偏移字段的位置
	start int // 跳转指令的起点
	label Label
}

type lineEntry struct {
	pc   uint16
	line uint16
}

type localEntry struct {
	start, length uint16
	name, desc    string
	index         uint16
}

// Code 方法体构建器
type Code struct {
	w         *ByteWriter
	MaxStack  uint16
	MaxLocals uint16
	labels    []int
	fixups    []branchFixup
	lines     []lineEntry
	locals    []localEntry
	extra     []RawAttribute
}

// NewCode 创建方法体
func NewCode(maxStack, maxLocals uint16) *Code {
	return &Code{w: NewByteWriter(), MaxStack: maxStack, MaxLocals: maxLocals}
}

// PC 当前写入位置
func (c *Code) PC() int {
	return c.w.Len()
}

// Op 写入一个操作码
func (c *Code) Op(ops ...bytecode.OpCode) *Code {
	for _, op := range ops {
		c.w.WriteU8(uint8(op))
	}
	return c
}

// U1 写入单字节操作数
func (c *Code) U1(v uint8) *Code {
	c.w.WriteU8(v)
	return c
}

// U2 写入双字节操作数
func (c *Code) U2(v uint16) *Code {
	c.w.WriteU16(v)
	return c
}

// S2 写入有符号双字节操作数
func (c *Code) S2(v int16) *Code {
	c.w.WriteU16(uint16(v))
	return c
}

// S4 写入有符号四字节操作数
func (c *Code) S4(v int32) *Code {
	c.w.WriteU32(uint32(v))
	return c
}

// Bipush 压入一个字节常量
func (c *Code) Bipush(v int8) *Code {
	return c.Op(bytecode.OpBipush).U1(uint8(v))
}

// Sipush 压入一个短整型常量
func (c *Code) Sipush(v int16) *Code {
	return c.Op(bytecode.OpSipush).S2(v)
}

// Ldc 按索引大小选择 ldc 或 ldc_w
func (c *Code) Ldc(index uint16) *Code {
	if index < 256 {
		return c.Op(bytecode.OpLdc).U1(uint8(index))
	}
	return c.Op(bytecode.OpLdcW).U2(index)
}

// Ref 写入以常量池索引为操作数的指令（getstatic、invokevirtual、new 等）。
// invokeinterface 使用 InvokeInterface。
func (c *Code) Ref(op bytecode.OpCode, index uint16) *Code {
	c.Op(op).U2(index)
	if op == bytecode.OpInvokedynamic {
		c.U2(0)
	}
	return c
}

// InvokeInterface 写入 invokeinterface，count 为参数槽数加一
func (c *Code) InvokeInterface(index uint16, count uint8) *Code {
	return c.Op(bytecode.OpInvokeinterface).U2(index).U1(count).U1(0)
}

// NewLabel 创建尚未绑定的标签
func (c *Code) NewLabel() Label {
	c.labels = append(c.labels, -1)
	return Label(len(c.labels) - 1)
}

// Mark 把标签绑定到当前位置
func (c *Code) Mark(l Label) *Code {
	c.labels[l] = c.PC()
	return c
}

// Jump 写入 16 位偏移的跳转指令，偏移在 Bytes 时回填
func (c *Code) Jump(op bytecode.OpCode, l Label) *Code {
	start := c.PC()
	c.Op(op)
	c.fixups = append(c.fixups, branchFixup{at: c.PC(), start: start, label: l})
	return c.U2(0)
}

// Pad4 写入 tableswitch / lookupswitch 所需的对齐填充
func (c *Code) Pad4() *Code {
	for c.PC()%4 != 0 {
		c.w.WriteU8(0)
	}
	return c
}

// Line 记录当前位置对应的源代码行
func (c *Code) Line(n uint16) *Code {
	c.lines = append(c.lines, lineEntry{pc: uint16(c.PC()), line: n})
	return c
}

// Local 记录局部变量表条目
func (c *Code) Local(start, length uint16, name, desc string, index uint16) *Code {
	c.locals = append(c.locals, localEntry{start, length, name, desc, index})
	return c
}

// Attribute 附加一个原样写出的 Code 子属性，例如 StackMapTable
func (c *Code) Attribute(name string, info []byte) *Code {
	c.extra = append(c.extra, RawAttribute{Name: name, Info: info})
	return c
}

// Bytes 回填跳转偏移后返回字节码
func (c *Code) Bytes() ([]byte, error) {
	for _, f := range c.fixups {
		target := c.labels[f.label]
		if target < 0 {
			return nil, fmt.Errorf("label %d used at pc %d is never marked", f.label, f.start)
		}
		c.w.PatchU16(f.at, uint16(int16(target-f.start)))
	}
	return c.w.Bytes(), nil
}
