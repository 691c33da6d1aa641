// Package jvmgen 组装 JVM class 文件，供测试和工具生成类夹具
package jvmgen

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

// Class 文件常量
const (
	ClassFileMagic    = 0xCAFEBABE
	ClassMajorVersion = 52 // Java 8
	ClassMinorVersion = 0
)

// 常量池标签
const (
	ConstantUtf8               = 1
	ConstantInteger            = 3
	ConstantFloat              = 4
	ConstantLong               = 5
	ConstantDouble             = 6
	ConstantClass              = 7
	ConstantString             = 8
	ConstantFieldref           = 9
	ConstantMethodref          = 10
	ConstantInterfaceMethodref = 11
	ConstantNameAndType        = 12
	ConstantMethodHandle       = 15
	ConstantMethodType         = 16
	ConstantInvokeDynamic      = 18
)

// 访问标志
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccNative    = 0x0100
	AccInterface = 0x0200
	AccAbstract  = 0x0400
	AccSynthetic = 0x1000
)

// ClassFile JVM class 文件结构
type ClassFile struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []MemberInfo
	Methods      []MemberInfo
	Attributes   []AttributeInfo
}

// ConstantPoolEntry 常量池条目
type ConstantPoolEntry interface {
	Tag() uint8
	Write(w io.Writer) error
}

// ConstantUtf8Info UTF8 字符串常量
type ConstantUtf8Info struct {
	Value string
}

func (c *ConstantUtf8Info) Tag() uint8 { return ConstantUtf8 }
func (c *ConstantUtf8Info) Write(w io.Writer) error {
	encoded := encodeModifiedUTF8(c.Value)
	return writeAll(w, c.Tag(), uint16(len(encoded)), encoded)
}

// ConstantIntegerInfo 整型常量
type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() uint8 { return ConstantInteger }
func (c *ConstantIntegerInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.Value)
}

// ConstantFloatInfo 单精度浮点常量
type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() uint8 { return ConstantFloat }
func (c *ConstantFloatInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), math.Float32bits(c.Value))
}

// ConstantLongInfo 长整型常量，占两个槽位
type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() uint8 { return ConstantLong }
func (c *ConstantLongInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.Value)
}

// ConstantDoubleInfo 双精度浮点常量，占两个槽位
type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() uint8 { return ConstantDouble }
func (c *ConstantDoubleInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), math.Float64bits(c.Value))
}

// wideSlot Long/Double 之后的占位槽位，不写出任何字节
type wideSlot struct{}

func (wideSlot) Tag() uint8              { return 0 }
func (wideSlot) Write(w io.Writer) error { return nil }

// ConstantClassInfo 类引用常量
type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() uint8 { return ConstantClass }
func (c *ConstantClassInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.NameIndex)
}

// ConstantStringInfo 字符串常量
type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() uint8 { return ConstantString }
func (c *ConstantStringInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.StringIndex)
}

// ConstantRefInfo 字段、方法、接口方法引用常量
type ConstantRefInfo struct {
	RefTag           uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantRefInfo) Tag() uint8 { return c.RefTag }
func (c *ConstantRefInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.ClassIndex, c.NameAndTypeIndex)
}

// ConstantNameAndTypeInfo 名称和类型描述符常量
type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() uint8 { return ConstantNameAndType }
func (c *ConstantNameAndTypeInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.NameIndex, c.DescriptorIndex)
}

// ConstantMethodHandleInfo 方法句柄常量
type ConstantMethodHandleInfo struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() uint8 { return ConstantMethodHandle }
func (c *ConstantMethodHandleInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.ReferenceKind, c.ReferenceIndex)
}

// ConstantMethodTypeInfo 方法类型常量
type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() uint8 { return ConstantMethodType }
func (c *ConstantMethodTypeInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.DescriptorIndex)
}

// ConstantInvokeDynamicInfo invokedynamic 调用点常量
type ConstantInvokeDynamicInfo struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamicInfo) Tag() uint8 { return ConstantInvokeDynamic }
func (c *ConstantInvokeDynamicInfo) Write(w io.Writer) error {
	return writeAll(w, c.Tag(), c.BootstrapMethodAttrIndex, c.NameAndTypeIndex)
}

// MemberInfo 字段或方法
type MemberInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

// AttributeInfo 属性信息
type AttributeInfo struct {
	NameIndex uint16
	Info      []byte
}

// NewClassFile 创建新的 class 文件
func NewClassFile() *ClassFile {
	return &ClassFile{
		Magic:        ClassFileMagic,
		MinorVersion: ClassMinorVersion,
		MajorVersion: ClassMajorVersion,
		AccessFlags:  AccPublic | AccSuper,
	}
}

// Write 将 class 文件写入 io.Writer
func (cf *ClassFile) Write(w io.Writer) error {
	if err := writeAll(w, cf.Magic, cf.MinorVersion, cf.MajorVersion); err != nil {
		return err
	}

	// Constant pool，count 包含 0 号槽位
	if err := writeAll(w, uint16(len(cf.ConstantPool)+1)); err != nil {
		return err
	}
	for _, cp := range cf.ConstantPool {
		if err := cp.Write(w); err != nil {
			return err
		}
	}

	if err := writeAll(w, cf.AccessFlags, cf.ThisClass, cf.SuperClass, uint16(len(cf.Interfaces))); err != nil {
		return err
	}
	for _, iface := range cf.Interfaces {
		if err := writeAll(w, iface); err != nil {
			return err
		}
	}

	for _, members := range [][]MemberInfo{cf.Fields, cf.Methods} {
		if err := writeAll(w, uint16(len(members))); err != nil {
			return err
		}
		for i := range members {
			if err := writeMemberInfo(w, &members[i]); err != nil {
				return err
			}
		}
	}

	return writeAttributes(w, cf.Attributes)
}

// ToBytes 将 class 文件转换为字节数组
func (cf *ClassFile) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := cf.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMemberInfo(w io.Writer, m *MemberInfo) error {
	if err := writeAll(w, m.AccessFlags, m.NameIndex, m.DescriptorIndex); err != nil {
		return err
	}
	return writeAttributes(w, m.Attributes)
}

func writeAttributes(w io.Writer, attrs []AttributeInfo) error {
	if err := writeAll(w, uint16(len(attrs))); err != nil {
		return err
	}
	for _, a := range attrs {
		if err := writeAll(w, a.NameIndex, uint32(len(a.Info)), a.Info); err != nil {
			return err
		}
	}
	return nil
}

// writeAll 依次以大端序写出定长值
func writeAll(w io.Writer, values ...interface{}) error {
	for _, v := range values {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// encodeModifiedUTF8 按 class 文件的变体 UTF-8 编码
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r != 0 && r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, byte(0xC0|r>>6), byte(0x80|r&0x3F))
		case r < 0x10000:
			out = append(out, byte(0xE0|r>>12), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
		default:
			// 补充平面字符拆成两个代理项分别编码
			r -= 0x10000
			for _, u := range []rune{0xD800 | (r >> 10), 0xDC00 | (r & 0x3FF)} {
				out = append(out, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
			}
		}
	}
	return out
}
