package classfile

import (
	"fmt"
	"unicode/utf16"
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
	ConstantDynamic            = 17
	ConstantInvokeDynamic      = 18
)

// MethodHandle 的引用类型
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

var constantTagNames = map[uint8]string{
	ConstantUtf8:               "Utf8",
	ConstantInteger:            "Integer",
	ConstantFloat:              "Float",
	ConstantLong:               "Long",
	ConstantDouble:             "Double",
	ConstantClass:              "Class",
	ConstantString:             "String",
	ConstantFieldref:           "Fieldref",
	ConstantMethodref:          "Methodref",
	ConstantInterfaceMethodref: "InterfaceMethodref",
	ConstantNameAndType:        "NameAndType",
	ConstantMethodHandle:       "MethodHandle",
	ConstantMethodType:         "MethodType",
	ConstantDynamic:            "Dynamic",
	ConstantInvokeDynamic:      "InvokeDynamic",
}

// ConstantTagName 标签名，未知标签返回 "Tag(n)"
func ConstantTagName(tag uint8) string {
	if name, ok := constantTagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", tag)
}

// ConstantPoolEntry 常量池条目
type ConstantPoolEntry interface {
	Tag() uint8
}

// ConstantUtf8Info UTF8 字符串常量
type ConstantUtf8Info struct {
	Value string
}

func (c *ConstantUtf8Info) Tag() uint8 { return ConstantUtf8 }

// ConstantIntegerInfo 整型常量，解析器不接受该标签
type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() uint8 { return ConstantInteger }

// ConstantFloatInfo 单精度浮点常量
type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() uint8 { return ConstantFloat }

// ConstantLongInfo 长整型常量，占两个槽位
type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() uint8 { return ConstantLong }

// ConstantDoubleInfo 双精度浮点常量，占两个槽位
type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() uint8 { return ConstantDouble }

// ConstantClassInfo 类引用常量
type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() uint8 { return ConstantClass }

// ConstantStringInfo 字符串常量
type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() uint8 { return ConstantString }

// ConstantMemberrefInfo 字段、方法、接口方法引用
type ConstantMemberrefInfo struct {
	tag              uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMemberrefInfo) Tag() uint8 { return c.tag }

// ConstantNameAndTypeInfo 名称和类型描述符常量
type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() uint8 { return ConstantNameAndType }

// ConstantMethodHandleInfo 方法句柄常量
type ConstantMethodHandleInfo struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandleInfo) Tag() uint8 { return ConstantMethodHandle }

// ConstantMethodTypeInfo 方法类型常量
type ConstantMethodTypeInfo struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodTypeInfo) Tag() uint8 { return ConstantMethodType }

// ConstantDynamicInfo 动态常量与 invokedynamic 调用点
type ConstantDynamicInfo struct {
	tag                      uint8
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamicInfo) Tag() uint8 { return c.tag }

// decodeModifiedUTF8 解码 class 文件使用的变体 UTF-8：
// 空字符编码为 0xC0 0x80，补充平面字符编码为两个三字节代理项
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80 && c != 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("malformed 2-byte sequence at %d", i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("malformed 3-byte sequence at %d", i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("invalid byte 0x%02x at %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}
