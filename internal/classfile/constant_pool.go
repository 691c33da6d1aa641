package classfile

import (
	"fmt"
	"strconv"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ConstantPool 常量池。下标从 1 开始，0 号槽位不用；
// Long/Double 占据 i 与 i+1 两个槽位，两个槽位指向同一条目。
type ConstantPool struct {
	entries []ConstantPoolEntry
}

// MemberRef 解析后的字段/方法引用
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

func (m MemberRef) String() string {
	return m.Class + "." + m.Name + ":" + m.Descriptor
}

// MethodHandleRef 解析后的方法句柄
type MethodHandleRef struct {
	Kind   uint8
	Member MemberRef
}

// DynamicRef 解析后的 invokedynamic / 动态常量
type DynamicRef struct {
	BootstrapIndex uint16
	Name           string
	Descriptor     string
}

// NewConstantPool 创建容量为 count 的常量池（count 为 class 文件中的 constant_pool_count）
func NewConstantPool(count int) *ConstantPool {
	if count < 1 {
		count = 1
	}
	return &ConstantPool{entries: make([]ConstantPoolEntry, count)}
}

// Len 返回 constant_pool_count（包括未使用的 0 号槽位）
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}

// set 写入槽位，Long/Double 同时写入下一个槽位
func (cp *ConstantPool) set(index int, e ConstantPoolEntry) {
	cp.entries[index] = e
	if isWide(e.Tag()) && index+1 < len(cp.entries) {
		cp.entries[index+1] = e
	}
}

func isWide(tag uint8) bool {
	return tag == ConstantLong || tag == ConstantDouble
}

// Entry 返回指定槽位的条目
func (cp *ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(cp.entries) || cp.entries[index] == nil {
		return nil, errors.NewResolutionError(errors.P0004,
			"constant pool index %d out of range [1, %d)", index, len(cp.entries))
	}
	return cp.entries[index], nil
}

// Tag 返回槽位的标签，无效槽位返回 0
func (cp *ConstantPool) Tag(index uint16) uint8 {
	e, err := cp.Entry(index)
	if err != nil {
		return 0
	}
	return e.Tag()
}

func (cp *ConstantPool) mismatch(index uint16, want string, got ConstantPoolEntry) error {
	return errors.NewResolutionError(errors.P0004,
		"constant pool index %d: expected %s, found %s", index, want, ConstantTagName(got.Tag()))
}

// Utf8 取 Utf8 常量
func (cp *ConstantPool) Utf8(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", err
	}
	u, ok := e.(*ConstantUtf8Info)
	if !ok {
		return "", cp.mismatch(index, "Utf8", e)
	}
	return u.Value, nil
}

// ClassName 取 Class 常量指向的内部类名
func (cp *ConstantPool) ClassName(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", err
	}
	c, ok := e.(*ConstantClassInfo)
	if !ok {
		return "", cp.mismatch(index, "Class", e)
	}
	return cp.Utf8(c.NameIndex)
}

// StringValue 取 String 常量的内容
func (cp *ConstantPool) StringValue(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", err
	}
	s, ok := e.(*ConstantStringInfo)
	if !ok {
		return "", cp.mismatch(index, "String", e)
	}
	return cp.Utf8(s.StringIndex)
}

// Float 取 Float 常量
func (cp *ConstantPool) Float(index uint16) (float32, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return 0, err
	}
	f, ok := e.(*ConstantFloatInfo)
	if !ok {
		return 0, cp.mismatch(index, "Float", e)
	}
	return f.Value, nil
}

// Long 取 Long 常量，index 与 index+1 返回同一个值
func (cp *ConstantPool) Long(index uint16) (int64, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return 0, err
	}
	l, ok := e.(*ConstantLongInfo)
	if !ok {
		return 0, cp.mismatch(index, "Long", e)
	}
	return l.Value, nil
}

// Double 取 Double 常量，index 与 index+1 返回同一个值
func (cp *ConstantPool) Double(index uint16) (float64, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return 0, err
	}
	d, ok := e.(*ConstantDoubleInfo)
	if !ok {
		return 0, cp.mismatch(index, "Double", e)
	}
	return d.Value, nil
}

// NameAndType 取名称与描述符
func (cp *ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", "", err
	}
	nt, ok := e.(*ConstantNameAndTypeInfo)
	if !ok {
		return "", "", cp.mismatch(index, "NameAndType", e)
	}
	if name, err = cp.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef 取 Fieldref / Methodref / InterfaceMethodref
func (cp *ConstantPool) MemberRef(index uint16) (MemberRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return MemberRef{}, err
	}
	m, ok := e.(*ConstantMemberrefInfo)
	if !ok {
		return MemberRef{}, cp.mismatch(index, "Fieldref/Methodref", e)
	}
	class, err := cp.ClassName(m.ClassIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := cp.NameAndType(m.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Class: class, Name: name, Descriptor: desc}, nil
}

// MethodHandle 取方法句柄
func (cp *ConstantPool) MethodHandle(index uint16) (MethodHandleRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return MethodHandleRef{}, err
	}
	h, ok := e.(*ConstantMethodHandleInfo)
	if !ok {
		return MethodHandleRef{}, cp.mismatch(index, "MethodHandle", e)
	}
	member, err := cp.MemberRef(h.ReferenceIndex)
	if err != nil {
		return MethodHandleRef{}, err
	}
	return MethodHandleRef{Kind: h.ReferenceKind, Member: member}, nil
}

// MethodType 取方法类型描述符
func (cp *ConstantPool) MethodType(index uint16) (string, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return "", err
	}
	t, ok := e.(*ConstantMethodTypeInfo)
	if !ok {
		return "", cp.mismatch(index, "MethodType", e)
	}
	return cp.Utf8(t.DescriptorIndex)
}

// Dynamic 取 InvokeDynamic / Dynamic 常量
func (cp *ConstantPool) Dynamic(index uint16) (DynamicRef, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return DynamicRef{}, err
	}
	d, ok := e.(*ConstantDynamicInfo)
	if !ok {
		return DynamicRef{}, cp.mismatch(index, "InvokeDynamic", e)
	}
	name, desc, err := cp.NameAndType(d.NameAndTypeIndex)
	if err != nil {
		return DynamicRef{}, err
	}
	return DynamicRef{BootstrapIndex: d.BootstrapMethodAttrIndex, Name: name, Descriptor: desc}, nil
}

// DescribeConstant 生成 javap 风格的常量描述，用于反汇编
func (cp *ConstantPool) DescribeConstant(index uint16) string {
	e, err := cp.Entry(index)
	if err != nil {
		return "<invalid>"
	}
	switch c := e.(type) {
	case *ConstantUtf8Info:
		return "Utf8 " + c.Value
	case *ConstantIntegerInfo:
		return "int " + strconv.Itoa(int(c.Value))
	case *ConstantFloatInfo:
		return "float " + strconv.FormatFloat(float64(c.Value), 'g', -1, 32)
	case *ConstantLongInfo:
		return "long " + strconv.FormatInt(c.Value, 10)
	case *ConstantDoubleInfo:
		return "double " + strconv.FormatFloat(c.Value, 'g', -1, 64)
	case *ConstantClassInfo:
		name, _ := cp.Utf8(c.NameIndex)
		return "class " + name
	case *ConstantStringInfo:
		s, _ := cp.Utf8(c.StringIndex)
		return "String " + s
	case *ConstantMemberrefInfo:
		m, err := cp.MemberRef(index)
		if err != nil {
			return "<invalid>"
		}
		kind := "Method"
		switch c.Tag() {
		case ConstantFieldref:
			kind = "Field"
		case ConstantInterfaceMethodref:
			kind = "InterfaceMethod"
		}
		return kind + " " + m.String()
	case *ConstantNameAndTypeInfo:
		name, desc, _ := cp.NameAndType(index)
		return "NameAndType " + name + ":" + desc
	case *ConstantMethodHandleInfo:
		h, err := cp.MethodHandle(index)
		if err != nil {
			return "<invalid>"
		}
		return fmt.Sprintf("MethodHandle %d:%s", h.Kind, h.Member)
	case *ConstantMethodTypeInfo:
		desc, _ := cp.Utf8(c.DescriptorIndex)
		return "MethodType " + desc
	case *ConstantDynamicInfo:
		d, err := cp.Dynamic(index)
		if err != nil {
			return "<invalid>"
		}
		return fmt.Sprintf("InvokeDynamic #%d:%s:%s", d.BootstrapIndex, d.Name, d.Descriptor)
	}
	return ConstantTagName(e.Tag())
}
