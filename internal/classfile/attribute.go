package classfile

import "sort"

// 属性名
const (
	AttrCode               = "Code"
	AttrSourceFile         = "SourceFile"
	AttrBootstrapMethods   = "BootstrapMethods"
	AttrInnerClasses       = "InnerClasses"
	AttrLineNumberTable    = "LineNumberTable"
	AttrLocalVariableTable = "LocalVariableTable"
)

// Attribute Code 属性内部的嵌套属性
type Attribute interface {
	AttributeName() string
}

// AttributeInfo 类级属性的原始形式
type AttributeInfo struct {
	NameIndex uint16
	Name      string
	Length    uint32
	Info      []byte
}

// ExceptionTableEntry 异常表条目。只解析不分派。
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttributeInfo 方法的 Code 属性
type CodeAttributeInfo struct {
	NameIndex      uint16
	Length         uint32
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     map[string]Attribute
}

// LineNumberTable 返回行号表，没有时返回 nil
func (c *CodeAttributeInfo) LineNumberTable() *LineNumberTable {
	if t, ok := c.Attributes[AttrLineNumberTable].(*LineNumberTable); ok {
		return t
	}
	return nil
}

// LocalVariableTable 返回局部变量表，没有时返回 nil
func (c *CodeAttributeInfo) LocalVariableTable() *LocalVariableTable {
	if t, ok := c.Attributes[AttrLocalVariableTable].(*LocalVariableTable); ok {
		return t
	}
	return nil
}

// LineNumber 返回 pc 所在源代码行，未知时返回 0
func (c *CodeAttributeInfo) LineNumber(pc int) int {
	if t := c.LineNumberTable(); t != nil {
		return t.Lookup(pc)
	}
	return 0
}

// LineNumberEntry 行号表条目
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// LineNumberTable 行号表，条目按 StartPC 升序
type LineNumberTable struct {
	Entries []LineNumberEntry
}

func (t *LineNumberTable) AttributeName() string { return AttrLineNumberTable }

// Lookup 查找 pc 对应的行号：StartPC 不大于 pc 的最后一条
func (t *LineNumberTable) Lookup(pc int) int {
	i := sort.Search(len(t.Entries), func(i int) bool {
		return int(t.Entries[i].StartPC) > pc
	})
	if i == 0 {
		return 0
	}
	return int(t.Entries[i-1].LineNumber)
}

// LocalVariableEntry 局部变量表条目
type LocalVariableEntry struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

// LocalVariableTable 局部变量表
type LocalVariableTable struct {
	Entries []LocalVariableEntry
}

func (t *LocalVariableTable) AttributeName() string { return AttrLocalVariableTable }

// Find 返回在 pc 处存活、占用槽位 index 的变量
func (t *LocalVariableTable) Find(index, pc int) (LocalVariableEntry, bool) {
	for _, e := range t.Entries {
		if int(e.Index) == index && pc >= int(e.StartPC) && pc < int(e.StartPC)+int(e.Length) {
			return e, true
		}
	}
	return LocalVariableEntry{}, false
}

// BootstrapMethod BootstrapMethods 属性中的一项
type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

// InnerClassEntry InnerClasses 属性中的一项
type InnerClassEntry struct {
	InnerClassIndex  uint16
	OuterClassIndex  uint16
	InnerNameIndex   uint16
	InnerAccessFlags AccessFlags
}
