package jvmgen

import (
	"fmt"
	"math"
)

// RawAttribute 名称加原始内容的属性
type RawAttribute struct {
	Name string
	Info []byte
}

type bootstrapEntry struct {
	handle uint16
	args   []uint16
}

// Assembler class 文件组装器。常量池条目按内容去重。
type Assembler struct {
	classFile    *ClassFile
	constantPool []ConstantPoolEntry
	cpIndex      map[string]uint16 // 常量池索引缓存
	bootstrap    []bootstrapEntry
	sourceFile   string
	err          error
}

// NewAssembler 创建组装器，父类默认为 java/lang/Object
func NewAssembler(className string) *Assembler {
	a := &Assembler{
		classFile: NewClassFile(),
		cpIndex:   make(map[string]uint16),
	}
	a.classFile.ThisClass = a.Class(className)
	a.classFile.SuperClass = a.Class("java/lang/Object")
	return a
}

// SetSuper 设置父类，空字符串表示没有父类
func (a *Assembler) SetSuper(name string) *Assembler {
	if name == "" {
		a.classFile.SuperClass = 0
	} else {
		a.classFile.SuperClass = a.Class(name)
	}
	return a
}

// SetAccess 设置类访问标志
func (a *Assembler) SetAccess(flags uint16) *Assembler {
	a.classFile.AccessFlags = flags
	return a
}

// AddInterface 声明实现的接口
func (a *Assembler) AddInterface(name string) *Assembler {
	a.classFile.Interfaces = append(a.classFile.Interfaces, a.Class(name))
	return a
}

// SetSourceFile 设置 SourceFile 属性
func (a *Assembler) SetSourceFile(name string) *Assembler {
	a.sourceFile = name
	a.Utf8("SourceFile")
	a.Utf8(name)
	return a
}

// ============================================================================
// 常量池
// ============================================================================

func (a *Assembler) intern(key string, build func() ConstantPoolEntry) uint16 {
	if idx, ok := a.cpIndex[key]; ok {
		return idx
	}
	entry := build()
	a.constantPool = append(a.constantPool, entry)
	idx := uint16(len(a.constantPool))
	if tag := entry.Tag(); tag == ConstantLong || tag == ConstantDouble {
		a.constantPool = append(a.constantPool, wideSlot{})
	}
	a.cpIndex[key] = idx
	return idx
}

// Utf8 添加 Utf8 常量
func (a *Assembler) Utf8(value string) uint16 {
	return a.intern("utf8:"+value, func() ConstantPoolEntry {
		return &ConstantUtf8Info{Value: value}
	})
}

// Class 添加类引用
func (a *Assembler) Class(name string) uint16 {
	return a.intern("class:"+name, func() ConstantPoolEntry {
		return &ConstantClassInfo{NameIndex: a.Utf8(name)}
	})
}

// String 添加字符串常量
func (a *Assembler) String(value string) uint16 {
	return a.intern("string:"+value, func() ConstantPoolEntry {
		return &ConstantStringInfo{StringIndex: a.Utf8(value)}
	})
}

// Integer 添加整型常量
func (a *Assembler) Integer(v int32) uint16 {
	return a.intern(fmt.Sprintf("int:%d", v), func() ConstantPoolEntry {
		return &ConstantIntegerInfo{Value: v}
	})
}

// Float 添加单精度浮点常量
func (a *Assembler) Float(v float32) uint16 {
	return a.intern(fmt.Sprintf("float:%08x", math.Float32bits(v)), func() ConstantPoolEntry {
		return &ConstantFloatInfo{Value: v}
	})
}

// Long 添加长整型常量，占两个槽位
func (a *Assembler) Long(v int64) uint16 {
	return a.intern(fmt.Sprintf("long:%d", v), func() ConstantPoolEntry {
		return &ConstantLongInfo{Value: v}
	})
}

// Double 添加双精度浮点常量，占两个槽位
func (a *Assembler) Double(v float64) uint16 {
	return a.intern(fmt.Sprintf("double:%016x", math.Float64bits(v)), func() ConstantPoolEntry {
		return &ConstantDoubleInfo{Value: v}
	})
}

// NameAndType 添加名称与类型
func (a *Assembler) NameAndType(name, descriptor string) uint16 {
	return a.intern("nameandtype:"+name+":"+descriptor, func() ConstantPoolEntry {
		return &ConstantNameAndTypeInfo{NameIndex: a.Utf8(name), DescriptorIndex: a.Utf8(descriptor)}
	})
}

func (a *Assembler) ref(tag uint8, prefix, className, name, descriptor string) uint16 {
	return a.intern(prefix+className+"."+name+":"+descriptor, func() ConstantPoolEntry {
		return &ConstantRefInfo{
			RefTag:           tag,
			ClassIndex:       a.Class(className),
			NameAndTypeIndex: a.NameAndType(name, descriptor),
		}
	})
}

// Fieldref 添加字段引用
func (a *Assembler) Fieldref(className, name, descriptor string) uint16 {
	return a.ref(ConstantFieldref, "fieldref:", className, name, descriptor)
}

// Methodref 添加方法引用
func (a *Assembler) Methodref(className, name, descriptor string) uint16 {
	return a.ref(ConstantMethodref, "methodref:", className, name, descriptor)
}

// InterfaceMethodref 添加接口方法引用
func (a *Assembler) InterfaceMethodref(className, name, descriptor string) uint16 {
	return a.ref(ConstantInterfaceMethodref, "imethodref:", className, name, descriptor)
}

// MethodHandle 添加方法句柄
func (a *Assembler) MethodHandle(kind uint8, refIndex uint16) uint16 {
	return a.intern(fmt.Sprintf("handle:%d:%d", kind, refIndex), func() ConstantPoolEntry {
		return &ConstantMethodHandleInfo{ReferenceKind: kind, ReferenceIndex: refIndex}
	})
}

// MethodType 添加方法类型
func (a *Assembler) MethodType(descriptor string) uint16 {
	return a.intern("methodtype:"+descriptor, func() ConstantPoolEntry {
		return &ConstantMethodTypeInfo{DescriptorIndex: a.Utf8(descriptor)}
	})
}

// BootstrapMethod 登记一个引导方法，返回它在 BootstrapMethods 中的下标
func (a *Assembler) BootstrapMethod(handle uint16, args ...uint16) uint16 {
	a.Utf8("BootstrapMethods")
	a.bootstrap = append(a.bootstrap, bootstrapEntry{handle: handle, args: args})
	return uint16(len(a.bootstrap) - 1)
}

// InvokeDynamic 添加 invokedynamic 调用点
func (a *Assembler) InvokeDynamic(bootstrap uint16, name, descriptor string) uint16 {
	return a.intern(fmt.Sprintf("indy:%d:%s:%s", bootstrap, name, descriptor), func() ConstantPoolEntry {
		return &ConstantInvokeDynamicInfo{
			BootstrapMethodAttrIndex: bootstrap,
			NameAndTypeIndex:         a.NameAndType(name, descriptor),
		}
	})
}

// ============================================================================
// 成员
// ============================================================================

func (a *Assembler) raw(attrs []RawAttribute) []AttributeInfo {
	out := make([]AttributeInfo, len(attrs))
	for i, attr := range attrs {
		out[i] = AttributeInfo{NameIndex: a.Utf8(attr.Name), Info: attr.Info}
	}
	return out
}

// AddField 添加字段，可附带原始属性
func (a *Assembler) AddField(flags uint16, name, descriptor string, attrs ...RawAttribute) *Assembler {
	a.classFile.Fields = append(a.classFile.Fields, MemberInfo{
		AccessFlags:     flags,
		NameIndex:       a.Utf8(name),
		DescriptorIndex: a.Utf8(descriptor),
		Attributes:      a.raw(attrs),
	})
	return a
}

// AddMethod 添加带 Code 属性的方法
func (a *Assembler) AddMethod(flags uint16, name, descriptor string, code *Code) *Assembler {
	attr, err := a.CodeAttribute(code)
	if err != nil {
		if a.err == nil {
			a.err = fmt.Errorf("method %s%s: %w", name, descriptor, err)
		}
		return a
	}
	return a.AddMethodAttributes(flags, name, descriptor, attr)
}

// AddMethodAttributes 添加方法并原样写出给定属性
func (a *Assembler) AddMethodAttributes(flags uint16, name, descriptor string, attrs ...RawAttribute) *Assembler {
	a.classFile.Methods = append(a.classFile.Methods, MemberInfo{
		AccessFlags:     flags,
		NameIndex:       a.Utf8(name),
		DescriptorIndex: a.Utf8(descriptor),
		Attributes:      a.raw(attrs),
	})
	return a
}

// CodeAttribute 构建 Code 属性
func (a *Assembler) CodeAttribute(code *Code) (RawAttribute, error) {
	codeBytes, err := code.Bytes()
	if err != nil {
		return RawAttribute{}, err
	}

	attrData := NewByteWriter()
	attrData.WriteU16(code.MaxStack)  // max_stack
	attrData.WriteU16(code.MaxLocals) // max_locals
	attrData.WriteU32(uint32(len(codeBytes)))
	attrData.WriteBytes(codeBytes)
	attrData.WriteU16(0) // exception_table_length

	var subs []RawAttribute
	if len(code.lines) > 0 {
		w := NewByteWriter()
		w.WriteU16(uint16(len(code.lines)))
		for _, l := range code.lines {
			w.WriteU16(l.pc)
			w.WriteU16(l.line)
		}
		subs = append(subs, RawAttribute{Name: "LineNumberTable", Info: w.Bytes()})
	}
	if len(code.locals) > 0 {
		w := NewByteWriter()
		w.WriteU16(uint16(len(code.locals)))
		for _, l := range code.locals {
			w.WriteU16(l.start)
			w.WriteU16(l.length)
			w.WriteU16(a.Utf8(l.name))
			w.WriteU16(a.Utf8(l.desc))
			w.WriteU16(l.index)
		}
		subs = append(subs, RawAttribute{Name: "LocalVariableTable", Info: w.Bytes()})
	}
	subs = append(subs, code.extra...)

	attrData.WriteU16(uint16(len(subs)))
	for _, sub := range subs {
		attrData.WriteU16(a.Utf8(sub.Name))
		attrData.WriteU32(uint32(len(sub.Info)))
		attrData.WriteBytes(sub.Info)
	}
	return RawAttribute{Name: "Code", Info: attrData.Bytes()}, nil
}

// AddClassAttribute 添加任意类属性
func (a *Assembler) AddClassAttribute(name string, info []byte) *Assembler {
	a.classFile.Attributes = append(a.classFile.Attributes, AttributeInfo{NameIndex: a.Utf8(name), Info: info})
	return a
}

// ============================================================================
// 输出
// ============================================================================

// Build 生成 class 文件字节
func (a *Assembler) Build() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	cf := *a.classFile
	cf.Attributes = append([]AttributeInfo(nil), a.classFile.Attributes...)

	if a.sourceFile != "" {
		w := NewByteWriter()
		w.WriteU16(a.Utf8(a.sourceFile))
		cf.Attributes = append(cf.Attributes, AttributeInfo{NameIndex: a.Utf8("SourceFile"), Info: w.Bytes()})
	}
	if len(a.bootstrap) > 0 {
		w := NewByteWriter()
		w.WriteU16(uint16(len(a.bootstrap)))
		for _, b := range a.bootstrap {
			w.WriteU16(b.handle)
			w.WriteU16(uint16(len(b.args)))
			for _, arg := range b.args {
				w.WriteU16(arg)
			}
		}
		cf.Attributes = append(cf.Attributes, AttributeInfo{NameIndex: a.Utf8("BootstrapMethods"), Info: w.Bytes()})
	}

	if len(a.constantPool) >= math.MaxUint16 {
		return nil, fmt.Errorf("constant pool too large: %d entries", len(a.constantPool))
	}
	cf.ConstantPool = a.constantPool
	return cf.ToBytes()
}

// MustBuild 与 Build 相同，出错时 panic
func (a *Assembler) MustBuild() []byte {
	data, err := a.Build()
	if err != nil {
		panic(err)
	}
	return data
}
