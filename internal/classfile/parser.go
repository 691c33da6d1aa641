// Package classfile 解析 JVM class 文件，产出只读的 Klass 模型
package classfile

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ClassFileMagic class 文件魔数
const ClassFileMagic = 0xCAFEBABE

// Parser class 文件解析器
type Parser struct {
	cur   *ByteCursor
	klass *Klass
	log   *zap.Logger
}

// Option 解析选项
type Option func(*Parser)

// WithLogger 设置日志器，每个解析步骤都会以 Debug 级别记录
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// Parse 解析一个完整的 class 文件。相同输入总是得到相同结果。
func Parse(data []byte, opts ...Option) (*Klass, error) {
	p := &Parser{
		cur:   NewByteCursor(data),
		klass: &Klass{mainIndex: -1},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.klass, nil
}

// parse 按固定顺序解码各个部分
func (p *Parser) parse() error {
	steps := []func() error{
		p.parseHeader,
		p.parseConstantPool,
		p.parseClassInfo,
		p.parseInterfaces,
		p.parseFields,
		p.parseMethods,
		p.parseClassAttributes,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if n := p.cur.Remaining(); n > 0 {
		return errors.NewParseError(errors.P0005, "%d trailing byte(s) after class attributes", n).
			With("offset", p.cur.Offset())
	}
	p.log.Debug("class parsed",
		zap.String("class", p.klass.Name),
		zap.Int("methods", len(p.klass.Methods)),
		zap.Int("fields", len(p.klass.Fields)))
	return nil
}

// ============================================================================
// 头部与常量池
// ============================================================================

func (p *Parser) parseHeader() error {
	magic, err := p.cur.ReadU4()
	if err != nil {
		return err
	}
	if magic != ClassFileMagic {
		return errors.NewParseError(errors.P0001, "bad magic number 0x%08X", magic)
	}
	k := p.klass
	k.Magic = magic
	if k.MinorVersion, err = p.cur.ReadU2(); err != nil {
		return err
	}
	if k.MajorVersion, err = p.cur.ReadU2(); err != nil {
		return err
	}
	p.log.Debug("class header",
		zap.Uint16("major", k.MajorVersion),
		zap.Uint16("minor", k.MinorVersion))
	return nil
}

func (p *Parser) parseConstantPool() error {
	count, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	cp := NewConstantPool(int(count))
	p.klass.ConstantPool = cp

	for i := 1; i < int(count); i++ {
		offset := p.cur.Offset()
		entry, err := p.parseConstant(i)
		if err != nil {
			if f, ok := errors.AsFault(err); ok {
				f.With("constant_index", i).With("offset", offset)
			}
			return err
		}
		p.log.Debug("constant", zap.Int("index", i), zap.String("tag", ConstantTagName(entry.Tag())))
		if isWide(entry.Tag()) && i+1 >= int(count) {
			return errors.NewParseError(errors.P0004,
				"%s constant at index %d needs two slots but the pool has %d", ConstantTagName(entry.Tag()), i, count)
		}
		cp.set(i, entry)
		if isWide(entry.Tag()) {
			i++
		}
	}
	return nil
}

func (p *Parser) parseConstant(index int) (ConstantPoolEntry, error) {
	tag, err := p.cur.ReadU1()
	if err != nil {
		return nil, err
	}
	switch tag {
	case ConstantUtf8:
		n, err := p.cur.ReadU2()
		if err != nil {
			return nil, err
		}
		raw, err := p.cur.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		s, err := decodeModifiedUTF8(raw)
		if err != nil {
			return nil, errors.NewParseError(errors.P0004, "malformed Utf8 constant %d", index).Wrap(err)
		}
		return &ConstantUtf8Info{Value: s}, nil

	case ConstantFloat:
		v, err := p.cur.ReadF4()
		if err != nil {
			return nil, err
		}
		return &ConstantFloatInfo{Value: v}, nil

	case ConstantLong:
		v, err := p.cur.ReadI8()
		if err != nil {
			return nil, err
		}
		return &ConstantLongInfo{Value: v}, nil

	case ConstantDouble:
		v, err := p.cur.ReadF8()
		if err != nil {
			return nil, err
		}
		return &ConstantDoubleInfo{Value: v}, nil

	case ConstantClass:
		v, err := p.cur.ReadU2()
		if err != nil {
			return nil, err
		}
		return &ConstantClassInfo{NameIndex: v}, nil

	case ConstantString:
		v, err := p.cur.ReadU2()
		if err != nil {
			return nil, err
		}
		return &ConstantStringInfo{StringIndex: v}, nil

	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref:
		classIdx, natIdx, err := readU2Pair(p.cur)
		if err != nil {
			return nil, err
		}
		return &ConstantMemberrefInfo{tag: tag, ClassIndex: classIdx, NameAndTypeIndex: natIdx}, nil

	case ConstantNameAndType:
		nameIdx, descIdx, err := readU2Pair(p.cur)
		if err != nil {
			return nil, err
		}
		return &ConstantNameAndTypeInfo{NameIndex: nameIdx, DescriptorIndex: descIdx}, nil

	case ConstantMethodHandle:
		kind, err := p.cur.ReadU1()
		if err != nil {
			return nil, err
		}
		ref, err := p.cur.ReadU2()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodHandleInfo{ReferenceKind: kind, ReferenceIndex: ref}, nil

	case ConstantMethodType:
		v, err := p.cur.ReadU2()
		if err != nil {
			return nil, err
		}
		return &ConstantMethodTypeInfo{DescriptorIndex: v}, nil

	case ConstantDynamic, ConstantInvokeDynamic:
		bsm, natIdx, err := readU2Pair(p.cur)
		if err != nil {
			return nil, err
		}
		return &ConstantDynamicInfo{tag: tag, BootstrapMethodAttrIndex: bsm, NameAndTypeIndex: natIdx}, nil

	case ConstantInteger:
		return nil, errors.NewParseError(errors.P0003, "constant %d: Integer constants are not supported", index)
	}
	return nil, errors.NewParseError(errors.P0003, "constant %d: unknown constant pool tag %d", index, tag)
}

// ============================================================================
// 类信息
// ============================================================================

func (p *Parser) parseClassInfo() error {
	k := p.klass
	flags, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	k.AccessFlags = AccessFlags(flags)
	if k.ThisClass, err = p.cur.ReadU2(); err != nil {
		return err
	}
	if k.SuperClass, err = p.cur.ReadU2(); err != nil {
		return err
	}
	if k.Name, err = p.className(k.ThisClass); err != nil {
		return err
	}
	if k.SuperClass != 0 {
		if k.SuperName, err = p.className(k.SuperClass); err != nil {
			return err
		}
	}
	p.log.Debug("class info",
		zap.String("class", k.Name),
		zap.String("super", k.SuperName),
		zap.String("flags", k.AccessFlags.MethodString()))
	return nil
}

func (p *Parser) parseInterfaces() error {
	k := p.klass
	count, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	k.Interfaces = make([]uint16, count)
	k.InterfaceNames = make([]string, count)
	for i := range k.Interfaces {
		if k.Interfaces[i], err = p.cur.ReadU2(); err != nil {
			return err
		}
		if k.InterfaceNames[i], err = p.className(k.Interfaces[i]); err != nil {
			return err
		}
		p.log.Debug("interface", zap.String("name", k.InterfaceNames[i]))
	}
	return nil
}

// ============================================================================
// 字段与方法
// ============================================================================

func (p *Parser) parseFields() error {
	count, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	p.klass.Fields = make([]*FieldInfo, count)
	for i := range p.klass.Fields {
		f := &FieldInfo{}
		var flags uint16
		if flags, err = p.cur.ReadU2(); err != nil {
			return err
		}
		f.AccessFlags = AccessFlags(flags)
		if f.NameIndex, f.DescriptorIndex, err = readU2Pair(p.cur); err != nil {
			return err
		}
		if f.AttributesCount, err = p.cur.ReadU2(); err != nil {
			return err
		}
		if f.Name, err = p.utf8(f.NameIndex); err != nil {
			return err
		}
		if f.Descriptor, err = p.utf8(f.DescriptorIndex); err != nil {
			return err
		}
		if f.AttributesCount != 0 {
			return errors.NewParseError(errors.P0101,
				"field %s has %d attribute(s), fields with attributes are not supported", f.Name, f.AttributesCount).
				With("class", p.klass.Name)
		}
		p.klass.Fields[i] = f
		p.log.Debug("field", zap.String("name", f.Name), zap.String("descriptor", f.Descriptor))
	}
	return nil
}

func (p *Parser) parseMethods() error {
	count, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	p.klass.Methods = make([]*MethodInfo, count)
	for i := range p.klass.Methods {
		m, err := p.parseMethod()
		if err != nil {
			return err
		}
		p.klass.Methods[i] = m
		if m.Name == MainName && m.Descriptor == MainDescriptor {
			p.klass.mainIndex = i
		}
		p.log.Debug("method",
			zap.String("name", m.Name),
			zap.String("descriptor", m.Descriptor),
			zap.String("flags", m.AccessFlags.MethodString()))
	}
	return nil
}

func (p *Parser) parseMethod() (*MethodInfo, error) {
	m := &MethodInfo{}
	flags, err := p.cur.ReadU2()
	if err != nil {
		return nil, err
	}
	m.AccessFlags = AccessFlags(flags)
	if m.NameIndex, m.DescriptorIndex, err = readU2Pair(p.cur); err != nil {
		return nil, err
	}
	if m.AttributesCount, err = p.cur.ReadU2(); err != nil {
		return nil, err
	}
	if m.Name, err = p.utf8(m.NameIndex); err != nil {
		return nil, err
	}
	if m.Descriptor, err = p.utf8(m.DescriptorIndex); err != nil {
		return nil, err
	}

	bodyless := m.AccessFlags.IsAbstract() || m.AccessFlags.IsNative()
	switch {
	case m.AttributesCount == 0 && bodyless:
		return m, nil
	case m.AttributesCount != 1:
		return nil, errors.NewParseError(errors.P0102,
			"method %s%s has %d attribute(s), exactly one Code attribute is expected",
			m.Name, m.Descriptor, m.AttributesCount).With("class", p.klass.Name)
	}

	nameIndex, err := p.cur.ReadU2()
	if err != nil {
		return nil, err
	}
	name, err := p.utf8(nameIndex)
	if err != nil {
		return nil, err
	}
	if name != AttrCode {
		return nil, errors.NewParseError(errors.P0103,
			"method %s%s carries a %s attribute instead of Code", m.Name, m.Descriptor, name).
			With("class", p.klass.Name)
	}
	code, err := p.parseCodeAttribute(nameIndex)
	if err != nil {
		return nil, err
	}
	m.Attributes = []*CodeAttributeInfo{code}
	return m, nil
}

// parseCodeAttribute 解析 Code 属性；游标位于 attribute_length 处
func (p *Parser) parseCodeAttribute(nameIndex uint16) (*CodeAttributeInfo, error) {
	length, err := p.cur.ReadU4()
	if err != nil {
		return nil, err
	}
	info, err := p.cur.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	c := NewByteCursor(info)

	code := &CodeAttributeInfo{
		NameIndex:  nameIndex,
		Length:     length,
		Attributes: make(map[string]Attribute),
	}
	if code.MaxStack, err = c.ReadU2(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = c.ReadU2(); err != nil {
		return nil, err
	}
	codeLength, err := c.ReadU4()
	if err != nil {
		return nil, err
	}
	if code.Code, err = c.ReadBytes(int(codeLength)); err != nil {
		return nil, err
	}

	tableLength, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	code.ExceptionTable = make([]ExceptionTableEntry, tableLength)
	for i := range code.ExceptionTable {
		e := &code.ExceptionTable[i]
		if e.StartPC, e.EndPC, err = readU2Pair(c); err != nil {
			return nil, err
		}
		if e.HandlerPC, e.CatchType, err = readU2Pair(c); err != nil {
			return nil, err
		}
	}

	attrCount, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		if err := p.parseCodeSubAttribute(c, code); err != nil {
			return nil, err
		}
	}
	if c.Remaining() != 0 {
		return nil, errors.NewParseError(errors.P0104,
			"Code attribute declares %d bytes but %d are left unread", length, c.Remaining())
	}
	p.log.Debug("code attribute",
		zap.Uint16("max_stack", code.MaxStack),
		zap.Uint16("max_locals", code.MaxLocals),
		zap.Int("code_length", len(code.Code)))
	return code, nil
}

// parseCodeSubAttribute 只解码行号表和局部变量表，其余按长度跳过
func (p *Parser) parseCodeSubAttribute(c *ByteCursor, code *CodeAttributeInfo) error {
	nameIndex, err := c.ReadU2()
	if err != nil {
		return err
	}
	name, err := p.utf8(nameIndex)
	if err != nil {
		return err
	}
	length, err := c.ReadU4()
	if err != nil {
		return err
	}
	info, err := c.ReadBytes(int(length))
	if err != nil {
		return err
	}
	sub := NewByteCursor(info)

	switch name {
	case AttrLineNumberTable:
		table, err := parseLineNumberTable(sub)
		if err != nil {
			return err
		}
		code.Attributes[name] = table
	case AttrLocalVariableTable:
		table, err := p.parseLocalVariableTable(sub)
		if err != nil {
			return err
		}
		code.Attributes[name] = table
	default:
		p.log.Debug("skip code attribute", zap.String("name", name), zap.Uint32("length", length))
		return nil
	}
	if sub.Remaining() != 0 {
		return errors.NewParseError(errors.P0104, "%s attribute has %d unread byte(s)", name, sub.Remaining())
	}
	return nil
}

func parseLineNumberTable(c *ByteCursor) (*LineNumberTable, error) {
	n, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	t := &LineNumberTable{Entries: make([]LineNumberEntry, n)}
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.StartPC, e.LineNumber, err = readU2Pair(c); err != nil {
			return nil, err
		}
	}
	sortLineNumbers(t.Entries)
	return t, nil
}

func (p *Parser) parseLocalVariableTable(c *ByteCursor) (*LocalVariableTable, error) {
	n, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	t := &LocalVariableTable{Entries: make([]LocalVariableEntry, n)}
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.StartPC, e.Length, err = readU2Pair(c); err != nil {
			return nil, err
		}
		nameIdx, descIdx, err := readU2Pair(c)
		if err != nil {
			return nil, err
		}
		if e.Index, err = c.ReadU2(); err != nil {
			return nil, err
		}
		if e.Name, err = p.utf8(nameIdx); err != nil {
			return nil, err
		}
		if e.Descriptor, err = p.utf8(descIdx); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ============================================================================
// 类属性
// ============================================================================

func (p *Parser) parseClassAttributes() error {
	count, err := p.cur.ReadU2()
	if err != nil {
		return err
	}
	k := p.klass
	k.Attributes = make([]*AttributeInfo, 0, count)
	for i := 0; i < int(count); i++ {
		attr := &AttributeInfo{}
		if attr.NameIndex, err = p.cur.ReadU2(); err != nil {
			return err
		}
		if attr.Name, err = p.utf8(attr.NameIndex); err != nil {
			return err
		}
		if attr.Length, err = p.cur.ReadU4(); err != nil {
			return err
		}
		if attr.Info, err = p.cur.ReadBytes(int(attr.Length)); err != nil {
			return err
		}

		c := NewByteCursor(attr.Info)
		switch attr.Name {
		case AttrSourceFile:
			idx, err := c.ReadU2()
			if err != nil {
				return err
			}
			if k.SourceFile, err = p.utf8(idx); err != nil {
				return err
			}
		case AttrBootstrapMethods:
			if k.BootstrapMethods, err = parseBootstrapMethods(c); err != nil {
				return err
			}
		case AttrInnerClasses:
			if k.InnerClasses, err = parseInnerClasses(c); err != nil {
				return err
			}
		default:
			return errors.NewParseError(errors.P0100, "unsupported class attribute %q", attr.Name).
				With("class", k.Name)
		}
		if c.Remaining() != 0 {
			return errors.NewParseError(errors.P0104, "%s attribute has %d unread byte(s)", attr.Name, c.Remaining())
		}
		k.Attributes = append(k.Attributes, attr)
		p.log.Debug("class attribute", zap.String("name", attr.Name), zap.Uint32("length", attr.Length))
	}
	return nil
}

func parseBootstrapMethods(c *ByteCursor) ([]BootstrapMethod, error) {
	n, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, n)
	for i := range methods {
		ref, argc, err := readU2Pair(c)
		if err != nil {
			return nil, err
		}
		methods[i].MethodRef = ref
		methods[i].Arguments = make([]uint16, argc)
		for j := range methods[i].Arguments {
			if methods[i].Arguments[j], err = c.ReadU2(); err != nil {
				return nil, err
			}
		}
	}
	return methods, nil
}

func parseInnerClasses(c *ByteCursor) ([]InnerClassEntry, error) {
	n, err := c.ReadU2()
	if err != nil {
		return nil, err
	}
	entries := make([]InnerClassEntry, n)
	for i := range entries {
		e := &entries[i]
		if e.InnerClassIndex, e.OuterClassIndex, err = readU2Pair(c); err != nil {
			return nil, err
		}
		var flags uint16
		if e.InnerNameIndex, flags, err = readU2Pair(c); err != nil {
			return nil, err
		}
		e.InnerAccessFlags = AccessFlags(flags)
	}
	return entries, nil
}

// ============================================================================
// 辅助函数
// ============================================================================

func readU2Pair(c *ByteCursor) (uint16, uint16, error) {
	a, err := c.ReadU2()
	if err != nil {
		return 0, 0, err
	}
	b, err := c.ReadU2()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// utf8 解析期间读取 Utf8 常量，失败时转为解析错误
func (p *Parser) utf8(index uint16) (string, error) {
	s, err := p.klass.ConstantPool.Utf8(index)
	if err != nil {
		return "", asParseError(err)
	}
	return s, nil
}

func (p *Parser) className(index uint16) (string, error) {
	s, err := p.klass.ConstantPool.ClassName(index)
	if err != nil {
		return "", asParseError(err)
	}
	return s, nil
}

func asParseError(err error) error {
	if f, ok := errors.AsFault(err); ok && f.Kind == errors.KindResolution {
		return errors.NewParseError(f.Code, "%s", f.Message)
	}
	return err
}

func sortLineNumbers(entries []LineNumberEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartPC < entries[j].StartPC
	})
}
