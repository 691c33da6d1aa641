package classfile

// 常用方法名与描述符
const (
	MainName       = "main"
	MainDescriptor = "([Ljava/lang/String;)V"
	InitName       = "<init>"
	ClinitName     = "<clinit>"
)

// KlassID 类在加载器登记表中的编号，0 表示尚未登记
type KlassID uint32

// Klass 解析后的类。解析完成后只读，可在多个 goroutine 间共享。
type Klass struct {
	ID           KlassID
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool *ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []*FieldInfo
	Methods      []*MethodInfo
	Attributes   []*AttributeInfo

	// 解析期间从常量池取出的值
	Name             string
	SuperName        string
	InterfaceNames   []string
	SourceFile       string
	BootstrapMethods []BootstrapMethod
	InnerClasses     []InnerClassEntry

	mainIndex int
}

// FieldInfo 字段
type FieldInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	AttributesCount uint16
	Name            string
	Descriptor      string
}

// MethodInfo 方法。Owner 是所属类在加载器登记表中的编号。
type MethodInfo struct {
	Owner           KlassID
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	AttributesCount uint16
	Name            string
	Descriptor      string
	Attributes      []*CodeAttributeInfo
}

// Code 返回方法的 Code 属性，抽象与本地方法返回 nil
func (m *MethodInfo) Code() *CodeAttributeInfo {
	if len(m.Attributes) == 0 {
		return nil
	}
	return m.Attributes[0]
}

// IsStatic 是否为静态方法
func (m *MethodInfo) IsStatic() bool {
	return m.AccessFlags.IsStatic()
}

// Signature 返回 name:descriptor 形式的签名
func (m *MethodInfo) Signature() string {
	return m.Name + ":" + m.Descriptor
}

// Bind 登记到加载器后记录编号，同时回填到每个方法。
// 只能在 Klass 发布给其他 goroutine 之前调用。
func (k *Klass) Bind(id KlassID) {
	k.ID = id
	for _, m := range k.Methods {
		m.Owner = id
	}
}

// MainMethod 返回入口方法
func (k *Klass) MainMethod() (*MethodInfo, bool) {
	if k.mainIndex < 0 || k.mainIndex >= len(k.Methods) {
		return nil, false
	}
	return k.Methods[k.mainIndex], true
}

// FindMethod 按名称和描述符精确查找本类声明的方法
func (k *Klass) FindMethod(name, descriptor string) (*MethodInfo, bool) {
	for _, m := range k.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return nil, false
}

// FindMethodByName 按名称查找第一个同名方法
func (k *Klass) FindMethodByName(name string) (*MethodInfo, bool) {
	for _, m := range k.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// FindField 按名称查找本类声明的字段
func (k *Klass) FindField(name string) (*FieldInfo, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// HasSuper 是否有父类（java/lang/Object 没有）
func (k *Klass) HasSuper() bool {
	return k.SuperClass != 0
}
