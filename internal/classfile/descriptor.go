package classfile

import (
	"strings"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// FieldType 一个字段类型描述符，例如 I、Ljava/lang/String;、[[J
type FieldType struct {
	Base       BasicType // 数组时为 TArray
	Elem       BasicType // 数组的最内层元素类型
	ClassName  string    // 对象类型或对象数组元素的内部类名
	Dims       int       // 数组维数
	Descriptor string
}

// Slots 占用的栈槽数
func (t FieldType) Slots() int {
	return t.Base.Slots()
}

// IsReference 是否为引用类型
func (t FieldType) IsReference() bool {
	return t.Base.IsReference()
}

// MethodDescriptor 解析后的方法描述符
type MethodDescriptor struct {
	Raw    string
	Params []FieldType
	Return FieldType
}

// ParamSlots 参数占用的局部变量槽总数（不含 this）
func (d *MethodDescriptor) ParamSlots() int {
	n := 0
	for _, p := range d.Params {
		n += p.Slots()
	}
	return n
}

// IsVoid 是否无返回值
func (d *MethodDescriptor) IsVoid() bool {
	return d.Return.Base == TVoid
}

// DescriptorStream 在方法描述符上逐个产出参数类型
type DescriptorStream struct {
	desc string
	pos  int
}

// NewDescriptorStream 创建描述符流，游标位于左括号之后
func NewDescriptorStream(desc string) (*DescriptorStream, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, badDescriptor(desc, "missing '('")
	}
	return &DescriptorStream{desc: desc, pos: 1}, nil
}

// AtEnd 参数列表是否已读完
func (s *DescriptorStream) AtEnd() bool {
	return s.pos < len(s.desc) && s.desc[s.pos] == ')'
}

// Next 读取下一个参数类型
func (s *DescriptorStream) Next() (FieldType, error) {
	if s.pos >= len(s.desc) {
		return FieldType{}, badDescriptor(s.desc, "missing ')'")
	}
	t, n, err := parseFieldType(s.desc[s.pos:])
	if err != nil {
		return FieldType{}, badDescriptor(s.desc, err.Error())
	}
	if t.Base == TVoid {
		return FieldType{}, badDescriptor(s.desc, "void parameter")
	}
	s.pos += n
	return t, nil
}

// Return 读取右括号之后的返回类型，必须正好用完描述符
func (s *DescriptorStream) Return() (FieldType, error) {
	if !s.AtEnd() {
		return FieldType{}, badDescriptor(s.desc, "parameters not fully consumed")
	}
	rest := s.desc[s.pos+1:]
	t, n, err := parseFieldType(rest)
	if err != nil {
		return FieldType{}, badDescriptor(s.desc, err.Error())
	}
	if n != len(rest) {
		return FieldType{}, badDescriptor(s.desc, "trailing characters after return type")
	}
	return t, nil
}

// ParseMethodDescriptor 解析完整的方法描述符
func ParseMethodDescriptor(desc string) (*MethodDescriptor, error) {
	s, err := NewDescriptorStream(desc)
	if err != nil {
		return nil, err
	}
	md := &MethodDescriptor{Raw: desc}
	for !s.AtEnd() {
		t, err := s.Next()
		if err != nil {
			return nil, err
		}
		md.Params = append(md.Params, t)
	}
	if md.Return, err = s.Return(); err != nil {
		return nil, err
	}
	return md, nil
}

// ParseFieldDescriptor 解析字段描述符
func ParseFieldDescriptor(desc string) (FieldType, error) {
	t, n, err := parseFieldType(desc)
	if err != nil {
		return FieldType{}, badDescriptor(desc, err.Error())
	}
	if n != len(desc) || t.Base == TVoid {
		return FieldType{}, badDescriptor(desc, "not a field descriptor")
	}
	return t, nil
}

// parseFieldType 解析 s 开头的一个类型，返回消耗的字符数
func parseFieldType(s string) (FieldType, int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims >= len(s) {
		return FieldType{}, 0, errors.NewParseError(errors.P0200, "unexpected end")
	}
	if dims > 255 {
		return FieldType{}, 0, errors.NewParseError(errors.P0200, "more than 255 array dimensions")
	}

	base, ok := BasicTypeFromDescriptor(s[dims])
	if !ok || base == TArray {
		return FieldType{}, 0, errors.NewParseError(errors.P0200, "invalid type character %q", s[dims])
	}
	n := dims + 1
	className := ""
	if base == TObject {
		end := strings.IndexByte(s[dims:], ';')
		if end <= 1 {
			return FieldType{}, 0, errors.NewParseError(errors.P0200, "unterminated class name")
		}
		className = s[dims+1 : dims+end]
		n = dims + end + 1
	}
	if dims > 0 && base == TVoid {
		return FieldType{}, 0, errors.NewParseError(errors.P0200, "array of void")
	}

	t := FieldType{Base: base, Elem: base, ClassName: className, Dims: dims, Descriptor: s[:n]}
	if dims > 0 {
		t.Base = TArray
	}
	return t, n, nil
}

func badDescriptor(desc, reason string) error {
	return errors.NewParseError(errors.P0200, "malformed descriptor %q: %s", desc, reason)
}
