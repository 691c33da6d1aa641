package classfile

// BasicType 基本类型标签，数值与 newarray 的 atype 编码一致
type BasicType uint8

const (
	TBoolean BasicType = 4
	TChar    BasicType = 5
	TFloat   BasicType = 6
	TDouble  BasicType = 7
	TByte    BasicType = 8
	TShort   BasicType = 9
	TInt     BasicType = 10
	TLong    BasicType = 11
	TObject  BasicType = 12
	TArray   BasicType = 13
	TVoid    BasicType = 14
)

var basicTypeNames = map[BasicType]string{
	TBoolean: "boolean",
	TChar:    "char",
	TFloat:   "float",
	TDouble:  "double",
	TByte:    "byte",
	TShort:   "short",
	TInt:     "int",
	TLong:    "long",
	TObject:  "object",
	TArray:   "array",
	TVoid:    "void",
}

func (t BasicType) String() string {
	if name, ok := basicTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// Slots 该类型在操作数栈和局部变量表中占用的槽数
func (t BasicType) Slots() int {
	switch t {
	case TLong, TDouble:
		return 2
	case TVoid:
		return 0
	default:
		return 1
	}
}

// IsReference 是否为引用类型
func (t BasicType) IsReference() bool {
	return t == TObject || t == TArray
}

// IsPrimitiveArrayElement 是否可作为 newarray 的元素类型
func (t BasicType) IsPrimitiveArrayElement() bool {
	return t >= TBoolean && t <= TLong
}

// BasicTypeFromDescriptor 由描述符首字符得到基本类型
func BasicTypeFromDescriptor(c byte) (BasicType, bool) {
	switch c {
	case 'Z':
		return TBoolean, true
	case 'C':
		return TChar, true
	case 'F':
		return TFloat, true
	case 'D':
		return TDouble, true
	case 'B':
		return TByte, true
	case 'S':
		return TShort, true
	case 'I':
		return TInt, true
	case 'J':
		return TLong, true
	case 'L':
		return TObject, true
	case '[':
		return TArray, true
	case 'V':
		return TVoid, true
	}
	return 0, false
}

// DescriptorChar 基本类型对应的描述符字符
func (t BasicType) DescriptorChar() byte {
	switch t {
	case TBoolean:
		return 'Z'
	case TChar:
		return 'C'
	case TFloat:
		return 'F'
	case TDouble:
		return 'D'
	case TByte:
		return 'B'
	case TShort:
		return 'S'
	case TInt:
		return 'I'
	case TLong:
		return 'J'
	case TArray:
		return '['
	case TVoid:
		return 'V'
	default:
		return 'L'
	}
}
