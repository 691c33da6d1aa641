package classfile

import "strings"

// 访问标志
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // 类
	AccSynchronized = 0x0020 // 方法
	AccVolatile     = 0x0040 // 字段
	AccBridge       = 0x0040 // 方法
	AccTransient    = 0x0080 // 字段
	AccVarargs      = 0x0080 // 方法
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// AccessFlags 访问标志位集合
type AccessFlags uint16

func (f AccessFlags) Has(flag uint16) bool { return uint16(f)&flag != 0 }

func (f AccessFlags) IsPublic() bool    { return f.Has(AccPublic) }
func (f AccessFlags) IsPrivate() bool   { return f.Has(AccPrivate) }
func (f AccessFlags) IsStatic() bool    { return f.Has(AccStatic) }
func (f AccessFlags) IsFinal() bool     { return f.Has(AccFinal) }
func (f AccessFlags) IsNative() bool    { return f.Has(AccNative) }
func (f AccessFlags) IsAbstract() bool  { return f.Has(AccAbstract) }
func (f AccessFlags) IsInterface() bool { return f.Has(AccInterface) }

// ClassString 以类修饰符的形式输出，例如 "public final"
func (f AccessFlags) ClassString() string {
	var parts []string
	if f.IsPublic() {
		parts = append(parts, "public")
	}
	if f.IsFinal() {
		parts = append(parts, "final")
	}
	if f.IsAbstract() && !f.IsInterface() {
		parts = append(parts, "abstract")
	}
	return strings.Join(parts, " ")
}

// MethodString 以方法修饰符的形式输出，例如 "public static"
func (f AccessFlags) MethodString() string {
	var parts []string
	switch {
	case f.IsPublic():
		parts = append(parts, "public")
	case f.IsPrivate():
		parts = append(parts, "private")
	case f.Has(AccProtected):
		parts = append(parts, "protected")
	}
	if f.IsStatic() {
		parts = append(parts, "static")
	}
	if f.IsFinal() {
		parts = append(parts, "final")
	}
	if f.Has(AccSynchronized) {
		parts = append(parts, "synchronized")
	}
	if f.IsNative() {
		parts = append(parts, "native")
	}
	if f.IsAbstract() {
		parts = append(parts, "abstract")
	}
	return strings.Join(parts, " ")
}
