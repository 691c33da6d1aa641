package native

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

// PrintStream java/io/PrintStream
type PrintStream struct {
	w io.Writer
}

// NewPrintStream 包装输出流
func NewPrintStream(w io.Writer) *PrintStream {
	return &PrintStream{w: w}
}

func (p *PrintStream) JavaClassName() string { return "java/io/PrintStream" }

func (p *PrintStream) print(s string) error {
	_, err := io.WriteString(p.w, s)
	return err
}

// StringBuilder java/lang/StringBuilder，内容按 UTF-16 码元保存
type StringBuilder struct {
	buf []uint16
}

func (b *StringBuilder) JavaClassName() string { return "java/lang/StringBuilder" }

// Append 追加任意值的字符串形式
func (b *StringBuilder) Append(v any) *StringBuilder {
	if c, ok := v.(Char); ok {
		b.buf = append(b.buf, uint16(c))
		return b
	}
	b.buf = append(b.buf, utf16.Encode([]rune(ToString(v)))...)
	return b
}

// Len 码元数
func (b *StringBuilder) Len() int {
	return len(b.buf)
}

// String 当前内容
func (b *StringBuilder) String() string {
	return string(utf16.Decode(b.buf))
}

func (b *StringBuilder) reverse() {
	for i, j := 0, len(b.buf)-1; i < j; i, j = i+1, j-1 {
		b.buf[i], b.buf[j] = b.buf[j], b.buf[i]
	}
}

// Boxed 装箱后的基本类型
type Boxed struct {
	Class string
	Value any
}

func (b *Boxed) JavaClassName() string { return b.Class }

// HostObject 仅有身份的宿主对象，如 new Object()
type HostObject struct {
	Class string
}

func (o *HostObject) JavaClassName() string { return o.Class }

// ArrayCopier 由虚拟机数组实现，供 System.arraycopy 使用
type ArrayCopier interface {
	CopyTo(srcPos int, dst any, dstPos, length int) error
}

// ArgError 宿主方法收到了不符合描述符的参数
type ArgError struct {
	Method string
	Index  int
	Want   string
	Got    any
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%s: argument %d: expected %s, got %T", e.Method, e.Index, e.Want, e.Got)
}

// NullError 宿主方法遇到了空引用
type NullError struct {
	Method string
}

func (e *NullError) Error() string {
	return strings.TrimSpace(e.Method + ": null reference")
}

// Throwable 宿主异常对象。athrow 只报告它，不做异常分派。
type Throwable struct {
	Class   string
	Message any // string 或 nil
}

func (t *Throwable) JavaClassName() string { return t.Class }

func (t *Throwable) String() string {
	name := strings.ReplaceAll(t.Class, "/", ".")
	if t.Message == nil {
		return name
	}
	return name + ": " + ToString(t.Message)
}
