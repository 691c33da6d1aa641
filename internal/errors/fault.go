package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ============================================================================
// 错误类别
// ============================================================================

// Kind 错误类别。虚拟机内不做任何恢复，所有类别都会中止当前运行。
type Kind int

const (
	KindParse                  Kind = iota // 类文件格式错误
	KindResolution                         // 类、方法、字段或常量无法解析
	KindType                               // 操作数类型与指令要求不符
	KindBounds                             // 数组、局部变量或操作数栈越界
	KindUnsupportedInstruction             // 未识别的操作码
	KindRuntime                            // 除零、空引用、调用过深等
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindResolution:
		return "ResolutionError"
	case KindType:
		return "TypeError"
	case KindBounds:
		return "BoundsError"
	case KindUnsupportedInstruction:
		return "UnsupportedInstructionError"
	case KindRuntime:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// MessageID 类别对应的 i18n 消息 ID
func (k Kind) MessageID() string {
	switch k {
	case KindParse:
		return "fault.parse"
	case KindResolution:
		return "fault.resolution"
	case KindType:
		return "fault.type"
	case KindBounds:
		return "fault.bounds"
	case KindUnsupportedInstruction:
		return "fault.unsupported"
	default:
		return "fault.runtime"
	}
}

// ============================================================================
// 故障
// ============================================================================

// StackFrame 堆栈帧
type StackFrame struct {
	ClassName  string // 类名（内部形式，a/b/C）
	MethodName string // 方法名
	Descriptor string // 方法描述符
	FileName   string // 源文件名（SourceFile 属性）
	LineNumber int    // 行号，0 表示未知
	PC         int    // 出错指令偏移
}

// Fault 虚拟机故障
type Fault struct {
	Kind    Kind                   // 错误类别
	Code    string                 // 错误码 (R0100)
	Message string                 // 主消息
	Context map[string]interface{} // 上下文变量
	Frames  []StackFrame           // Java 层堆栈
	Cause   error                  // 底层错误
}

// Error 实现 error 接口
func (e *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap 返回底层错误
func (e *Fault) Unwrap() error {
	return e.Cause
}

// With 附加上下文变量
func (e *Fault) With(key string, value interface{}) *Fault {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap 设置底层错误
func (e *Fault) Wrap(cause error) *Fault {
	e.Cause = cause
	return e
}

func newFault(kind Kind, code, format string, args ...interface{}) *Fault {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Fault{Kind: kind, Code: code, Message: msg}
}

// NewParseError 类文件格式错误
func NewParseError(code, format string, args ...interface{}) *Fault {
	return newFault(KindParse, code, format, args...)
}

// NewResolutionError 解析失败
func NewResolutionError(code, format string, args ...interface{}) *Fault {
	return newFault(KindResolution, code, format, args...)
}

// NewTypeError 操作数类型不匹配
func NewTypeError(format string, args ...interface{}) *Fault {
	return newFault(KindType, R0201, format, args...)
}

// NewCastError checkcast 失败
func NewCastError(from, to string) *Fault {
	return newFault(KindType, R0301, "%s cannot be cast to %s", from, to).
		With("from", from).
		With("to", to)
}

// NewBoundsError 越界
func NewBoundsError(code, format string, args ...interface{}) *Fault {
	return newFault(KindBounds, code, format, args...)
}

// NewUnsupportedInstructionError 未识别的操作码
func NewUnsupportedInstructionError(opcode byte, pc int) *Fault {
	return newFault(KindUnsupportedInstruction, R0002, "unsupported opcode 0x%02x at pc %d", opcode, pc).
		With("opcode", fmt.Sprintf("0x%02x", opcode))
}

// NewRuntimeError 其他运行时故障
func NewRuntimeError(code, format string, args ...interface{}) *Fault {
	return newFault(KindRuntime, code, format, args...)
}

// ============================================================================
// 检查
// ============================================================================

// AsFault 从错误链中取出 Fault
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if stderrors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind 判断错误链中是否有指定类别的 Fault
func IsKind(err error, kind Kind) bool {
	f, ok := AsFault(err)
	return ok && f.Kind == kind
}

// HasCode 判断错误链中是否有指定错误码的 Fault
func HasCode(err error, code string) bool {
	f, ok := AsFault(err)
	return ok && f.Code == code
}
