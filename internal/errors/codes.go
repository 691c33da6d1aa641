// Package errors 提供 sjvm 的错误分类与错误报告
package errors

// ============================================================================
// 错误级别
// ============================================================================

// Level 错误级别
type Level int

const (
	LevelError   Level = iota // 错误
	LevelWarning              // 警告
	LevelNote                 // 提示
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	default:
		return "unknown"
	}
}

// ============================================================================
// 解析错误码 (P 开头)
// ============================================================================

const (
	// P0001-P0099: 文件结构
	P0001 = "P0001" // 魔数不匹配
	P0002 = "P0002" // 意外的文件结尾
	P0003 = "P0003" // 不支持的常量池标签
	P0004 = "P0004" // 无效的常量池引用
	P0005 = "P0005" // 文件尾部有多余字节

	// P0100-P0199: 成员与属性
	P0100 = "P0100" // 未知的类属性
	P0101 = "P0101" // 字段带有属性
	P0102 = "P0102" // 方法属性数量错误
	P0103 = "P0103" // 方法属性不是 Code
	P0104 = "P0104" // 属性长度与内容不一致

	// P0200-P0299: 描述符
	P0200 = "P0200" // 非法描述符
)

// ============================================================================
// 运行时错误码 (R 开头)
// ============================================================================

const (
	// R0001-R0099: 通用运行时错误
	R0001 = "R0001" // 未捕获的异常
	R0002 = "R0002" // 未知操作码
	R0003 = "R0003" // 指令指针越界
	R0004 = "R0004" // 方法没有返回就执行到代码末尾

	// R0100-R0199: 数组错误
	R0100 = "R0100" // 数组索引越界
	R0101 = "R0101" // 数组长度为负
	R0102 = "R0102" // 局部变量槽越界

	// R0200-R0299: 数值与类型错误
	R0200 = "R0200" // 除以零
	R0201 = "R0201" // 操作数类型不匹配
	R0202 = "R0202" // 操作数栈下溢

	// R0300-R0399: 解析与对象错误
	R0300 = "R0300" // 空引用
	R0301 = "R0301" // 类型转换失败
	R0302 = "R0302" // 未定义的字段
	R0304 = "R0304" // 未定义的类
	R0305 = "R0305" // 未定义的方法
	R0306 = "R0306" // 不支持的引导方法
	R0307 = "R0307" // 入口方法无效

	// R0400-R0499: 资源/限制错误
	R0400 = "R0400" // 操作数栈溢出
	R0402 = "R0402" // 调用栈过深
)

// ============================================================================
// 错误码信息
// ============================================================================

// ErrorInfo 错误码信息
type ErrorInfo struct {
	Code      string // 错误码
	Kind      Kind   // 错误类别
	MessageID string // i18n 消息 ID
}

// codeInfos 错误码信息表
var codeInfos = map[string]ErrorInfo{
	P0001: {P0001, KindParse, "code.bad_magic"},
	P0002: {P0002, KindParse, "code.unexpected_eof"},
	P0003: {P0003, KindParse, "code.unsupported_constant"},
	P0004: {P0004, KindParse, "code.bad_constant_ref"},
	P0005: {P0005, KindParse, "code.trailing_bytes"},
	P0100: {P0100, KindParse, "code.unknown_class_attribute"},
	P0101: {P0101, KindParse, "code.field_attributes"},
	P0102: {P0102, KindParse, "code.method_attribute_count"},
	P0103: {P0103, KindParse, "code.method_attribute_not_code"},
	P0104: {P0104, KindParse, "code.attribute_length"},
	P0200: {P0200, KindParse, "code.bad_descriptor"},

	R0001: {R0001, KindRuntime, "code.uncaught_exception"},
	R0002: {R0002, KindUnsupportedInstruction, "code.unknown_opcode"},
	R0003: {R0003, KindBounds, "code.pc_out_of_bounds"},
	R0004: {R0004, KindRuntime, "code.fell_off_code"},
	R0100: {R0100, KindBounds, "code.array_index_out_of_bounds"},
	R0101: {R0101, KindBounds, "code.negative_array_size"},
	R0102: {R0102, KindBounds, "code.local_out_of_bounds"},
	R0200: {R0200, KindRuntime, "code.division_by_zero"},
	R0201: {R0201, KindType, "code.type_mismatch"},
	R0202: {R0202, KindBounds, "code.stack_underflow"},
	R0300: {R0300, KindRuntime, "code.null_reference"},
	R0301: {R0301, KindType, "code.cast_failed"},
	R0302: {R0302, KindResolution, "code.undefined_field"},
	R0304: {R0304, KindResolution, "code.undefined_class"},
	R0305: {R0305, KindResolution, "code.undefined_method"},
	R0306: {R0306, KindResolution, "code.unsupported_bootstrap"},
	R0307: {R0307, KindResolution, "code.bad_entry_point"},
	R0400: {R0400, KindBounds, "code.stack_overflow"},
	R0402: {R0402, KindRuntime, "code.call_stack_overflow"},
}

// GetErrorInfo 获取错误码信息
func GetErrorInfo(code string) (ErrorInfo, bool) {
	info, ok := codeInfos[code]
	return info, ok
}
