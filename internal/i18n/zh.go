package i18n

var messagesZH = map[string]string{
	// ========== 故障类别 ==========
	"fault.parse":       "解析错误",
	"fault.resolution":  "解析失败",
	"fault.type":        "类型错误",
	"fault.bounds":      "越界错误",
	"fault.unsupported": "不支持的指令",
	"fault.runtime":     "运行时错误",
	"fault.caused_by":   "原因:",
	"fault.stack_trace": "堆栈跟踪:",
	"fault.more_frames": "... 还有 %d 帧",

	// ========== 错误码 ==========
	"code.bad_magic":                 "文件不是以 0xCAFEBABE 开头",
	"code.unexpected_eof":            "class 文件在结构中途结束",
	"code.unsupported_constant":      "不支持该常量池标签",
	"code.bad_constant_ref":          "常量池索引指向了错误类型的条目",
	"code.trailing_bytes":            "最后一个类属性之后还有多余字节",
	"code.unknown_class_attribute":   "类属性只支持 SourceFile、BootstrapMethods 和 InnerClasses",
	"code.field_attributes":          "不支持带属性的字段（ConstantValue、Signature 等）",
	"code.method_attribute_count":    "具体方法必须恰好有一个 Code 属性",
	"code.method_attribute_not_code": "方法的唯一属性必须是 Code",
	"code.attribute_length":          "属性声明的长度与内容不一致",
	"code.bad_descriptor":            "描述符格式错误",
	"code.uncaught_exception":        "不支持异常分派，athrow 会中止执行",
	"code.unknown_opcode":            "解释器没有该操作码的处理函数",
	"code.pc_out_of_bounds":          "跳转或操作数读取超出了方法代码范围",
	"code.fell_off_code":             "执行到代码末尾仍未遇到返回指令",
	"code.array_index_out_of_bounds": "数组长度固定，合法下标为 [0, length)",
	"code.negative_array_size":       "数组长度不能为负",
	"code.local_out_of_bounds":       "局部变量下标超过 max_locals",
	"code.division_by_zero":          "整数除法或取余的除数为零",
	"code.type_mismatch":             "不做任何隐式转换，操作数标签必须与指令一致",
	"code.stack_underflow":           "操作数栈为空",
	"code.null_reference":            "对空引用解引用",
	"code.cast_failed":               "checkcast 失败",
	"code.undefined_field":           "在类及其父类中找不到该字段",
	"code.undefined_class":           "classpath 和宿主桥接中都找不到该类",
	"code.undefined_method":          "不存在名称和描述符完全一致的方法",
	"code.unsupported_bootstrap":     "只支持 LambdaMetafactory 和 StringConcatFactory 引导方法",
	"code.bad_entry_point":           "入口必须是 public static void main(String[])",
	"code.stack_overflow":            "操作数栈超出上限",
	"code.call_stack_overflow":       "调用深度超过 max_call_depth，请检查递归",

	// ========== 命令行 ==========
	"cli.usage":         "用法: sjvm [选项] <主类> [参数...]",
	"cli.options":       "选项:",
	"cli.opt_cp":        "classpath 条目（目录、.jar 或 .zip），以 %q 分隔",
	"cli.opt_config":    "配置文件（默认向上查找最近的 sjvm.toml）",
	"cli.opt_log":       "日志级别: debug, info, warn, error",
	"cli.opt_trace":     "记录每一条执行的指令",
	"cli.opt_dump":      "以 JSON 输出解析后的类并退出",
	"cli.opt_disasm":    "输出所有方法的反汇编并退出",
	"cli.opt_lang":      "消息语言: en, zh",
	"cli.opt_prof":      "运行结束后向标准错误输出执行分析（text, json）",
	"cli.opt_version":   "输出版本号并退出",
	"cli.opt_no_color":  "错误输出不使用颜色",
	"cli.no_main_class": "未指定主类（作为参数传入，或在 sjvm.toml 中设置 vm.main）",
	"cli.config_error":  "配置错误: %v",
	"cli.logger_error":  "无法创建日志器: %v",
	"cli.prof_error":    "无法输出执行分析: %v",
}
