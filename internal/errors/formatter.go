package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tangzhangming/sjvm/internal/i18n"
)

// ============================================================================
// 格式化器
// ============================================================================

// Formatter 错误格式化器
type Formatter struct {
	Colors    bool // 是否使用颜色
	ShowNotes bool // 是否显示错误码说明
	MaxFrames int  // 最多显示的堆栈帧数，0 表示不限
}

// NewFormatter 创建默认格式化器
func NewFormatter() *Formatter {
	return &Formatter{
		Colors:    colorsEnabled,
		ShowNotes: true,
		MaxFrames: 64,
	}
}

// Format 格式化任意错误，非 Fault 错误按普通消息输出
func (f *Formatter) Format(err error) string {
	if fault, ok := AsFault(err); ok {
		return f.FormatFault(fault)
	}
	label := f.colorize(LevelError.String(), ColorBoldRed)
	return fmt.Sprintf("%s: %s\n", label, err.Error())
}

// FormatFault 格式化虚拟机故障
func (f *Formatter) FormatFault(err *Fault) string {
	var sb strings.Builder

	// 错误头: TypeError[R0201]: operand type mismatch
	kindStr := f.colorize(i18n.T(err.Kind.MessageID()), ColorBoldRed)
	codeStr := ""
	if err.Code != "" {
		codeStr = f.colorize(fmt.Sprintf("[%s]", err.Code), ColorRed)
	}
	sb.WriteString(fmt.Sprintf("%s%s: %s\n", kindStr, codeStr, err.Message))
	if err.Cause != nil {
		causeLabel := f.colorize(i18n.T("fault.caused_by"), ColorWhite)
		sb.WriteString(fmt.Sprintf("  %s %s\n", causeLabel, err.Cause.Error()))
	}

	// 上下文信息，按键排序保证输出稳定
	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		sb.WriteString("\n")
		for _, key := range keys {
			keyStr := f.colorize(fmt.Sprintf("  %s:", key), ColorYellow)
			sb.WriteString(fmt.Sprintf("%s %v\n", keyStr, err.Context[key]))
		}
	}

	// 堆栈跟踪
	if len(err.Frames) > 0 {
		sb.WriteString("\n")
		sb.WriteString(f.colorize(i18n.T("fault.stack_trace"), ColorWhite))
		sb.WriteString("\n")

		for i, frame := range err.Frames {
			if f.MaxFrames > 0 && i >= f.MaxFrames {
				more := i18n.T("fault.more_frames", len(err.Frames)-i)
				sb.WriteString(fmt.Sprintf("    %s\n", more))
				break
			}
			sb.WriteString(f.formatFrame(frame))
		}
	}

	// 错误码说明
	if f.ShowNotes {
		if info, ok := GetErrorInfo(err.Code); ok {
			noteLabel := f.colorize(" = note:", ColorCyan)
			sb.WriteString(fmt.Sprintf("\n%s %s\n", noteLabel, i18n.T(info.MessageID)))
		}
	}

	return sb.String()
}

// formatFrame 格式化单个堆栈帧: at com/example/Main.run (Main.java:12)
func (f *Formatter) formatFrame(frame StackFrame) string {
	atStr := f.colorize("at", ColorWhite)
	name := strings.ReplaceAll(frame.ClassName, "/", ".") + "." + frame.MethodName
	funcStr := f.colorize(name, ColorYellow)

	var loc string
	switch {
	case frame.FileName != "" && frame.LineNumber > 0:
		loc = fmt.Sprintf("(%s:%d)", frame.FileName, frame.LineNumber)
	case frame.FileName != "":
		loc = fmt.Sprintf("(%s, pc %d)", frame.FileName, frame.PC)
	default:
		loc = fmt.Sprintf("(pc %d)", frame.PC)
	}
	return fmt.Sprintf("    %s %s %s\n", atStr, funcStr, f.colorize(loc, ColorCyan))
}

func (f *Formatter) colorize(s string, color Color) string {
	if !f.Colors {
		return s
	}
	return ansiCodes[color] + s + ansiCodes[ColorReset]
}

// FormatFault 使用默认格式化器格式化故障
func FormatFault(err *Fault) string {
	return NewFormatter().FormatFault(err)
}
