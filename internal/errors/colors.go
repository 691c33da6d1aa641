package errors

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Color 终端颜色
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorYellow
	ColorCyan
	ColorWhite
	ColorBoldRed
)

// ANSI 颜色代码
var ansiCodes = map[Color]string{
	ColorReset:   "\033[0m",
	ColorRed:     "\033[31m",
	ColorYellow:  "\033[33m",
	ColorCyan:    "\033[36m",
	ColorWhite:   "\033[37m",
	ColorBoldRed: "\033[1;31m",
}

// colorsEnabled 是否启用颜色，新建的 Formatter 以它为默认值
var colorsEnabled = detectColorSupport(os.Stderr)

// detectColorSupport 检测输出终端是否支持颜色，重定向到文件或管道时不输出颜色
func detectColorSupport(out *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	fd := out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetColorsEnabled 设置颜色启用状态
func SetColorsEnabled(enabled bool) {
	colorsEnabled = enabled
}

// ColorsEnabled 检查颜色是否启用
func ColorsEnabled() bool {
	return colorsEnabled
}

// Strip 移除 ANSI 颜色代码
func Strip(s string) string {
	for _, code := range ansiCodes {
		s = strings.ReplaceAll(s, code, "")
	}
	return s
}
