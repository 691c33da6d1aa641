package native

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Char Java char，一个 UTF-16 码元
type Char uint16

// Named 拥有 Java 类名的宿主对象
type Named interface {
	JavaClassName() string
}

// ToString 按 Java 的 String.valueOf 规则格式化宿主值
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return FormatFloat(x)
	case float64:
		return FormatDouble(x)
	case bool:
		return strconv.FormatBool(x)
	case Char:
		return string(utf16.Decode([]uint16{uint16(x)}))
	case *StringBuilder:
		return x.String()
	case *Boxed:
		return ToString(x.Value)
	case *Throwable:
		return x.String()
	case Named:
		return fmt.Sprintf("%s@%x", strings.ReplaceAll(x.JavaClassName(), "/", "."), IdentityHash(x))
	}
	return fmt.Sprint(v)
}

// IdentityHash 对象的身份哈希
func IdentityHash(v any) int32 {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		p := uint64(rv.Pointer())
		return int32(uint32(p ^ p>>32))
	}
	return 0
}

// FormatDouble 按 Double.toString 格式化
func FormatDouble(v float64) string {
	return formatJavaFloat(v, 64)
}

// FormatFloat 按 Float.toString 格式化
func FormatFloat(v float32) string {
	return formatJavaFloat(float64(v), 32)
}

func formatJavaFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(v)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(v, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	// 科学计数法：尾数至少一位小数，指数不带 + 号和前导零
	s := strconv.FormatFloat(v, 'E', -1, bitSize)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(exp, "+-")
	exp = strings.TrimLeft(exp, "0")
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}

// JavaLength 字符串的 UTF-16 长度
func JavaLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// JavaHashCode 按 String.hashCode 计算
func JavaHashCode(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
