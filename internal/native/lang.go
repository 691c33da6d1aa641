package native

import (
	"math"
	"strings"
	"time"
	"unicode/utf16"
)

// 描述符片段
const (
	descString        = "Ljava/lang/String;"
	descObject        = "Ljava/lang/Object;"
	descCharSequence  = "Ljava/lang/CharSequence;"
	descStringBuilder = "Ljava/lang/StringBuilder;"
	descPrintStream   = "Ljava/io/PrintStream;"
)

// arg 取出第 i 个参数并检查类型
func arg[T any](method string, args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, &ArgError{Method: method, Index: i, Want: typeName[T](), Got: nil}
	}
	v, ok := args[i].(T)
	if !ok {
		if args[i] == nil {
			return zero, &NullError{Method: method}
		}
		return zero, &ArgError{Method: method, Index: i, Want: typeName[T](), Got: args[i]}
	}
	return v, nil
}

func typeName[T any]() string {
	var zero T
	switch any(zero).(type) {
	case int32:
		return "int"
	case int64:
		return "long"
	case float32:
		return "float"
	case float64:
		return "double"
	case bool:
		return "boolean"
	case Char:
		return "char"
	case string:
		return "java/lang/String"
	}
	return "reference"
}

// ============================================================================
// java/lang/Object、java/lang/System
// ============================================================================

func registerObject(r *Registry) {
	const cls = "java/lang/Object"
	r.RegisterClass(cls, func() any { return &HostObject{Class: cls} })
	r.Register(cls, "<init>", "()V", func(args []any) (any, error) {
		return nil, nil
	})
	r.Register(cls, "hashCode", "()I", func(args []any) (any, error) {
		if s, ok := args[0].(string); ok {
			return JavaHashCode(s), nil
		}
		return IdentityHash(args[0]), nil
	})
	r.Register(cls, "toString", "()"+descString, func(args []any) (any, error) {
		return ToString(args[0]), nil
	})
	r.Register(cls, "equals", "("+descObject+")Z", func(args []any) (any, error) {
		return objectEquals(args[0], args[1]), nil
	})
}

func objectEquals(a, b any) bool {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case *Boxed:
		y, ok := b.(*Boxed)
		return ok && x.Class == y.Class && x.Value == y.Value
	}
	return a == b
}

func registerSystem(r *Registry) {
	const cls = "java/lang/System"
	r.RegisterField(cls, "out", descPrintStream, NewPrintStream(r.stdout))
	r.RegisterField(cls, "err", descPrintStream, NewPrintStream(r.stderr))

	r.Register(cls, "currentTimeMillis", "()J", func(args []any) (any, error) {
		return time.Now().UnixMilli(), nil
	})
	r.Register(cls, "nanoTime", "()J", func(args []any) (any, error) {
		return time.Now().UnixNano(), nil
	})
	r.Register(cls, "identityHashCode", "("+descObject+")I", func(args []any) (any, error) {
		return IdentityHash(args[0]), nil
	})
	r.Register(cls, "arraycopy", "("+descObject+"I"+descObject+"II)V", func(args []any) (any, error) {
		const m = "System.arraycopy"
		src, err := arg[ArrayCopier](m, args, 0)
		if err != nil {
			return nil, err
		}
		srcPos, err := arg[int32](m, args, 1)
		if err != nil {
			return nil, err
		}
		if args[2] == nil {
			return nil, &NullError{Method: m}
		}
		dstPos, err := arg[int32](m, args, 3)
		if err != nil {
			return nil, err
		}
		length, err := arg[int32](m, args, 4)
		if err != nil {
			return nil, err
		}
		return nil, src.CopyTo(int(srcPos), args[2], int(dstPos), int(length))
	})
}

// ============================================================================
// java/lang/String
// ============================================================================

func registerString(r *Registry) {
	const cls = "java/lang/String"

	str := func(name string, desc string, fn func(s string, args []any) (any, error)) {
		method := "String." + name
		r.Register(cls, name, desc, func(args []any) (any, error) {
			s, err := arg[string](method, args, 0)
			if err != nil {
				return nil, err
			}
			return fn(s, args)
		})
	}

	str("length", "()I", func(s string, _ []any) (any, error) {
		return int32(JavaLength(s)), nil
	})
	str("isEmpty", "()Z", func(s string, _ []any) (any, error) {
		return s == "", nil
	})
	str("hashCode", "()I", func(s string, _ []any) (any, error) {
		return JavaHashCode(s), nil
	})
	str("toString", "()"+descString, func(s string, _ []any) (any, error) {
		return s, nil
	})
	str("equals", "("+descObject+")Z", func(s string, args []any) (any, error) {
		return objectEquals(s, args[1]), nil
	})
	str("charAt", "(I)C", func(s string, args []any) (any, error) {
		i, err := arg[int32]("String.charAt", args, 1)
		if err != nil {
			return nil, err
		}
		units := utf16.Encode([]rune(s))
		if i < 0 || int(i) >= len(units) {
			return nil, &IndexError{Index: int(i), Length: len(units)}
		}
		return Char(units[i]), nil
	})
	str("concat", "("+descString+")"+descString, func(s string, args []any) (any, error) {
		t, err := arg[string]("String.concat", args, 1)
		if err != nil {
			return nil, err
		}
		return s + t, nil
	})
	str("contains", "("+descCharSequence+")Z", func(s string, args []any) (any, error) {
		return strings.Contains(s, ToString(args[1])), nil
	})
	str("indexOf", "("+descString+")I", func(s string, args []any) (any, error) {
		t, err := arg[string]("String.indexOf", args, 1)
		if err != nil {
			return nil, err
		}
		i := strings.Index(s, t)
		if i < 0 {
			return int32(-1), nil
		}
		return int32(JavaLength(s[:i])), nil
	})
	str("substring", "(I)"+descString, func(s string, args []any) (any, error) {
		begin, err := arg[int32]("String.substring", args, 1)
		if err != nil {
			return nil, err
		}
		return substring(s, int(begin), JavaLength(s))
	})
	str("substring", "(II)"+descString, func(s string, args []any) (any, error) {
		begin, err := arg[int32]("String.substring", args, 1)
		if err != nil {
			return nil, err
		}
		end, err := arg[int32]("String.substring", args, 2)
		if err != nil {
			return nil, err
		}
		return substring(s, int(begin), int(end))
	})
	str("toUpperCase", "()"+descString, func(s string, _ []any) (any, error) {
		return strings.ToUpper(s), nil
	})
	str("toLowerCase", "()"+descString, func(s string, _ []any) (any, error) {
		return strings.ToLower(s), nil
	})
	str("trim", "()"+descString, func(s string, _ []any) (any, error) {
		return strings.Trim(s, " \t\n\r\f\v\x00"), nil
	})

	// String.valueOf 的各个重载
	for _, d := range []string{"I", "J", "F", "D", "Z", "C", descObject} {
		r.Register(cls, "valueOf", "("+d+")"+descString, func(args []any) (any, error) {
			return ToString(args[0]), nil
		})
	}
}

func substring(s string, begin, end int) (any, error) {
	units := utf16.Encode([]rune(s))
	if begin < 0 || end > len(units) || begin > end {
		return nil, &IndexError{Index: begin, Length: len(units)}
	}
	return string(utf16.Decode(units[begin:end])), nil
}

// IndexError 字符串下标越界
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return "index " + ToString(int32(e.Index)) + " out of bounds for length " + ToString(int32(e.Length))
}

// ============================================================================
// java/lang/StringBuilder
// ============================================================================

func registerStringBuilder(r *Registry) {
	const cls = "java/lang/StringBuilder"
	r.RegisterClass(cls, func() any { return &StringBuilder{} })

	sb := func(name, desc string, fn func(b *StringBuilder, args []any) (any, error)) {
		method := "StringBuilder." + name
		r.Register(cls, name, desc, func(args []any) (any, error) {
			b, err := arg[*StringBuilder](method, args, 0)
			if err != nil {
				return nil, err
			}
			return fn(b, args)
		})
	}

	sb("<init>", "()V", func(b *StringBuilder, _ []any) (any, error) {
		return nil, nil
	})
	sb("<init>", "(I)V", func(b *StringBuilder, _ []any) (any, error) {
		return nil, nil
	})
	sb("<init>", "("+descString+")V", func(b *StringBuilder, args []any) (any, error) {
		s, err := arg[string]("StringBuilder.<init>", args, 1)
		if err != nil {
			return nil, err
		}
		b.Append(s)
		return nil, nil
	})
	for _, d := range []string{"I", "J", "F", "D", "Z", "C", descString, descObject, descCharSequence} {
		sb("append", "("+d+")"+descStringBuilder, func(b *StringBuilder, args []any) (any, error) {
			return b.Append(args[1]), nil
		})
	}
	sb("length", "()I", func(b *StringBuilder, _ []any) (any, error) {
		return int32(b.Len()), nil
	})
	sb("toString", "()"+descString, func(b *StringBuilder, _ []any) (any, error) {
		return b.String(), nil
	})
	sb("reverse", "()"+descStringBuilder, func(b *StringBuilder, _ []any) (any, error) {
		b.reverse()
		return b, nil
	})
}

// ============================================================================
// 装箱类型
// ============================================================================

type boxSpec struct {
	class  string
	desc   string
	getter string
}

var boxSpecs = []boxSpec{
	{"java/lang/Integer", "I", "intValue"},
	{"java/lang/Long", "J", "longValue"},
	{"java/lang/Float", "F", "floatValue"},
	{"java/lang/Double", "D", "doubleValue"},
	{"java/lang/Boolean", "Z", "booleanValue"},
	{"java/lang/Character", "C", "charValue"},
}

func registerBoxes(r *Registry) {
	for _, spec := range boxSpecs {
		ref := "L" + spec.class + ";"
		r.Register(spec.class, "valueOf", "("+spec.desc+")"+ref, func(args []any) (any, error) {
			return &Boxed{Class: spec.class, Value: args[0]}, nil
		})
		r.Register(spec.class, spec.getter, "()"+spec.desc, func(args []any) (any, error) {
			b, err := arg[*Boxed](spec.class+"."+spec.getter, args, 0)
			if err != nil {
				return nil, err
			}
			return b.Value, nil
		})
		r.Register(spec.class, "toString", "()"+descString, func(args []any) (any, error) {
			return ToString(args[0]), nil
		})
		r.Register(spec.class, "toString", "("+spec.desc+")"+descString, func(args []any) (any, error) {
			return ToString(args[0]), nil
		})
		r.Register(spec.class, "equals", "("+descObject+")Z", func(args []any) (any, error) {
			return objectEquals(args[0], args[1]), nil
		})
		r.Register(spec.class, "hashCode", "()I", func(args []any) (any, error) {
			b, err := arg[*Boxed](spec.class+".hashCode", args, 0)
			if err != nil {
				return nil, err
			}
			return boxHash(b.Value), nil
		})
	}
}

func boxHash(v any) int32 {
	switch x := v.(type) {
	case int32:
		return x
	case int64:
		return int32(x ^ int64(uint64(x)>>32))
	case float32:
		return int32(math.Float32bits(x))
	case float64:
		bits := math.Float64bits(x)
		return int32(bits ^ bits>>32)
	case bool:
		if x {
			return 1231
		}
		return 1237
	case Char:
		return int32(x)
	}
	return 0
}

// ============================================================================
// 异常
// ============================================================================

var throwableClasses = []string{
	"java/lang/Throwable",
	"java/lang/Exception",
	"java/lang/RuntimeException",
	"java/lang/ArithmeticException",
	"java/lang/IllegalArgumentException",
	"java/lang/IllegalStateException",
	"java/lang/UnsupportedOperationException",
	"java/lang/IndexOutOfBoundsException",
	"java/lang/NullPointerException",
}

func registerThrowables(r *Registry) {
	for _, cls := range throwableClasses {
		r.RegisterClass(cls, func() any { return &Throwable{Class: cls} })
		r.Register(cls, "<init>", "()V", func(args []any) (any, error) {
			return nil, nil
		})
		r.Register(cls, "<init>", "("+descString+")V", func(args []any) (any, error) {
			t, err := arg[*Throwable](cls+".<init>", args, 0)
			if err != nil {
				return nil, err
			}
			t.Message = args[1]
			return nil, nil
		})
		r.Register(cls, "getMessage", "()"+descString, func(args []any) (any, error) {
			t, err := arg[*Throwable](cls+".getMessage", args, 0)
			if err != nil {
				return nil, err
			}
			return t.Message, nil
		})
		r.Register(cls, "toString", "()"+descString, func(args []any) (any, error) {
			return ToString(args[0]), nil
		})
	}
}

// ============================================================================
// java/lang/Math
// ============================================================================

func registerMath(r *Registry) {
	const cls = "java/lang/Math"

	r.Register(cls, "abs", "(I)I", func(args []any) (any, error) {
		x := args[0].(int32)
		if x < 0 {
			return -x, nil
		}
		return x, nil
	})
	r.Register(cls, "abs", "(J)J", func(args []any) (any, error) {
		x := args[0].(int64)
		if x < 0 {
			return -x, nil
		}
		return x, nil
	})
	r.Register(cls, "abs", "(F)F", func(args []any) (any, error) {
		return float32(math.Abs(float64(args[0].(float32)))), nil
	})
	r.Register(cls, "abs", "(D)D", func(args []any) (any, error) {
		return math.Abs(args[0].(float64)), nil
	})
	r.Register(cls, "max", "(II)I", func(args []any) (any, error) {
		return max(args[0].(int32), args[1].(int32)), nil
	})
	r.Register(cls, "min", "(II)I", func(args []any) (any, error) {
		return min(args[0].(int32), args[1].(int32)), nil
	})
	r.Register(cls, "max", "(JJ)J", func(args []any) (any, error) {
		return max(args[0].(int64), args[1].(int64)), nil
	})
	r.Register(cls, "min", "(JJ)J", func(args []any) (any, error) {
		return min(args[0].(int64), args[1].(int64)), nil
	})
	r.Register(cls, "max", "(DD)D", func(args []any) (any, error) {
		return math.Max(args[0].(float64), args[1].(float64)), nil
	})
	r.Register(cls, "min", "(DD)D", func(args []any) (any, error) {
		return math.Min(args[0].(float64), args[1].(float64)), nil
	})

	unary := map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"log":   math.Log,
		"exp":   math.Exp,
	}
	for name, fn := range unary {
		r.Register(cls, name, "(D)D", func(args []any) (any, error) {
			return fn(args[0].(float64)), nil
		})
	}
	r.Register(cls, "pow", "(DD)D", func(args []any) (any, error) {
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	})
}
