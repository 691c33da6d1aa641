package vm

import (
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/native"
)

// ============================================================================
// 值编组
// ============================================================================

// toHost 按描述符类型把槽位转换为宿主值
func toHost(slots []Value, t classfile.FieldType) any {
	switch t.Base {
	case classfile.TBoolean:
		expectType(slots[0], TypeInt)
		return slots[0].I != 0
	case classfile.TChar:
		expectType(slots[0], TypeInt)
		return native.Char(uint16(slots[0].I))
	case classfile.TByte, classfile.TShort, classfile.TInt:
		expectType(slots[0], TypeInt)
		return slots[0].I
	case classfile.TFloat:
		expectType(slots[0], TypeFloat)
		return slots[0].F
	case classfile.TLong:
		expectType(slots[0], TypeLong)
		expectType(slots[1], TypeLong)
		return JoinLong(slots[0], slots[1])
	case classfile.TDouble:
		expectType(slots[0], TypeDouble)
		expectType(slots[1], TypeDouble)
		return JoinDouble(slots[0], slots[1])
	case classfile.TVoid:
		return nil
	}
	if !slots[0].Type.IsReference() {
		panic(errors.NewTypeError("expected reference for %s, got %s", t.Descriptor, slots[0].Type))
	}
	return slots[0].Ref
}

// fromHost 按描述符类型把宿主值转换为槽位，基本类型与装箱类型之间自动转换
func fromHost(v any, t classfile.FieldType) []Value {
	if b, ok := v.(*native.Boxed); ok && !t.IsReference() {
		v = b.Value
	}
	switch t.Base {
	case classfile.TVoid:
		return nil
	case classfile.TBoolean, classfile.TChar, classfile.TByte, classfile.TShort, classfile.TInt:
		switch x := v.(type) {
		case bool:
			if x {
				return []Value{Int(1)}
			}
			return []Value{Int(0)}
		case native.Char:
			return []Value{Int(int32(x))}
		case int32:
			return []Value{Int(x)}
		case int:
			return []Value{Int(int32(x))}
		}
	case classfile.TLong:
		switch x := v.(type) {
		case int64:
			hi, lo := Long(x)
			return []Value{hi, lo}
		case int32:
			hi, lo := Long(int64(x))
			return []Value{hi, lo}
		}
	case classfile.TFloat:
		if x, ok := v.(float32); ok {
			return []Value{Float(x)}
		}
	case classfile.TDouble:
		switch x := v.(type) {
		case float64:
			hi, lo := Double(x)
			return []Value{hi, lo}
		case float32:
			hi, lo := Double(float64(x))
			return []Value{hi, lo}
		}
	default:
		return []Value{Ref(box(v))}
	}
	panic(errors.NewTypeError("cannot convert host value %T to %s", v, t.Descriptor))
}

// box 把宿主基本类型值装箱，引用原样返回
func box(v any) any {
	switch v.(type) {
	case int32:
		return &native.Boxed{Class: "java/lang/Integer", Value: v}
	case int64:
		return &native.Boxed{Class: "java/lang/Long", Value: v}
	case float32:
		return &native.Boxed{Class: "java/lang/Float", Value: v}
	case float64:
		return &native.Boxed{Class: "java/lang/Double", Value: v}
	case bool:
		return &native.Boxed{Class: "java/lang/Boolean", Value: v}
	case native.Char:
		return &native.Boxed{Class: "java/lang/Character", Value: v}
	}
	return v
}

// splitArgs 按参数类型切分槽位
func splitArgs(slots []Value, params []classfile.FieldType) [][]Value {
	out := make([][]Value, len(params))
	pos := 0
	for i, p := range params {
		n := p.Slots()
		if pos+n > len(slots) {
			panic(errors.NewBoundsError(errors.R0202, "not enough argument slots for %s", p.Descriptor))
		}
		out[i] = slots[pos : pos+n]
		pos += n
	}
	return out
}

// ============================================================================
// 宿主调用
// ============================================================================

// invokeNative 调用宿主方法。args 为按压栈顺序排列的槽位，实例方法第一个槽位是接收者。
func (in *Interpreter) invokeNative(class, name, descriptor string, args []Value, instance bool) []Value {
	fn, ok := in.vm.natives.Lookup(class, name, descriptor)
	if !ok {
		raise(undefinedMethod(class, name, descriptor))
	}
	d := in.vm.descriptor(descriptor)

	hostArgs := make([]any, 0, len(d.Params)+1)
	if instance {
		recv := args[0]
		if recv.Type == TypeNull {
			raise(errors.NewRuntimeError(errors.R0300, "cannot invoke %s.%s on null", class, name).
				With("method", class+"."+name+":"+descriptor))
		}
		hostArgs = append(hostArgs, receiverOf(recv.Ref))
		args = args[1:]
	}
	for i, part := range splitArgs(args, d.Params) {
		v := toHost(part, d.Params[i])
		if d.Params[i].Descriptor == "Ljava/lang/Object;" && rendersText(name) {
			v = in.renderObject(v)
		}
		hostArgs = append(hostArgs, v)
	}

	in.vm.stats.NativeCalls.Inc()
	if in.vm.trace {
		in.vm.log.Debug("native call", zap.String("method", class+"."+name+":"+descriptor))
	}
	ret, err := fn(hostArgs)
	if err != nil {
		raise(nativeFault(class, name, descriptor, err))
	}
	if d.IsVoid() {
		return nil
	}
	return fromHost(ret, d.Return)
}

// receiverOf 宿主方法的接收者：继承宿主类的对象交出它的宿主部分
func receiverOf(v any) any {
	if obj, ok := v.(*Object); ok && obj.Host != nil {
		return obj.Host
	}
	return v
}

// rendersText 以字符串形式使用 Object 参数的宿主方法
func rendersText(name string) bool {
	switch name {
	case "print", "println", "append", "valueOf":
		return true
	}
	return false
}

// renderObject 虚拟机对象若重写了 toString，则先在虚拟机内求值
func (in *Interpreter) renderObject(v any) any {
	obj, ok := v.(*Object)
	if !ok {
		return v
	}
	k, m := in.vm.findMethod(obj.Class, "toString", "()Ljava/lang/String;")
	if m == nil {
		if obj.Host != nil {
			return obj.Host
		}
		return v
	}
	ret := in.invokeMethod(k, m, []Value{Ref(obj)})
	if len(ret) == 0 || ret[0].Ref == nil {
		return "null"
	}
	return ret[0].Ref
}

// stringOf 与 String.valueOf(Object) 相同，重写的 toString 在虚拟机内执行
func (in *Interpreter) stringOf(v any) string {
	return native.ToString(in.renderObject(v))
}

// nativeFault 把宿主方法返回的错误归入故障分类
func nativeFault(class, name, descriptor string, err error) *errors.Fault {
	method := class + "." + name + ":" + descriptor
	if f, ok := errors.AsFault(err); ok {
		return f.With("method", method)
	}
	var (
		nullErr  *native.NullError
		argErr   *native.ArgError
		indexErr *native.IndexError
	)
	switch {
	case stderrors.As(err, &nullErr):
		return errors.NewRuntimeError(errors.R0300, "%s", err).With("method", method)
	case stderrors.As(err, &argErr):
		return errors.NewTypeError("%s", err).With("method", method)
	case stderrors.As(err, &indexErr):
		return errors.NewBoundsError(errors.R0100, "%s", err).With("method", method)
	}
	return errors.NewRuntimeError(errors.R0001, "%s failed", method).With("method", method).Wrap(err)
}

// hostClassOf 宿主值的 Java 类名
func hostClassOf(v any) string {
	switch x := v.(type) {
	case string:
		return "java/lang/String"
	case native.Named:
		return x.JavaClassName()
	}
	return "java/lang/Object"
}

// hostInstanceOf 宿主值是否为 class 的实例
func hostInstanceOf(v any, class string) bool {
	if class == "java/lang/Object" {
		return true
	}
	_, isStr := v.(string)
	switch class {
	case "java/lang/CharSequence":
		_, isSB := v.(*native.StringBuilder)
		return isStr || isSB
	case "java/lang/Comparable", "java/io/Serializable":
		_, isBox := v.(*native.Boxed)
		return isStr || isBox
	case "java/lang/Number":
		b, ok := v.(*native.Boxed)
		return ok && b.Class != "java/lang/Boolean" && b.Class != "java/lang/Character"
	}
	if t, ok := v.(*native.Throwable); ok {
		return hostSubclass(t.Class, class)
	}
	return hostClassOf(v) == class
}

// hostSuper 宿主类的父类。异常类之外的宿主类直接继承 Object。
func hostSuper(class string) string {
	switch class {
	case "java/lang/Object":
		return ""
	case "java/lang/Throwable":
		return "java/lang/Object"
	case "java/lang/Exception":
		return "java/lang/Throwable"
	case "java/lang/RuntimeException":
		return "java/lang/Exception"
	}
	if strings.HasSuffix(class, "Exception") {
		return "java/lang/RuntimeException"
	}
	return "java/lang/Object"
}

// hostSubclass 宿主类 class 是否为 target 或其子类
func hostSubclass(class, target string) bool {
	for c := class; c != ""; c = hostSuper(c) {
		if c == target {
			return true
		}
	}
	return false
}
