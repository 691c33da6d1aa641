package vm

import (
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/native"
)

// ============================================================================
// 静态字段
// ============================================================================

func memberRef(f *Frame) classfile.MemberRef {
	ref, err := f.Klass.ConstantPool.MemberRef(readU2(f))
	if err != nil {
		raise(err)
	}
	return ref
}

func fieldType(descriptor string) classfile.FieldType {
	t, err := classfile.ParseFieldDescriptor(descriptor)
	if err != nil {
		raise(err)
	}
	return t
}

// staticOwner 解析静态字段的声明类并完成其初始化
func (in *Interpreter) staticOwner(ref classfile.MemberRef) *classfile.Klass {
	k := in.vm.loadClass(ref.Class)
	decl, fi := in.vm.findField(k, ref.Name)
	if fi == nil {
		raise(undefinedField(ref.Class, ref.Name))
	}
	if !fi.AccessFlags.IsStatic() {
		raise(errors.NewTypeError("field %s.%s is not static", decl.Name, ref.Name))
	}
	in.ensureInitialized(decl)
	return decl
}

func opGetstatic(in *Interpreter, f *Frame) {
	ref := memberRef(f)
	if in.vm.isHost(ref.Class) {
		v, ok := in.vm.natives.Field(ref.Class, ref.Name, ref.Descriptor)
		if !ok {
			raise(undefinedField(ref.Class, ref.Name))
		}
		f.pushSlots(fromHost(v, fieldType(ref.Descriptor)))
		return
	}
	decl := in.staticOwner(ref)
	v, ok := in.vm.statics[staticKey(decl.Name, ref.Name)]
	if !ok {
		v = zeroSlots(ref.Descriptor)
	}
	f.pushSlots(v)
}

func opPutstatic(in *Interpreter, f *Frame) {
	ref := memberRef(f)
	if in.vm.isHost(ref.Class) {
		raise(errors.NewTypeError("cannot assign host field %s.%s", ref.Class, ref.Name))
	}
	t := fieldType(ref.Descriptor)
	v := popField(f, t)
	decl := in.staticOwner(ref)
	in.vm.statics[staticKey(decl.Name, ref.Name)] = v
}

// popField 按字段类型弹出并检查值
func popField(f *Frame, t classfile.FieldType) []Value {
	v := f.popSlots(t.Slots())
	switch t.Base {
	case classfile.TLong:
		expectType(v[0], TypeLong)
		expectType(v[1], TypeLong)
	case classfile.TDouble:
		expectType(v[0], TypeDouble)
		expectType(v[1], TypeDouble)
	case classfile.TFloat:
		expectType(v[0], TypeFloat)
	case classfile.TObject, classfile.TArray:
		if !v[0].Type.IsReference() {
			panic(errors.NewTypeError("expected reference for %s, got %s", t.Descriptor, v[0].Type))
		}
	default:
		expectType(v[0], TypeInt)
	}
	return v
}

// ============================================================================
// 实例字段
// ============================================================================

func (in *Interpreter) instanceField(ref classfile.MemberRef, v any) (*Object, *classfile.Klass) {
	if v == nil {
		raise(errors.NewRuntimeError(errors.R0300, "cannot access field %s.%s of null", ref.Class, ref.Name).
			With("field", ref.Class+"."+ref.Name))
	}
	obj, ok := v.(*Object)
	if !ok {
		raise(undefinedField(hostClassOf(v), ref.Name))
	}
	decl, fi := in.vm.findField(in.vm.loadClass(ref.Class), ref.Name)
	if fi == nil {
		raise(undefinedField(ref.Class, ref.Name))
	}
	if fi.AccessFlags.IsStatic() {
		raise(errors.NewTypeError("field %s.%s is static", decl.Name, ref.Name))
	}
	return obj, decl
}

func opGetfield(in *Interpreter, f *Frame) {
	ref := memberRef(f)
	obj, decl := in.instanceField(ref, f.popRef())
	f.pushSlots(obj.Field(decl.Name, ref.Name, ref.Descriptor))
}

func opPutfield(in *Interpreter, f *Frame) {
	ref := memberRef(f)
	v := popField(f, fieldType(ref.Descriptor))
	obj, decl := in.instanceField(ref, f.popRef())
	obj.SetField(decl.Name, ref.Name, v)
}

// ============================================================================
// 对象
// ============================================================================

func opNew(in *Interpreter, f *Frame) {
	name, err := f.Klass.ConstantPool.ClassName(readU2(f))
	if err != nil {
		raise(err)
	}
	f.pushRef(in.instantiate(name))
}

// instantiate 创建实例：宿主类调用注册的构造器，虚拟机类先完成初始化
func (in *Interpreter) instantiate(class string) any {
	if in.vm.isHost(class) {
		v, ok := in.vm.natives.New(class)
		if !ok {
			raise(errors.NewResolutionError(errors.R0304, "host class %s cannot be instantiated", class).
				With("class", class))
		}
		return v
	}
	k := in.vm.loadClass(class)
	if k.AccessFlags.IsAbstract() || k.AccessFlags.IsInterface() {
		raise(errors.NewResolutionError(errors.R0304, "cannot instantiate abstract class %s", class).
			With("class", class))
	}
	in.ensureInitialized(k)
	return NewObject(k)
}

func opCheckcast(in *Interpreter, f *Frame) {
	name, err := f.Klass.ConstantPool.ClassName(readU2(f))
	if err != nil {
		raise(err)
	}
	v := f.peekAt(0)
	if !v.Type.IsReference() {
		raise(errors.NewTypeError("checkcast on %s", v.Type))
	}
	if v.Ref != nil && !in.instanceOf(v.Ref, name) {
		raise(errors.NewCastError(javaClassOf(v.Ref), name))
	}
}

func opInstanceof(in *Interpreter, f *Frame) {
	name, err := f.Klass.ConstantPool.ClassName(readU2(f))
	if err != nil {
		raise(err)
	}
	v := f.popRef()
	if v != nil && in.instanceOf(v, name) {
		f.pushInt(1)
		return
	}
	f.pushInt(0)
}

// instanceOf v 是否可赋值给 class（内部名或数组描述符）
func (in *Interpreter) instanceOf(v any, class string) bool {
	switch x := v.(type) {
	case *Object:
		if in.vm.isSubclass(x.Class, class) {
			return true
		}
		return hostSubclass(in.vm.hostAncestor(x.Class), class)
	case *ArrayObject:
		switch class {
		case x.Class, "java/lang/Object", "java/lang/Cloneable", "java/io/Serializable":
			return true
		case "[Ljava/lang/Object;":
			return x.Elem.IsReference()
		}
		return false
	case *Lambda:
		if class == "java/lang/Object" || class == x.site.iface {
			return true
		}
		if iface := in.lambdaInterface(x); iface != nil {
			return in.vm.isSubclass(iface, class)
		}
		return false
	}
	return hostInstanceOf(v, class)
}

// javaClassOf 运行时类名
func javaClassOf(v any) string {
	if obj, ok := v.(*Object); ok {
		return obj.Class.Name
	}
	return hostClassOf(v)
}

// opAthrow 没有异常表，抛出即终止线程
func opAthrow(in *Interpreter, f *Frame) {
	v := f.popRef()
	if v == nil {
		raise(errors.NewRuntimeError(errors.R0300, "cannot throw null"))
	}
	raise(errors.NewRuntimeError(errors.R0001, "uncaught exception: %s", in.stringOf(v)).
		With("exception", javaClassOf(v)))
}

// opMonitor 单线程执行，监视器只检查操作数
func opMonitor(in *Interpreter, f *Frame) {
	if f.popRef() == nil {
		raise(errors.NewRuntimeError(errors.R0300, "monitor on null"))
	}
}

// hostPart 继承宿主类的对象在调用宿主构造器前创建宿主部分
func (in *Interpreter) hostPart(obj *Object, class string) any {
	if obj.Host != nil || class == "java/lang/Object" {
		return obj.Host
	}
	host, ok := in.vm.natives.New(class)
	if !ok {
		return nil
	}
	if t, ok := host.(*native.Throwable); ok {
		t.Class = obj.Class.Name
	}
	obj.Host = host
	return host
}
