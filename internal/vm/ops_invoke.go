package vm

import (
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// ============================================================================
// 方法调用
// ============================================================================

func opInvokestatic(in *Interpreter, f *Frame) {
	in.thread.setState(StateInvoking)
	ref := memberRef(f)
	d := in.vm.descriptor(ref.Descriptor)
	args := f.popSlots(d.ParamSlots())
	f.pushSlots(in.invokeStatic(ref, args))
}

func opInvokespecial(in *Interpreter, f *Frame) {
	in.thread.setState(StateInvoking)
	ref := memberRef(f)
	args := in.popReceiverArgs(f, ref)
	f.pushSlots(in.invokeSpecial(ref, args))
}

func opInvokevirtual(in *Interpreter, f *Frame) {
	in.thread.setState(StateInvoking)
	ref := memberRef(f)
	args := in.popReceiverArgs(f, ref)
	f.pushSlots(in.invokeVirtual(ref, args))
}

// opInvokeinterface 操作数中的 count 和保留字节不参与执行
func opInvokeinterface(in *Interpreter, f *Frame) {
	in.thread.setState(StateInvoking)
	ref := memberRef(f)
	readU1(f)
	readU1(f)
	args := in.popReceiverArgs(f, ref)
	f.pushSlots(in.invokeVirtual(ref, args))
}

func opInvokedynamic(in *Interpreter, f *Frame) {
	in.thread.setState(StateInvoking)
	index := readU2(f)
	readU2(f)
	site := in.callSite(f.Klass, index)
	d := in.vm.descriptor(site.descriptor)
	args := f.popSlots(d.ParamSlots())
	switch site.kind {
	case siteLambda:
		f.pushRef(&Lambda{site: site, captured: args})
	case siteConcat:
		f.pushRef(in.concat(site, d, args))
	}
}

// popReceiverArgs 弹出接收者和参数，接收者为 null 时报错
func (in *Interpreter) popReceiverArgs(f *Frame, ref classfile.MemberRef) []Value {
	d := in.vm.descriptor(ref.Descriptor)
	recv := f.peekAt(d.ParamSlots())
	if !recv.Type.IsReference() {
		raise(errors.NewTypeError("receiver of %s is %s", ref, recv.Type))
	}
	if recv.Ref == nil {
		raise(errors.NewRuntimeError(errors.R0300, "cannot invoke %s on null", ref).
			With("method", ref.String()))
	}
	return f.popSlots(d.ParamSlots() + 1)
}

// invokeStatic 宿主类直接调用注册函数，否则加载、初始化后解释执行
func (in *Interpreter) invokeStatic(ref classfile.MemberRef, args []Value) []Value {
	if in.vm.isHost(ref.Class) {
		return in.invokeNative(ref.Class, ref.Name, ref.Descriptor, args, false)
	}
	k := in.vm.loadClass(ref.Class)
	in.ensureInitialized(k)
	dk, m := in.vm.findMethod(k, ref.Name, ref.Descriptor)
	if m == nil {
		raise(undefinedMethod(ref.Class, ref.Name, ref.Descriptor))
	}
	if !m.IsStatic() {
		raise(errors.NewTypeError("method %s is not static", ref).With("method", ref.String()))
	}
	return in.invokeMethod(dk, m, args)
}

// invokeSpecial 构造器、私有方法和 super 调用，不做虚分派
func (in *Interpreter) invokeSpecial(ref classfile.MemberRef, args []Value) []Value {
	if in.vm.isHost(ref.Class) {
		if obj, ok := args[0].Ref.(*Object); ok && ref.Name == classfile.InitName {
			in.hostPart(obj, ref.Class)
		}
		return in.invokeNative(ref.Class, ref.Name, ref.Descriptor, args, true)
	}
	k := in.vm.loadClass(ref.Class)
	if dk, m := in.vm.findMethod(k, ref.Name, ref.Descriptor); m != nil {
		return in.invokeMethod(dk, m, args)
	}
	if ret, ok := in.invokeHost(ref, args, in.vm.hostAncestor(k)); ok {
		return ret
	}
	raise(undefinedMethod(ref.Class, ref.Name, ref.Descriptor))
	return nil
}

// invokeVirtual 按接收者的运行时类型分派
func (in *Interpreter) invokeVirtual(ref classfile.MemberRef, args []Value) []Value {
	switch recv := args[0].Ref.(type) {
	case *Object:
		if dk, m := in.vm.findMethod(recv.Class, ref.Name, ref.Descriptor); m != nil {
			return in.invokeMethod(dk, m, args)
		}
		if ret, ok := in.invokeHost(ref, args, in.vm.hostAncestor(recv.Class)); ok {
			return ret
		}
		raise(undefinedMethod(recv.Class.Name, ref.Name, ref.Descriptor))
	case *Lambda:
		if ref.Name == recv.site.name {
			return in.invokeLambda(recv, in.vm.descriptor(ref.Descriptor), args[1:])
		}
		// 函数式接口的默认方法，this 是 lambda 本身
		if iface := in.lambdaInterface(recv); iface != nil {
			if dk, m := in.vm.findMethod(iface, ref.Name, ref.Descriptor); m != nil {
				return in.invokeMethod(dk, m, args)
			}
		}
	}
	class := hostClassOf(args[0].Ref)
	if ret, ok := in.invokeHost(ref, args, class, ref.Class); ok {
		return ret
	}
	raise(undefinedMethod(class, ref.Name, ref.Descriptor))
	return nil
}

// invokeHost 依次在 classes 及其宿主父类上查找实例方法，最后是 java/lang/Object
func (in *Interpreter) invokeHost(ref classfile.MemberRef, args []Value, classes ...string) ([]Value, bool) {
	for _, class := range classes {
		for c := class; c != ""; c = hostSuper(c) {
			if _, ok := in.vm.natives.Lookup(c, ref.Name, ref.Descriptor); ok {
				return in.invokeNative(c, ref.Name, ref.Descriptor, args, true), true
			}
		}
	}
	return nil, false
}
