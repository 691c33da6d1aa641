package vm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/loader"
)

// Interpreter 取指-译码-执行循环
type Interpreter struct {
	vm     *VM
	thread *Thread
}

// Thread 解释器的线程
func (in *Interpreter) Thread() *Thread {
	return in.thread
}

// VM 所属虚拟机
func (in *Interpreter) VM() *VM {
	return in.vm
}

// ============================================================================
// 公开入口
// ============================================================================

// Execute 在线程上执行一个已经准备好局部变量的帧，直到它返回
func (in *Interpreter) Execute(f *Frame) (err error) {
	defer in.recoverFault(&err)
	in.call(f)
	return nil
}

// Invoke 调用静态方法。参数和返回值使用宿主值（见 native 包）。
func (in *Interpreter) Invoke(class, name, descriptor string, args ...any) (result any, err error) {
	defer in.recoverFault(&err)
	in.thread.setState(StateInvoking)

	k := in.vm.loadClass(loader.NormalizeName(class))
	in.ensureInitialized(k)
	dk, m := in.vm.findMethod(k, name, descriptor)
	if m == nil {
		raise(undefinedMethod(k.Name, name, descriptor))
	}
	if !m.IsStatic() {
		raise(errors.NewResolutionError(errors.R0305, "method %s.%s is not static", k.Name, m.Signature()))
	}

	d := in.vm.descriptor(descriptor)
	if len(args) != len(d.Params) {
		raise(errors.NewTypeError("%s.%s expects %d arguments, got %d", k.Name, name, len(d.Params), len(args)))
	}
	var slots []Value
	for i, p := range d.Params {
		slots = append(slots, fromHost(args[i], p)...)
	}
	ret := in.invokeMethod(dk, m, slots)
	if d.IsVoid() {
		return nil, nil
	}
	return toHost(ret, d.Return), nil
}

// RunMain 执行类的 main(String[])
func (in *Interpreter) RunMain(class string, args []string) (err error) {
	defer in.recoverFault(&err)
	in.thread.setState(StateInvoking)

	name := loader.NormalizeName(class)
	k := in.vm.loadClass(name)
	m, ok := k.MainMethod()
	if !ok {
		raise(errors.NewResolutionError(errors.R0307, "class %s has no main(String[]) method", name).With("class", name))
	}
	if !m.IsStatic() {
		raise(errors.NewResolutionError(errors.R0307, "%s.main(String[]) is not static", name).With("class", name))
	}
	in.ensureInitialized(k)

	argv, err := NewReferenceArray("[Ljava/lang/String;", int32(len(args)))
	if err != nil {
		raise(err)
	}
	for i, a := range args {
		argv.elems[i].ref = a
	}
	in.invokeMethod(k, m, []Value{Ref(argv)})
	return nil
}

// recoverFault 把执行期间抛出的故障转换为错误，并附上 Java 层堆栈
func (in *Interpreter) recoverFault(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(*errors.Fault)
	if !ok {
		panic(r)
	}
	if len(f.Frames) == 0 {
		f.Frames = in.thread.StackTrace()
	}
	f.With("thread", in.thread.ID.String())
	in.vm.log.Debug("thread faulted",
		zap.String("thread", in.thread.ID.String()),
		zap.String("code", f.Code),
		zap.String("kind", f.Kind.String()),
		zap.Int("depth", in.thread.Depth()))
	in.thread.unwind()
	if in.vm.prof != nil {
		in.vm.prof.Unwind()
	}
	*errp = f
}

// ============================================================================
// 调用
// ============================================================================

// invokeMethod 为方法建帧，放入参数后执行。本地方法转交宿主注册表。
func (in *Interpreter) invokeMethod(k *classfile.Klass, m *classfile.MethodInfo, args []Value) []Value {
	if m.AccessFlags.IsNative() {
		return in.invokeNative(k.Name, m.Name, m.Descriptor, args, !m.IsStatic())
	}
	f, err := NewFrame(k, m)
	if err != nil {
		raise(err)
	}
	if len(args) > len(f.Locals) {
		raise(errors.NewBoundsError(errors.R0102, "%s.%s: %d argument slots exceed max_locals %d",
			k.Name, m.Signature(), len(args), len(f.Locals)))
	}
	copy(f.Locals, args)
	return in.call(f)
}

// call 压入帧并执行到返回
func (in *Interpreter) call(f *Frame) []Value {
	if err := in.thread.Push(f); err != nil {
		raise(err)
	}
	in.vm.stats.Invocations.Inc()
	if in.vm.trace {
		in.vm.log.Debug("invoke",
			zap.String("class", f.Klass.Name),
			zap.String("method", f.Method.Signature()),
			zap.Int("depth", in.thread.Depth()))
	}

	if in.vm.prof != nil {
		in.vm.prof.Enter(f.Klass.Name + "." + f.Method.Signature())
	}

	result := in.run(f)

	if in.vm.prof != nil {
		in.vm.prof.Exit()
	}
	in.thread.setState(StateReturning)
	in.thread.Pop()
	return result
}

// run 取指-译码-执行，直到帧执行返回指令
func (in *Interpreter) run(f *Frame) []Value {
	for {
		if f.Code.End() {
			raise(errors.NewRuntimeError(errors.R0004, "execution fell off the end of %s.%s",
				f.Klass.Name, f.Method.Signature()))
		}
		op, err := f.Code.NextOpcode()
		if err != nil {
			raise(err)
		}
		in.vm.stats.Instructions.Inc()
		if in.vm.prof != nil {
			in.vm.prof.Instruction(byte(op))
		}
		if in.vm.trace {
			in.vm.log.Debug("exec",
				zap.String("method", f.Klass.Name+"."+f.Method.Name),
				zap.Int("pc", f.Code.InstructionStart()),
				zap.Stringer("op", op),
				zap.Int("stack", len(f.stack)))
		}

		dispatchTable[op](in, f)

		// 宿主方法返回或调用点链接后回到本帧
		if in.thread.state == StateInvoking {
			in.thread.setState(StateRunning)
		}
		if f.done {
			return f.result
		}
	}
}

func undefinedMethod(class, name, descriptor string) *errors.Fault {
	sig := fmt.Sprintf("%s.%s:%s", class, name, descriptor)
	return errors.NewResolutionError(errors.R0305, "method %s not found", sig).With("method", sig)
}

func undefinedField(class, name string) *errors.Fault {
	return errors.NewResolutionError(errors.R0302, "field %s.%s not found", class, name).
		With("field", class+"."+name)
}
