package vm

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/native"
)

// ============================================================================
// invokedynamic 调用点
// ============================================================================

// 支持的引导方法
const (
	lambdaFactory  = "java/lang/invoke/LambdaMetafactory"
	concatFactory  = "java/lang/invoke/StringConcatFactory"
	recipeArgument = '\u0001'
	recipeConstant = '\u0002'
)

type siteKind uint8

const (
	siteLambda siteKind = iota
	siteConcat
)

type callSiteKey struct {
	klass classfile.KlassID
	index uint16
}

// CallSite 链接后的调用点，每个 (类, 常量池下标) 只链接一次
type CallSite struct {
	kind       siteKind
	owner      string
	name       string // 函数式接口方法名
	descriptor string // 捕获参数 -> 接口类型，或拼接参数 -> String
	iface      string
	impl       classfile.MethodHandleRef
	recipe     string
	constants  []any
}

// Lambda invokedynamic 产生的函数式接口实例
type Lambda struct {
	site     *CallSite
	captured []Value
}

// JavaClassName 外部类名加 $$Lambda
func (l *Lambda) JavaClassName() string { return l.site.owner + "$$Lambda" }

// Interface 实现的函数式接口
func (l *Lambda) Interface() string { return l.site.iface }

// lambdaInterface 虚拟机内的函数式接口类。宿主接口或类路径上没有的接口返回 nil。
func (in *Interpreter) lambdaInterface(l *Lambda) *classfile.Klass {
	if l.site.iface == "" || in.vm.isHost(l.site.iface) {
		return nil
	}
	k, err := in.vm.loader.Load(l.site.iface)
	if err != nil {
		if errors.HasCode(err, errors.R0304) {
			return nil
		}
		raise(err)
	}
	return k
}

// callSite 返回缓存的调用点，首次执行时链接
func (in *Interpreter) callSite(k *classfile.Klass, index uint16) *CallSite {
	key := callSiteKey{klass: k.ID, index: index}
	if site, ok := in.vm.callSites[key]; ok {
		return site
	}
	site := in.link(k, index)
	in.vm.callSites[key] = site
	in.vm.stats.CallSites.Inc()
	in.vm.log.Debug("call site linked",
		zap.String("class", k.Name),
		zap.Uint16("index", index),
		zap.String("name", site.name),
		zap.String("descriptor", site.descriptor))
	return site
}

func (in *Interpreter) link(k *classfile.Klass, index uint16) *CallSite {
	cp := k.ConstantPool
	dyn, err := cp.Dynamic(index)
	if err != nil {
		raise(err)
	}
	if int(dyn.BootstrapIndex) >= len(k.BootstrapMethods) {
		raise(errors.NewResolutionError(errors.R0306, "bootstrap method #%d missing in %s", dyn.BootstrapIndex, k.Name).
			With("class", k.Name))
	}
	bm := k.BootstrapMethods[dyn.BootstrapIndex]
	bsm, err := cp.MethodHandle(bm.MethodRef)
	if err != nil {
		raise(err)
	}

	site := &CallSite{owner: k.Name, name: dyn.Name, descriptor: dyn.Descriptor}
	d := in.vm.descriptor(dyn.Descriptor)
	switch bsm.Member.Class + "." + bsm.Member.Name {
	case lambdaFactory + ".metafactory", lambdaFactory + ".altMetafactory":
		if len(bm.Arguments) < 3 {
			raise(unsupportedBootstrap(bsm, "expected 3 static arguments"))
		}
		if site.impl, err = cp.MethodHandle(bm.Arguments[1]); err != nil {
			raise(err)
		}
		site.kind = siteLambda
		site.iface = d.Return.ClassName
	case concatFactory + ".makeConcatWithConstants":
		if len(bm.Arguments) < 1 {
			raise(unsupportedBootstrap(bsm, "missing recipe"))
		}
		if site.recipe, err = cp.StringValue(bm.Arguments[0]); err != nil {
			raise(err)
		}
		for _, idx := range bm.Arguments[1:] {
			site.constants = append(site.constants, constantValue(cp, idx))
		}
		site.kind = siteConcat
	case concatFactory + ".makeConcat":
		site.recipe = strings.Repeat(string(recipeArgument), len(d.Params))
		site.kind = siteConcat
	default:
		raise(unsupportedBootstrap(bsm, "unsupported bootstrap method"))
	}
	return site
}

func unsupportedBootstrap(bsm classfile.MethodHandleRef, reason string) *errors.Fault {
	return errors.NewResolutionError(errors.R0306, "%s: %s", bsm.Member, reason).
		With("bootstrap", bsm.Member.String())
}

// constantValue 引导方法静态参数的宿主值
func constantValue(cp *classfile.ConstantPool, index uint16) any {
	var (
		v   any
		err error
	)
	switch tag := cp.Tag(index); tag {
	case classfile.ConstantString:
		v, err = cp.StringValue(index)
	case classfile.ConstantFloat:
		v, err = cp.Float(index)
	case classfile.ConstantLong:
		v, err = cp.Long(index)
	case classfile.ConstantDouble:
		v, err = cp.Double(index)
	case classfile.ConstantClass:
		var name string
		name, err = cp.ClassName(index)
		v = &ClassMirror{Name: name}
	default:
		err = errors.NewResolutionError(errors.R0306, "bootstrap argument #%d (%s) not supported",
			index, classfile.ConstantTagName(tag))
	}
	if err != nil {
		raise(err)
	}
	return v
}

// ============================================================================
// 字符串拼接
// ============================================================================

// concat 按配方拼接：\u0001 取下一个参数，\u0002 取下一个常量
func (in *Interpreter) concat(site *CallSite, d *classfile.MethodDescriptor, args []Value) string {
	parts := splitArgs(args, d.Params)
	var sb strings.Builder
	ai, ci := 0, 0
	for _, r := range site.recipe {
		switch r {
		case recipeArgument:
			if ai >= len(parts) {
				raise(errors.NewTypeError("concat recipe %q needs more than %d arguments", site.recipe, len(parts)))
			}
			sb.WriteString(in.stringOf(toHost(parts[ai], d.Params[ai])))
			ai++
		case recipeConstant:
			if ci >= len(site.constants) {
				raise(errors.NewTypeError("concat recipe %q needs more than %d constants", site.recipe, len(site.constants)))
			}
			sb.WriteString(native.ToString(site.constants[ci]))
			ci++
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ============================================================================
// Lambda 调用
// ============================================================================

// invokeLambda 捕获值在前、调用参数在后，按实现方法的参数类型装箱或拆箱
func (in *Interpreter) invokeLambda(l *Lambda, sam *classfile.MethodDescriptor, args []Value) []Value {
	site := l.site
	indy := in.vm.descriptor(site.descriptor)
	var inputs []any
	for i, part := range splitArgs(l.captured, indy.Params) {
		inputs = append(inputs, toHost(part, indy.Params[i]))
	}
	for i, part := range splitArgs(args, sam.Params) {
		inputs = append(inputs, toHost(part, sam.Params[i]))
	}

	member := site.impl.Member
	impl := in.vm.descriptor(member.Descriptor)
	var ret []Value
	switch site.impl.Kind {
	case classfile.RefInvokeStatic:
		ret = in.invokeStatic(member, lambdaArgs(member, impl, inputs))
	case classfile.RefInvokeVirtual, classfile.RefInvokeInterface, classfile.RefInvokeSpecial:
		if len(inputs) == 0 || inputs[0] == nil {
			raise(errors.NewRuntimeError(errors.R0300, "cannot invoke %s on null", member).
				With("method", member.String()))
		}
		slots := append([]Value{Ref(inputs[0])}, lambdaArgs(member, impl, inputs[1:])...)
		if site.impl.Kind == classfile.RefInvokeSpecial {
			ret = in.invokeSpecial(member, slots)
		} else {
			ret = in.invokeVirtual(member, slots)
		}
	case classfile.RefNewInvokeSpecial:
		obj := in.instantiate(member.Class)
		in.invokeSpecial(member, append([]Value{Ref(obj)}, lambdaArgs(member, impl, inputs)...))
		ret = []Value{Ref(obj)}
	default:
		raise(errors.NewResolutionError(errors.R0306, "method handle kind %d not supported", site.impl.Kind).
			With("method", member.String()))
	}

	if sam.IsVoid() {
		return nil
	}
	var result any
	if site.impl.Kind == classfile.RefNewInvokeSpecial {
		result = ret[0].Ref
	} else {
		result = toHost(ret, impl.Return)
	}
	return fromHost(result, sam.Return)
}

func lambdaArgs(member classfile.MemberRef, impl *classfile.MethodDescriptor, inputs []any) []Value {
	if len(inputs) != len(impl.Params) {
		raise(errors.NewTypeError("%s expects %d arguments, lambda supplied %d", member, len(impl.Params), len(inputs)).
			With("method", member.String()))
	}
	var slots []Value
	for i, p := range impl.Params {
		slots = append(slots, fromHost(inputs[i], p)...)
	}
	return slots
}
