// Package vm 实现基于操作数栈的字节码解释器。
//
// 一个 VM 持有类加载器、宿主类注册表、静态字段和调用点缓存；
// 每个 Interpreter 拥有一个 Thread，在其上同步执行，没有挂起点。
// VM 和 Interpreter 都不能在多个 goroutine 间同时使用，统计计数器除外。
package vm

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/loader"
	"github.com/tangzhangming/sjvm/internal/native"
	"github.com/tangzhangming/sjvm/internal/profiler"
)

// DefaultMaxCallDepth 默认调用栈深度上限
const DefaultMaxCallDepth = 1024

// VM 虚拟机
type VM struct {
	loader   *loader.Loader
	natives  *native.Registry
	log      *zap.Logger
	trace    bool
	maxDepth int
	prof     *profiler.Profiler

	statics     map[string][]Value // "类名.字段名" -> 值
	initialized map[classfile.KlassID]bool
	callSites   map[callSiteKey]*CallSite
	descriptors map[string]*classfile.MethodDescriptor

	stats Stats
}

// Stats 运行统计，可在其他 goroutine 中读取
type Stats struct {
	Instructions atomic.Int64 // 执行的指令数
	Invocations  atomic.Int64 // 解释执行的方法调用
	NativeCalls  atomic.Int64 // 宿主方法调用
	ClassInits   atomic.Int64 // 执行过的 <clinit>
	CallSites    atomic.Int64 // 已链接的 invokedynamic 调用点
}

// StatsSnapshot 统计快照
type StatsSnapshot struct {
	Instructions int64 `json:"instructions"`
	Invocations  int64 `json:"invocations"`
	NativeCalls  int64 `json:"native_calls"`
	ClassInits   int64 `json:"class_inits"`
	CallSites    int64 `json:"call_sites"`
}

// Option VM 选项
type Option func(*VM)

// WithLogger 设置日志器
func WithLogger(log *zap.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithTrace 逐条记录执行的指令（Debug 级别）
func WithTrace(trace bool) Option {
	return func(vm *VM) {
		vm.trace = trace
	}
}

// WithMaxCallDepth 设置调用栈深度上限
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		vm.maxDepth = n
	}
}

// WithProfiler 记录方法调用和指令到分析器
func WithProfiler(p *profiler.Profiler) Option {
	return func(vm *VM) {
		vm.prof = p
	}
}

// New 创建虚拟机
func New(l *loader.Loader, natives *native.Registry, opts ...Option) *VM {
	vm := &VM{
		loader:      l,
		natives:     natives,
		log:         zap.NewNop(),
		maxDepth:    DefaultMaxCallDepth,
		statics:     make(map[string][]Value),
		initialized: make(map[classfile.KlassID]bool),
		callSites:   make(map[callSiteKey]*CallSite),
		descriptors: make(map[string]*classfile.MethodDescriptor),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// NewInterpreter 创建拥有新线程的解释器
func (vm *VM) NewInterpreter() *Interpreter {
	return &Interpreter{vm: vm, thread: NewThread(vm.maxDepth)}
}

// Loader 类加载器
func (vm *VM) Loader() *loader.Loader {
	return vm.loader
}

// Natives 宿主类注册表
func (vm *VM) Natives() *native.Registry {
	return vm.natives
}

// Stats 返回统计快照
func (vm *VM) Stats() StatsSnapshot {
	return StatsSnapshot{
		Instructions: vm.stats.Instructions.Load(),
		Invocations:  vm.stats.Invocations.Load(),
		NativeCalls:  vm.stats.NativeCalls.Load(),
		ClassInits:   vm.stats.ClassInits.Load(),
		CallSites:    vm.stats.CallSites.Load(),
	}
}

// ============================================================================
// 类与成员解析
// ============================================================================

// isHost 类是否由宿主提供
func (vm *VM) isHost(class string) bool {
	return vm.natives.HasClass(class)
}

// loadClass 加载类，失败时抛出故障
func (vm *VM) loadClass(name string) *classfile.Klass {
	k, err := vm.loader.Load(name)
	if err != nil {
		raise(err)
	}
	return k
}

// superOf 虚拟机内的父类，父类由宿主提供或没有父类时返回 nil
func (vm *VM) superOf(k *classfile.Klass) *classfile.Klass {
	if k.SuperName == "" || vm.isHost(k.SuperName) {
		return nil
	}
	return vm.loadClass(k.SuperName)
}

// hostAncestor 继承链上第一个宿主类
func (vm *VM) hostAncestor(k *classfile.Klass) string {
	for c := k; c != nil; c = vm.superOf(c) {
		if c.SuperName != "" && vm.isHost(c.SuperName) {
			return c.SuperName
		}
	}
	return "java/lang/Object"
}

// findMethod 从 k 开始沿继承链查找非抽象方法，找不到时再查接口默认方法
func (vm *VM) findMethod(k *classfile.Klass, name, descriptor string) (*classfile.Klass, *classfile.MethodInfo) {
	for c := k; c != nil; c = vm.superOf(c) {
		if m, ok := c.FindMethod(name, descriptor); ok && !m.AccessFlags.IsAbstract() {
			return c, m
		}
	}
	for c := k; c != nil; c = vm.superOf(c) {
		if dc, m := vm.findDefaultMethod(c, name, descriptor); m != nil {
			return dc, m
		}
	}
	return nil, nil
}

func (vm *VM) findDefaultMethod(k *classfile.Klass, name, descriptor string) (*classfile.Klass, *classfile.MethodInfo) {
	for _, iname := range k.InterfaceNames {
		if vm.isHost(iname) {
			continue
		}
		iface := vm.loadClass(iname)
		if m, ok := iface.FindMethod(name, descriptor); ok && !m.AccessFlags.IsAbstract() {
			return iface, m
		}
		if dc, m := vm.findDefaultMethod(iface, name, descriptor); m != nil {
			return dc, m
		}
	}
	return nil, nil
}

// findField 沿继承链和接口查找字段的声明类
func (vm *VM) findField(k *classfile.Klass, name string) (*classfile.Klass, *classfile.FieldInfo) {
	for c := k; c != nil; c = vm.superOf(c) {
		if f, ok := c.FindField(name); ok {
			return c, f
		}
		for _, iname := range c.InterfaceNames {
			if vm.isHost(iname) {
				continue
			}
			if dc, f := vm.findField(vm.loadClass(iname), name); f != nil {
				return dc, f
			}
		}
	}
	return nil, nil
}

// isSubclass k 是否为 target 或其子类、实现类
func (vm *VM) isSubclass(k *classfile.Klass, target string) bool {
	if target == "java/lang/Object" || k.Name == target {
		return true
	}
	for _, iname := range k.InterfaceNames {
		if iname == target {
			return true
		}
		if !vm.isHost(iname) && vm.isSubclass(vm.loadClass(iname), target) {
			return true
		}
	}
	if k.SuperName == "" {
		return false
	}
	if k.SuperName == target {
		return true
	}
	if vm.isHost(k.SuperName) {
		return false
	}
	return vm.isSubclass(vm.loadClass(k.SuperName), target)
}

// descriptor 解析并缓存方法描述符
func (vm *VM) descriptor(desc string) *classfile.MethodDescriptor {
	if d, ok := vm.descriptors[desc]; ok {
		return d
	}
	d, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		raise(err)
	}
	vm.descriptors[desc] = d
	return d
}

// ============================================================================
// 静态字段
// ============================================================================

func staticKey(class, name string) string {
	return class + "." + name
}

// Static 读取静态字段，测试和工具使用
func (vm *VM) Static(class, name string) ([]Value, bool) {
	v, ok := vm.statics[staticKey(loader.NormalizeName(class), name)]
	return v, ok
}

// ============================================================================
// 故障
// ============================================================================

// raise 以 panic 抛出故障，由 Interpreter 的公开入口恢复
func raise(err error) {
	if f, ok := errors.AsFault(err); ok {
		panic(f)
	}
	panic(errors.NewRuntimeError(errors.R0001, "%v", err).Wrap(err))
}
