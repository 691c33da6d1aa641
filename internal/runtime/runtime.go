// Package runtime 把配置、类加载器、宿主类注册表和虚拟机组装成可运行的整体，
// 是命令行和嵌入方使用的入口。
package runtime

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/bytecode"
	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/config"
	"github.com/tangzhangming/sjvm/internal/loader"
	"github.com/tangzhangming/sjvm/internal/native"
	"github.com/tangzhangming/sjvm/internal/profiler"
	"github.com/tangzhangming/sjvm/internal/vm"
)

// Runtime 运行时
type Runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	stdout   io.Writer
	stderr   io.Writer
	resolver loader.Resolver
	closer   io.Closer
	prof     *profiler.Profiler

	loader  *loader.Loader
	natives *native.Registry
	vm      *vm.VM
}

// Option 运行时选项
type Option func(*Runtime)

// WithLogger 设置日志器
func WithLogger(log *zap.Logger) Option {
	return func(r *Runtime) {
		r.log = log
	}
}

// WithStdout 设置 System.out 的输出目标
func WithStdout(w io.Writer) Option {
	return func(r *Runtime) {
		r.stdout = w
	}
}

// WithStderr 设置 System.err 的输出目标
func WithStderr(w io.Writer) Option {
	return func(r *Runtime) {
		r.stderr = w
	}
}

// WithResolver 使用给定的类字节来源代替配置中的 classpath
func WithResolver(res loader.Resolver) Option {
	return func(r *Runtime) {
		r.resolver = res
	}
}

// WithProfiler 执行时记录方法调用和指令
func WithProfiler(p *profiler.Profiler) Option {
	return func(r *Runtime) {
		r.prof = p
	}
}

// New 创建运行时，cfg 为 nil 时使用默认配置
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:    cfg,
		log:    zap.NewNop(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.resolver == nil {
		cp := loader.NewClassPath(cfg.VM.ClassPath...)
		r.resolver = cp
		r.closer = cp
		r.log.Debug("classpath", zap.Strings("entries", cp.Entries()))
	}

	r.loader = loader.New(r.resolver, loader.WithLogger(r.log))
	r.natives = native.NewRegistry(r.stdout, r.stderr)
	r.vm = vm.New(r.loader, r.natives,
		vm.WithLogger(r.log),
		vm.WithTrace(cfg.Log.Trace),
		vm.WithMaxCallDepth(cfg.VM.MaxCallDepth),
		vm.WithProfiler(r.prof))
	return r, nil
}

// Close 释放 classpath 中打开的归档文件
func (r *Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// VM 底层虚拟机
func (r *Runtime) VM() *vm.VM {
	return r.vm
}

// Natives 宿主类注册表，嵌入方可在运行前注册额外的宿主方法
func (r *Runtime) Natives() *native.Registry {
	return r.natives
}

// Stats 运行统计
func (r *Runtime) Stats() vm.StatsSnapshot {
	return r.vm.Stats()
}

// MainClass 命令行参数优先，其次是配置中的 vm.main
func (r *Runtime) MainClass(arg string) string {
	if arg != "" {
		return arg
	}
	return r.cfg.VM.MainClass
}

// ============================================================================
// 执行
// ============================================================================

// Run 在新线程上执行 mainClass 的 main(String[])
func (r *Runtime) Run(mainClass string, args []string) error {
	in := r.vm.NewInterpreter()
	log := r.log.With(zap.String("thread", in.Thread().ID.String()))
	log.Info("run", zap.String("main", mainClass), zap.Strings("args", args))

	err := in.RunMain(mainClass, args)

	stats := r.vm.Stats()
	log.Info("finished",
		zap.String("state", in.Thread().State().String()),
		zap.Int64("instructions", stats.Instructions),
		zap.Int64("invocations", stats.Invocations),
		zap.Int64("native_calls", stats.NativeCalls),
		zap.Error(err))
	return err
}

// Invoke 调用静态方法，参数与返回值为宿主值
func (r *Runtime) Invoke(class, name, descriptor string, args ...any) (any, error) {
	return r.vm.NewInterpreter().Invoke(class, name, descriptor, args...)
}

// Load 加载类
func (r *Runtime) Load(class string) (*classfile.Klass, error) {
	return r.loader.Load(loader.NormalizeName(class))
}

// ============================================================================
// 工具
// ============================================================================

// Disassemble 以 javap -c 的格式输出类中每个方法的字节码
func (r *Runtime) Disassemble(class string, w io.Writer) error {
	k, err := r.Load(class)
	if err != nil {
		return err
	}
	var sb strings.Builder
	if mods := k.AccessFlags.ClassString(); mods != "" {
		sb.WriteString(mods + " ")
	}
	kind := "class"
	if k.AccessFlags.IsInterface() {
		kind = "interface"
	}
	fmt.Fprintf(&sb, "%s %s", kind, strings.ReplaceAll(k.Name, "/", "."))
	if k.SuperName != "" && k.SuperName != "java/lang/Object" {
		fmt.Fprintf(&sb, " extends %s", strings.ReplaceAll(k.SuperName, "/", "."))
	}
	sb.WriteString(" {\n")
	for i, m := range k.Methods {
		if i > 0 {
			sb.WriteString("\n")
		}
		mods := m.AccessFlags.MethodString()
		if mods != "" {
			mods += " "
		}
		fmt.Fprintf(&sb, "  %s%s%s;\n", mods, m.Name, m.Descriptor)
		code := m.Code()
		if code == nil {
			continue
		}
		fmt.Fprintf(&sb, "    Code: stack=%d, locals=%d\n", code.MaxStack, code.MaxLocals)
		text, err := bytecode.Disassemble(code.Code, k.ConstantPool)
		sb.WriteString(indent(text, "      "))
		if err != nil {
			return err
		}
	}
	sb.WriteString("}\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

func indent(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return prefix + strings.Join(lines, "\n"+prefix) + "\n"
}
