// Package native 提供由宿主实现的 Java 类：一张按 (类, 方法名, 描述符) 登记的静态函数表。
// 参数与返回值使用宿主值：int32、int64、float32、float64、bool（Z）、Char（C）、
// string（java/lang/String）以及本包或虚拟机定义的对象。
package native

import (
	"io"
	"sort"
	"strings"
)

// Func 宿主方法。实例方法的 args[0] 是接收者；void 方法返回 nil。
type Func func(args []any) (any, error)

// Constructor 宿主类的实例工厂，由 new 指令调用，随后再执行 <init>
type Constructor func() any

// Registry 宿主类注册表
type Registry struct {
	methods map[string]Func
	fields  map[string]any
	ctors   map[string]Constructor
	classes map[string]bool

	stdout io.Writer
	stderr io.Writer
}

// Key 方法或字段的查找键，形如 java/io/PrintStream.println:(I)V
func Key(class, name, descriptor string) string {
	return class + "." + name + ":" + descriptor
}

// NewRegistry 创建注册表并登记全部内置宿主类
func NewRegistry(stdout, stderr io.Writer) *Registry {
	r := &Registry{
		methods: make(map[string]Func),
		fields:  make(map[string]any),
		ctors:   make(map[string]Constructor),
		classes: make(map[string]bool),
		stdout:  stdout,
		stderr:  stderr,
	}
	registerObject(r)
	registerSystem(r)
	registerPrintStream(r)
	registerString(r)
	registerStringBuilder(r)
	registerBoxes(r)
	registerThrowables(r)
	registerMath(r)
	return r
}

// Register 登记宿主方法
func (r *Registry) Register(class, name, descriptor string, fn Func) {
	r.classes[class] = true
	r.methods[Key(class, name, descriptor)] = fn
}

// RegisterField 登记宿主静态字段
func (r *Registry) RegisterField(class, name, descriptor string, value any) {
	r.classes[class] = true
	r.fields[Key(class, name, descriptor)] = value
}

// RegisterClass 登记可被 new 实例化的宿主类
func (r *Registry) RegisterClass(class string, ctor Constructor) {
	r.classes[class] = true
	r.ctors[class] = ctor
}

// HasClass 类是否由宿主提供
func (r *Registry) HasClass(class string) bool {
	return r.classes[class]
}

// Lookup 查找宿主方法
func (r *Registry) Lookup(class, name, descriptor string) (Func, bool) {
	fn, ok := r.methods[Key(class, name, descriptor)]
	return fn, ok
}

// Field 读取宿主静态字段
func (r *Registry) Field(class, name, descriptor string) (any, bool) {
	v, ok := r.fields[Key(class, name, descriptor)]
	return v, ok
}

// New 实例化宿主类
func (r *Registry) New(class string) (any, bool) {
	ctor, ok := r.ctors[class]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Methods 返回某个宿主类登记的全部方法签名，按字典序
func (r *Registry) Methods(class string) []string {
	prefix := class + "."
	var out []string
	for key := range r.methods {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out
}

// Stdout 标准输出
func (r *Registry) Stdout() io.Writer {
	return r.stdout
}
