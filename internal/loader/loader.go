// Package loader 按类名加载并缓存已解析的类。
// 同名类最多解析一次；并发请求同一个类时共享同一次解析结果。
package loader

import (
	stderrors "errors"
	"io/fs"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tangzhangming/sjvm/internal/classfile"
	"github.com/tangzhangming/sjvm/internal/errors"
)

// Loader 类加载器
type Loader struct {
	resolver Resolver
	log      *zap.Logger

	mu     sync.RWMutex
	byName map[string]*classfile.Klass
	arena  []*classfile.Klass // 下标 = KlassID - 1

	group singleflight.Group
}

// Option 加载器选项
type Option func(*Loader)

// WithLogger 设置日志器
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// New 创建加载器
func New(resolver Resolver, opts ...Option) *Loader {
	l := &Loader{
		resolver: resolver,
		log:      zap.NewNop(),
		byName:   make(map[string]*classfile.Klass),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeName 把 a.b.C 或 a/b/C.class 规范为内部形式 a/b/C
func NormalizeName(name string) string {
	name = strings.TrimSuffix(name, ClassFileExtension)
	return strings.ReplaceAll(name, ".", "/")
}

// Load 按内部类名加载类。已加载过的直接返回缓存。
func (l *Loader) Load(name string) (*classfile.Klass, error) {
	name = NormalizeName(name)
	if k, ok := l.FindLoaded(name); ok {
		return k, nil
	}

	v, err, shared := l.group.Do(name, func() (interface{}, error) {
		// 在等待期间可能已被其他调用者加载
		if k, ok := l.FindLoaded(name); ok {
			return k, nil
		}
		return l.define(name)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.Debug("shared class load", zap.String("class", name))
	}
	return v.(*classfile.Klass), nil
}

func (l *Loader) define(name string) (*classfile.Klass, error) {
	data, err := l.resolver.Resolve(name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			f := errors.NewResolutionError(errors.R0304, "class %s not found", name).With("class", name)
			if err != ErrClassNotFound {
				f.Wrap(err)
			}
			return nil, f
		}
		return nil, errors.NewResolutionError(errors.R0304, "cannot read class %s", name).
			With("class", name).Wrap(err)
	}

	k, err := classfile.Parse(data, classfile.WithLogger(l.log))
	if err != nil {
		if f, ok := errors.AsFault(err); ok {
			f.With("class", name)
		}
		return nil, err
	}
	if k.Name != name {
		return nil, errors.NewResolutionError(errors.R0304, "class file for %s declares class %s", name, k.Name).
			With("class", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byName[name]; ok {
		return existing, nil
	}
	l.arena = append(l.arena, k)
	k.Bind(classfile.KlassID(len(l.arena)))
	l.byName[name] = k

	l.log.Debug("class loaded",
		zap.String("class", name),
		zap.Uint32("id", uint32(k.ID)),
		zap.Int("methods", len(k.Methods)),
		zap.Int("constants", k.ConstantPool.Len()))
	return k, nil
}

// FindLoaded 查找已加载的类，不触发加载
func (l *Loader) FindLoaded(name string) (*classfile.Klass, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	k, ok := l.byName[NormalizeName(name)]
	return k, ok
}

// ByID 按编号取类
func (l *Loader) ByID(id classfile.KlassID) (*classfile.Klass, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id == 0 || int(id) > len(l.arena) {
		return nil, false
	}
	return l.arena[id-1], true
}

// Loaded 按加载顺序返回全部已加载的类
func (l *Loader) Loaded() []*classfile.Klass {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*classfile.Klass, len(l.arena))
	copy(out, l.arena)
	return out
}
