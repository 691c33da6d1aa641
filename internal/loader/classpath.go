package loader

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// ClassFileExtension class 文件后缀
const ClassFileExtension = ".class"

// ErrClassNotFound 类路径中没有该类
var ErrClassNotFound = fs.ErrNotExist

// Resolver 按内部类名（a/b/C）取得 class 文件字节
type Resolver interface {
	Resolve(name string) ([]byte, error)
}

// ============================================================================
// 类路径
// ============================================================================

// ClassPath 由目录和 jar 文件组成的类路径，按顺序查找
type ClassPath struct {
	entries []classPathEntry
}

type classPathEntry interface {
	read(file string) ([]byte, error)
	close() error
	String() string
}

// NewClassPath 创建类路径。以 .jar 或 .zip 结尾的条目按压缩包处理，其余视为目录。
func NewClassPath(entries ...string) *ClassPath {
	cp := &ClassPath{}
	for _, e := range entries {
		if e == "" {
			continue
		}
		lower := strings.ToLower(e)
		if strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip") {
			cp.entries = append(cp.entries, &jarEntry{path: e})
		} else {
			cp.entries = append(cp.entries, dirEntry(e))
		}
	}
	return cp
}

// Entries 返回类路径条目
func (cp *ClassPath) Entries() []string {
	out := make([]string, len(cp.entries))
	for i, e := range cp.entries {
		out[i] = e.String()
	}
	return out
}

// Resolve 依次在每个条目中查找。都没有时返回 ErrClassNotFound，
// 读取失败的条目错误会一并附上。
func (cp *ClassPath) Resolve(name string) ([]byte, error) {
	file := name + ClassFileExtension
	var errs error
	for _, e := range cp.entries {
		data, err := e.read(file)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", e, err))
		}
	}
	if errs != nil {
		return nil, multierr.Append(ErrClassNotFound, errs)
	}
	return nil, ErrClassNotFound
}

// Close 关闭已打开的 jar 文件
func (cp *ClassPath) Close() error {
	var errs error
	for _, e := range cp.entries {
		errs = multierr.Append(errs, e.close())
	}
	return errs
}

// dirEntry 目录条目
type dirEntry string

func (d dirEntry) read(file string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(file)))
}

func (d dirEntry) close() error { return nil }

func (d dirEntry) String() string { return string(d) }

// jarEntry jar 条目，首次访问时打开并保持
type jarEntry struct {
	path string

	once    sync.Once
	reader  *zip.ReadCloser
	files   map[string]*zip.File
	openErr error
}

func (j *jarEntry) open() {
	r, err := zip.OpenReader(j.path)
	if err != nil {
		j.openErr = err
		return
	}
	j.reader = r
	j.files = make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		j.files[path.Clean(f.Name)] = f
	}
}

func (j *jarEntry) read(file string) ([]byte, error) {
	j.once.Do(j.open)
	if j.openErr != nil {
		return nil, j.openErr
	}
	f, ok := j.files[file]
	if !ok {
		return nil, fs.ErrNotExist
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (j *jarEntry) close() error {
	if j.reader == nil {
		return nil
	}
	return j.reader.Close()
}

func (j *jarEntry) String() string { return j.path }

// ============================================================================
// 内存类路径
// ============================================================================

// MapResolver 内存中的 class 文件表，键为内部类名
type MapResolver map[string][]byte

// Resolve 实现 Resolver
func (m MapResolver) Resolve(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, ErrClassNotFound
	}
	return data, nil
}

// Chain 依次尝试多个 Resolver
type Chain []Resolver

// Resolve 实现 Resolver
func (c Chain) Resolve(name string) ([]byte, error) {
	var errs error
	for _, r := range c {
		data, err := r.Resolve(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return nil, ErrClassNotFound
}
