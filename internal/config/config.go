// Package config 读写 sjvm.toml 运行配置
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// 常量定义
const (
	ConfigFileName      = "sjvm.toml" // 配置文件名
	DefaultMaxCallDepth = 1024
)

// Config 运行配置
type Config struct {
	VM  VMConfig  `toml:"vm"`
	Log LogConfig `toml:"log"`
}

// VMConfig 虚拟机配置
type VMConfig struct {
	// ClassPath 类路径条目：目录或 jar 文件
	ClassPath []string `toml:"classpath"`

	// MainClass 入口类，如 com/example/Main
	MainClass string `toml:"main"`

	// MaxCallDepth 调用栈最大深度
	MaxCallDepth int `toml:"max_call_depth"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug、info、warn、error
	Level string `toml:"level"`

	// Format console 或 json
	Format string `toml:"format"`

	// Trace 逐条记录执行的指令
	Trace bool `toml:"trace"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		VM: VMConfig{
			ClassPath:    []string{"."},
			MaxCallDepth: DefaultMaxCallDepth,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load 从文件加载配置，未出现的键保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// FindAndLoad 从 dir 开始逐级向上查找 sjvm.toml，找不到时返回默认配置
func FindAndLoad(dir string) (*Config, string, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// FindConfigFile 查找配置文件，返回空字符串表示没有
func FindConfigFile(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(abs, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if c.VM.MaxCallDepth <= 0 {
		return fmt.Errorf("vm.max_call_depth must be positive, got %d", c.VM.MaxCallDepth)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
