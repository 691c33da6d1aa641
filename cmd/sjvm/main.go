package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/config"
	"github.com/tangzhangming/sjvm/internal/errors"
	"github.com/tangzhangming/sjvm/internal/i18n"
	"github.com/tangzhangming/sjvm/internal/logging"
	"github.com/tangzhangming/sjvm/internal/profiler"
	"github.com/tangzhangming/sjvm/internal/runtime"
)

const (
	Version = "0.1.0"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options 命令行选项
type options struct {
	classPath  string
	configPath string
	logLevel   string
	trace      bool
	dump       bool
	disasm     bool
	prof       string
	version    bool
	noColor    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	// 语言要在定义 flag 之前确定，帮助文本才能本地化
	args, lang := preprocessArgs(args)
	if lang != "" {
		i18n.SetLanguageFromString(lang)
	} else {
		i18n.SetLanguage(i18n.DetectLanguage())
	}

	var opts options
	fs := flag.NewFlagSet("sjvm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.classPath, "cp", "", i18n.T("cli.opt_cp", string(os.PathListSeparator)))
	fs.StringVar(&opts.configPath, "config", "", i18n.T("cli.opt_config"))
	fs.StringVar(&opts.logLevel, "log", "", i18n.T("cli.opt_log"))
	fs.BoolVar(&opts.trace, "trace", false, i18n.T("cli.opt_trace"))
	fs.BoolVar(&opts.dump, "dump", false, i18n.T("cli.opt_dump"))
	fs.BoolVar(&opts.disasm, "disasm", false, i18n.T("cli.opt_disasm"))
	fs.StringVar(&opts.prof, "prof", "", i18n.T("cli.opt_prof"))
	fs.BoolVar(&opts.version, "version", false, i18n.T("cli.opt_version"))
	fs.BoolVar(&opts.noColor, "no-color", false, i18n.T("cli.opt_no_color"))
	fs.String("lang", string(i18n.GetLanguage()), i18n.T("cli.opt_lang"))
	fs.Usage = func() {
		fmt.Fprintln(stderr, i18n.T("cli.usage"))
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, i18n.T("cli.options"))
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "sjvm %s\n", Version)
		return 0
	}
	if opts.noColor {
		errors.SetColorsEnabled(false)
	}

	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, i18n.T("cli.config_error", err))
		return 1
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, i18n.T("cli.logger_error", err))
		return 1
	}
	defer func() { _ = log.Sync() }()
	if cfgPath != "" {
		log.Debug("config loaded", zap.String("path", cfgPath))
	}

	rtOpts := []runtime.Option{
		runtime.WithLogger(log),
		runtime.WithStdout(stdout),
		runtime.WithStderr(stderr),
	}
	var (
		prof       *profiler.Profiler
		profFormat profiler.OutputFormat
	)
	if opts.prof != "" {
		if profFormat, err = profiler.ParseFormat(opts.prof); err != nil {
			fmt.Fprintln(stderr, i18n.T("cli.config_error", err))
			return 2
		}
		prof = profiler.New()
		rtOpts = append(rtOpts, runtime.WithProfiler(prof))
	}

	rt, err := runtime.New(cfg, rtOpts...)
	if err != nil {
		fmt.Fprintln(stderr, i18n.T("cli.config_error", err))
		return 1
	}
	defer rt.Close()

	mainClass := rt.MainClass(fs.Arg(0))
	if mainClass == "" {
		fmt.Fprintln(stderr, i18n.T("cli.no_main_class"))
		fs.Usage()
		return 1
	}
	var programArgs []string
	if fs.NArg() > 1 {
		programArgs = fs.Args()[1:]
	}

	switch {
	case opts.dump:
		err = rt.Dump(mainClass, stdout)
	case opts.disasm:
		err = rt.Disassemble(mainClass, stdout)
	default:
		err = rt.Run(mainClass, programArgs)
		if prof != nil {
			if perr := prof.WriteProfile(stderr, profFormat); perr != nil {
				fmt.Fprintln(stderr, i18n.T("cli.prof_error", perr))
			}
		}
	}
	if err != nil {
		fmt.Fprint(stderr, errors.NewFormatter().Format(err))
		return 1
	}
	return 0
}

// loadConfig 读取配置文件后应用命令行覆盖
func loadConfig(opts options) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if opts.configPath != "" {
		path = opts.configPath
		cfg, err = config.Load(path)
	} else {
		wd, _ := os.Getwd()
		cfg, path, err = config.FindAndLoad(wd)
	}
	if err != nil {
		return nil, path, err
	}

	if opts.classPath != "" {
		cfg.VM.ClassPath = filepath.SplitList(opts.classPath)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.trace {
		// 指令跟踪以 Debug 级别输出
		cfg.Log.Trace = true
		cfg.Log.Level = "debug"
	}
	return cfg, path, cfg.Validate()
}

// valueFlags 值在下一个参数中给出的选项
var valueFlags = map[string]bool{"cp": true, "config": true, "log": true, "prof": true}

// preprocessArgs 提取 -lang / --lang 参数。主类之后的参数属于 Java 程序，原样保留。
func preprocessArgs(args []string) ([]string, string) {
	var (
		result []string
		lang   string
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--" || !strings.HasPrefix(arg, "-") || arg == "-":
			return append(result, args[i:]...), lang
		case arg == "--lang" || arg == "-lang":
			if i+1 < len(args) {
				lang = args[i+1]
				i++
				continue
			}
		case strings.HasPrefix(arg, "--lang="):
			lang = strings.TrimPrefix(arg, "--lang=")
			continue
		case strings.HasPrefix(arg, "-lang="):
			lang = strings.TrimPrefix(arg, "-lang=")
			continue
		case valueFlags[strings.TrimLeft(arg, "-")] && i+1 < len(args):
			result = append(result, arg, args[i+1])
			i++
			continue
		}
		result = append(result, arg)
	}
	return result, lang
}
