// profiler.go - 方法级执行分析器
//
// 记录解释执行的每个方法：
// 1. 调用次数、总耗时、自身耗时（扣除被调用方法）
// 2. 方法内执行的指令数
// 3. 调用者统计
// 4. 全局操作码直方图

package profiler

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/sjvm/internal/bytecode"
)

// OutputFormat 输出格式
type OutputFormat int

const (
	// FormatText 文本报告
	FormatText OutputFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// ParseFormat 解析输出格式名称
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown profile format %q", s)
}

// Profiler 执行分析器，可被多个解释器共享
type Profiler struct {
	mu sync.Mutex

	start     time.Time
	funcStats map[string]*MethodStats
	callStack []callStackEntry
	opcodes   [256]int64
}

// MethodStats 方法统计
type MethodStats struct {
	Name         string           `json:"name"`
	CallCount    int64            `json:"calls"`
	Instructions int64            `json:"instructions"`
	TotalTime    time.Duration    `json:"total_ns"`
	SelfTime     time.Duration    `json:"self_ns"`
	MinTime      time.Duration    `json:"min_ns"`
	MaxTime      time.Duration    `json:"max_ns"`
	Callers      map[string]int64 `json:"callers,omitempty"`
}

// OpcodeCount 操作码执行次数
type OpcodeCount struct {
	Opcode string `json:"opcode"`
	Count  int64  `json:"count"`
}

// Profile 分析结果
type Profile struct {
	Duration     time.Duration  `json:"duration_ns"`
	Instructions int64          `json:"instructions"`
	Methods      []*MethodStats `json:"methods"`
	Opcodes      []OpcodeCount  `json:"opcodes"`
}

type callStackEntry struct {
	name     string
	start    time.Time
	children time.Duration
}

// New 创建分析器
func New() *Profiler {
	return &Profiler{
		start:     time.Now(),
		funcStats: make(map[string]*MethodStats),
	}
}

// Enter 记录方法进入
func (p *Profiler) Enter(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.getOrCreateStats(method)
	stats.CallCount++
	if n := len(p.callStack); n > 0 {
		if stats.Callers == nil {
			stats.Callers = make(map[string]int64)
		}
		stats.Callers[p.callStack[n-1].name]++
	}
	p.callStack = append(p.callStack, callStackEntry{name: method, start: time.Now()})
}

// Exit 记录栈顶方法返回
func (p *Profiler) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exit()
}

func (p *Profiler) exit() {
	n := len(p.callStack)
	if n == 0 {
		return
	}
	entry := p.callStack[n-1]
	p.callStack = p.callStack[:n-1]

	duration := time.Since(entry.start)
	stats := p.getOrCreateStats(entry.name)
	stats.TotalTime += duration
	stats.SelfTime += duration - entry.children
	if stats.MinTime == 0 || duration < stats.MinTime {
		stats.MinTime = duration
	}
	if duration > stats.MaxTime {
		stats.MaxTime = duration
	}
	if n > 1 {
		p.callStack[n-2].children += duration
	}
}

// Unwind 故障中止执行时结束所有未返回的方法
func (p *Profiler) Unwind() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.callStack) > 0 {
		p.exit()
	}
}

// Instruction 记录一条指令，计入栈顶方法
func (p *Profiler) Instruction(op byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opcodes[op]++
	if n := len(p.callStack); n > 0 {
		p.funcStats[p.callStack[n-1].name].Instructions++
	}
}

func (p *Profiler) getOrCreateStats(method string) *MethodStats {
	stats, ok := p.funcStats[method]
	if !ok {
		stats = &MethodStats{Name: method}
		p.funcStats[method] = stats
	}
	return stats
}

// Profile 当前的分析结果，方法按总耗时降序，操作码按次数降序
func (p *Profiler) Profile() *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile := &Profile{
		Duration: time.Since(p.start),
		Methods:  make([]*MethodStats, 0, len(p.funcStats)),
	}
	for _, stats := range p.funcStats {
		statsCopy := *stats
		if stats.Callers != nil {
			statsCopy.Callers = make(map[string]int64, len(stats.Callers))
			for k, v := range stats.Callers {
				statsCopy.Callers[k] = v
			}
		}
		profile.Methods = append(profile.Methods, &statsCopy)
	}
	sort.Slice(profile.Methods, func(i, j int) bool {
		a, b := profile.Methods[i], profile.Methods[j]
		if a.TotalTime != b.TotalTime {
			return a.TotalTime > b.TotalTime
		}
		return a.Name < b.Name
	})

	for op, count := range p.opcodes {
		if count == 0 {
			continue
		}
		profile.Instructions += count
		profile.Opcodes = append(profile.Opcodes, OpcodeCount{
			Opcode: bytecode.OpCode(op).String(),
			Count:  count,
		})
	}
	sort.Slice(profile.Opcodes, func(i, j int) bool {
		a, b := profile.Opcodes[i], profile.Opcodes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Opcode < b.Opcode
	})
	return profile
}

// Reset 清空统计
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.funcStats = make(map[string]*MethodStats)
	p.callStack = nil
	p.opcodes = [256]int64{}
}

// ============================================================================
// 报告
// ============================================================================

// WriteProfile 输出报告
func (p *Profiler) WriteProfile(w io.Writer, format OutputFormat) error {
	profile := p.Profile()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	default:
		return writeTextProfile(w, profile)
	}
}

// topN 文本报告中列出的条目数
const topN = 10

func writeTextProfile(w io.Writer, profile *Profile) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Execution Profile\n")
	fmt.Fprintf(&sb, "=================\n\n")
	fmt.Fprintf(&sb, "Duration: %s\n", profile.Duration)
	fmt.Fprintf(&sb, "Instructions: %d\n", profile.Instructions)
	fmt.Fprintf(&sb, "Methods: %d\n\n", len(profile.Methods))

	fmt.Fprintf(&sb, "Top Methods by Total Time:\n")
	fmt.Fprintf(&sb, "%-48s %8s %12s %12s %12s\n", "Method", "Calls", "Insns", "Total", "Self")
	sb.WriteString(strings.Repeat("-", 96) + "\n")
	for i, stats := range profile.Methods {
		if i == topN {
			break
		}
		fmt.Fprintf(&sb, "%-48s %8d %12d %12s %12s\n",
			truncateName(stats.Name, 48),
			stats.CallCount,
			stats.Instructions,
			stats.TotalTime,
			stats.SelfTime)
	}

	if len(profile.Opcodes) > 0 {
		fmt.Fprintf(&sb, "\nTop Opcodes:\n")
		for i, oc := range profile.Opcodes {
			if i == topN {
				break
			}
			fmt.Fprintf(&sb, "  %-16s %12d\n", oc.Opcode, oc.Count)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// truncateName 截断方法名
func truncateName(name string, maxLen int) string {
	if len(name) <= maxLen {
		return name
	}
	return name[:maxLen-3] + "..."
}
