package vm

import (
	"github.com/google/uuid"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ThreadState 线程状态
type ThreadState int

const (
	StateNew ThreadState = iota
	StateRunning
	StateInvoking
	StateReturning
	StateFaulted
	StateTerminated
)

var threadStateNames = [...]string{
	StateNew:        "new",
	StateRunning:    "running",
	StateInvoking:   "invoking",
	StateReturning:  "returning",
	StateFaulted:    "faulted",
	StateTerminated: "terminated",
}

func (s ThreadState) String() string {
	if int(s) < len(threadStateNames) {
		return threadStateNames[s]
	}
	return "unknown"
}

// Thread 调用栈：栈顶帧是正在执行的帧
//
// 状态转换：New → Invoking（解析被调方法）→ Running（帧已压入）→
// Returning（帧执行完毕、尚未弹出）→ Running（回到调用者）或 Terminated；
// 任意状态遇到故障进入 Faulted。
type Thread struct {
	ID       uuid.UUID
	frames   []*Frame
	state    ThreadState
	maxDepth int
	observer func(from, to ThreadState)
}

// NewThread 创建线程，maxDepth <= 0 表示不限深度
func NewThread(maxDepth int) *Thread {
	return &Thread{ID: uuid.New(), maxDepth: maxDepth}
}

// Push 压入新帧
func (t *Thread) Push(f *Frame) error {
	if t.maxDepth > 0 && len(t.frames) >= t.maxDepth {
		return errors.NewRuntimeError(errors.R0402, "call stack depth exceeds %d", t.maxDepth).
			With("max_depth", t.maxDepth)
	}
	t.frames = append(t.frames, f)
	t.setState(StateRunning)
	return nil
}

// Pop 弹出栈顶帧，栈空时线程结束
func (t *Thread) Pop() *Frame {
	n := len(t.frames)
	if n == 0 {
		return nil
	}
	f := t.frames[n-1]
	t.frames[n-1] = nil
	t.frames = t.frames[:n-1]
	if len(t.frames) == 0 {
		t.setState(StateTerminated)
	} else {
		t.setState(StateRunning)
	}
	return f
}

// Top 栈顶帧
func (t *Thread) Top() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// Depth 当前帧数
func (t *Thread) Depth() int {
	return len(t.frames)
}

// State 当前状态
func (t *Thread) State() ThreadState {
	return t.state
}

// Observe 注册状态转换回调，调试和测试使用。同一状态的重复设置不回调。
func (t *Thread) Observe(fn func(from, to ThreadState)) {
	t.observer = fn
}

func (t *Thread) setState(s ThreadState) {
	if s == t.state {
		return
	}
	from := t.state
	t.state = s
	if t.observer != nil {
		t.observer(from, s)
	}
}

// StackTrace 从栈顶到栈底的堆栈
func (t *Thread) StackTrace() []errors.StackFrame {
	out := make([]errors.StackFrame, 0, len(t.frames))
	for i := len(t.frames) - 1; i >= 0; i-- {
		out = append(out, t.frames[i].StackFrame())
	}
	return out
}

// unwind 故障后清空调用栈
func (t *Thread) unwind() {
	for i := range t.frames {
		t.frames[i] = nil
	}
	t.frames = t.frames[:0]
	t.setState(StateFaulted)
}
