package bytecode

import (
	"encoding/binary"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// Stream 方法字节码上的读取游标。
// 每个调用帧持有自己的 Stream，字节码本身只读共享。
type Stream struct {
	code  []byte
	pc    int // 下一个待读字节
	start int // 当前指令的操作码位置
}

// NewStream 创建指向代码起始处的流
func NewStream(code []byte) *Stream {
	return &Stream{code: code}
}

// Reset 回到代码起始处
func (s *Stream) Reset() {
	s.pc = 0
	s.start = 0
}

// End 是否已读完全部代码
func (s *Stream) End() bool {
	return s.pc >= len(s.code)
}

// PC 下一个待读字节的偏移
func (s *Stream) PC() int {
	return s.pc
}

// InstructionStart 当前指令操作码的偏移
func (s *Stream) InstructionStart() int {
	return s.start
}

// Opcode 当前指令的操作码字节
func (s *Stream) Opcode() byte {
	if s.start >= len(s.code) {
		return 0
	}
	return s.code[s.start]
}

// Len 代码长度
func (s *Stream) Len() int {
	return len(s.code)
}

// NextOpcode 读取下一条指令的操作码并记录指令起点
func (s *Stream) NextOpcode() (OpCode, error) {
	if s.pc >= len(s.code) {
		return 0, s.overrun(1)
	}
	s.start = s.pc
	op := OpCode(s.code[s.pc])
	s.pc++
	return op, nil
}

// U1 读取无符号字节
func (s *Stream) U1() (uint8, error) {
	if s.pc+1 > len(s.code) {
		return 0, s.overrun(1)
	}
	v := s.code[s.pc]
	s.pc++
	return v, nil
}

// S1 读取有符号字节
func (s *Stream) S1() (int8, error) {
	v, err := s.U1()
	return int8(v), err
}

// U2 读取大端无符号短整型
func (s *Stream) U2() (uint16, error) {
	if s.pc+2 > len(s.code) {
		return 0, s.overrun(2)
	}
	v := binary.BigEndian.Uint16(s.code[s.pc:])
	s.pc += 2
	return v, nil
}

// S2 读取大端有符号短整型
func (s *Stream) S2() (int16, error) {
	v, err := s.U2()
	return int16(v), err
}

// S4 读取大端有符号整型
func (s *Stream) S4() (int32, error) {
	if s.pc+4 > len(s.code) {
		return 0, s.overrun(4)
	}
	v := int32(binary.BigEndian.Uint32(s.code[s.pc:]))
	s.pc += 4
	return v, nil
}

// Branch 以当前指令起点为基准跳转。
// 对三字节的跳转指令，这等价于在读完操作数后把游标移动 offset-3。
func (s *Stream) Branch(offset int32) error {
	target := s.start + int(offset)
	if target < 0 || target >= len(s.code) {
		return errors.NewBoundsError(errors.R0003,
			"branch target %d out of code range [0, %d)", target, len(s.code)).
			With("pc", s.start).With("offset", offset)
	}
	s.pc = target
	return nil
}

// AlignOperands 跳过 tableswitch / lookupswitch 操作码后的填充字节，
// 使下一次读取落在相对代码起点 4 字节对齐的位置
func (s *Stream) AlignOperands() {
	if rem := s.pc % 4; rem != 0 {
		s.pc += 4 - rem
	}
}

func (s *Stream) overrun(n int) error {
	return errors.NewBoundsError(errors.R0003,
		"reading %d byte(s) at pc %d runs past the end of the code (length %d)", n, s.pc, len(s.code)).
		With("pc", s.start)
}
