package bytecode

import (
	"fmt"
	"strings"
)

// ConstantDescriber 把常量池索引描述为可读文本，可为 nil
type ConstantDescriber interface {
	DescribeConstant(index uint16) string
}

// 以常量池索引为操作数的指令
var cpOperandOps = map[OpCode]bool{
	OpLdc: true, OpLdcW: true, OpLdc2W: true,
	OpGetstatic: true, OpPutstatic: true, OpGetfield: true, OpPutfield: true,
	OpInvokevirtual: true, OpInvokespecial: true, OpInvokestatic: true,
	OpInvokeinterface: true, OpInvokedynamic: true,
	OpNew: true, OpAnewarray: true, OpCheckcast: true, OpInstanceof: true,
	OpMultianewarray: true,
}

// Disassemble 反汇编一段方法字节码，格式接近 javap -c
func Disassemble(code []byte, cp ConstantDescriber) (string, error) {
	var sb strings.Builder
	// 预估大小：每条指令约 24 字节输出
	sb.Grow(len(code) * 24)

	s := NewStream(code)
	for !s.End() {
		if err := disassembleInstruction(&sb, s, cp); err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

func disassembleInstruction(sb *strings.Builder, s *Stream, cp ConstantDescriber) error {
	op, err := s.NextOpcode()
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "%6d: %s", s.InstructionStart(), op)

	switch {
	case op == OpTableswitch:
		return disassembleTableswitch(sb, s)
	case op == OpLookupswitch:
		return disassembleLookupswitch(sb, s)
	case op == OpWide:
		return disassembleWide(sb, s)
	case op == OpGotoW || op == OpJsrW:
		off, err := s.S4()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %d\n", s.InstructionStart()+int(off))
		return nil
	case op.IsBranch():
		off, err := s.S2()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %d\n", s.InstructionStart()+int(off))
		return nil
	case cpOperandOps[op]:
		return disassembleConstantOperand(sb, s, op, cp)
	}

	switch op {
	case OpBipush:
		v, err := s.S1()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %d", v)
	case OpSipush:
		v, err := s.S2()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %d", v)
	case OpIinc:
		idx, err := s.U1()
		if err != nil {
			return err
		}
		delta, err := s.S1()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %d, %d", idx, delta)
	case OpNewarray:
		atype, err := s.U1()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, " %s", newarrayTypeName(atype))
	default:
		for i := 0; i < op.OperandWidth(); i++ {
			v, err := s.U1()
			if err != nil {
				return err
			}
			fmt.Fprintf(sb, " %d", v)
		}
	}
	sb.WriteString("\n")
	return nil
}

func disassembleConstantOperand(sb *strings.Builder, s *Stream, op OpCode, cp ConstantDescriber) error {
	var index uint16
	if op == OpLdc {
		v, err := s.U1()
		if err != nil {
			return err
		}
		index = uint16(v)
	} else {
		v, err := s.U2()
		if err != nil {
			return err
		}
		index = v
	}
	fmt.Fprintf(sb, " #%d", index)

	// 尾随字节: invokeinterface count/0, invokedynamic 0/0, multianewarray dims
	switch op {
	case OpInvokeinterface:
		count, err := s.U1()
		if err != nil {
			return err
		}
		if _, err := s.U1(); err != nil {
			return err
		}
		fmt.Fprintf(sb, ", %d", count)
	case OpInvokedynamic:
		if _, err := s.U2(); err != nil {
			return err
		}
		sb.WriteString(", 0")
	case OpMultianewarray:
		dims, err := s.U1()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, ", %d", dims)
	}

	if cp != nil {
		if desc := cp.DescribeConstant(index); desc != "" {
			fmt.Fprintf(sb, "\t// %s", desc)
		}
	}
	sb.WriteString("\n")
	return nil
}

func disassembleTableswitch(sb *strings.Builder, s *Stream) error {
	start := s.InstructionStart()
	s.AlignOperands()
	def, err := s.S4()
	if err != nil {
		return err
	}
	low, err := s.S4()
	if err != nil {
		return err
	}
	high, err := s.S4()
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, " { // %d to %d\n", low, high)
	for key := low; key <= high; key++ {
		off, err := s.S4()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%14d: %d\n", key, start+int(off))
	}
	fmt.Fprintf(sb, "%14s: %d\n        }\n", "default", start+int(def))
	return nil
}

func disassembleLookupswitch(sb *strings.Builder, s *Stream) error {
	start := s.InstructionStart()
	s.AlignOperands()
	def, err := s.S4()
	if err != nil {
		return err
	}
	npairs, err := s.S4()
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, " { // %d\n", npairs)
	for i := int32(0); i < npairs; i++ {
		key, err := s.S4()
		if err != nil {
			return err
		}
		off, err := s.S4()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%14d: %d\n", key, start+int(off))
	}
	fmt.Fprintf(sb, "%14s: %d\n        }\n", "default", start+int(def))
	return nil
}

func disassembleWide(sb *strings.Builder, s *Stream) error {
	v, err := s.U1()
	if err != nil {
		return err
	}
	op := OpCode(v)
	idx, err := s.U2()
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, " %s %d", op, idx)
	if op == OpIinc {
		delta, err := s.S2()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, ", %d", delta)
	}
	sb.WriteString("\n")
	return nil
}

// newarray 的 atype 编码
var newarrayTypes = map[uint8]string{
	4: "boolean", 5: "char", 6: "float", 7: "double",
	8: "byte", 9: "short", 10: "int", 11: "long",
}

func newarrayTypeName(atype uint8) string {
	if name, ok := newarrayTypes[atype]; ok {
		return name
	}
	return fmt.Sprintf("<atype %d>", atype)
}
