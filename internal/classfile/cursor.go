package classfile

import (
	"encoding/binary"
	"math"

	"github.com/tangzhangming/sjvm/internal/errors"
)

// ByteCursor class 文件字节序列上的大端读取游标
type ByteCursor struct {
	data []byte
	pos  int
}

// NewByteCursor 创建游标
func NewByteCursor(data []byte) *ByteCursor {
	return &ByteCursor{data: data}
}

// Offset 当前偏移
func (c *ByteCursor) Offset() int {
	return c.pos
}

// Remaining 剩余字节数
func (c *ByteCursor) Remaining() int {
	return len(c.data) - c.pos
}

func (c *ByteCursor) need(n int) error {
	if c.pos+n > len(c.data) {
		return errors.NewParseError(errors.P0002,
			"unexpected end of file: need %d byte(s) at offset %d, %d left", n, c.pos, len(c.data)-c.pos).
			With("offset", c.pos)
	}
	return nil
}

// ReadU1 读取无符号字节
func (c *ByteCursor) ReadU1() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// ReadU2 读取无符号短整型
func (c *ByteCursor) ReadU2() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU4 读取无符号整型
func (c *ByteCursor) ReadU4() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadU8 读取无符号长整型
func (c *ByteCursor) ReadU8() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

// ReadI4 读取有符号整型
func (c *ByteCursor) ReadI4() (int32, error) {
	v, err := c.ReadU4()
	return int32(v), err
}

// ReadI8 读取有符号长整型
func (c *ByteCursor) ReadI8() (int64, error) {
	v, err := c.ReadU8()
	return int64(v), err
}

// ReadF4 读取 IEEE-754 单精度浮点数
func (c *ByteCursor) ReadF4() (float32, error) {
	v, err := c.ReadU4()
	return math.Float32frombits(v), err
}

// ReadF8 读取 IEEE-754 双精度浮点数
func (c *ByteCursor) ReadF8() (float64, error) {
	v, err := c.ReadU8()
	return math.Float64frombits(v), err
}

// ReadBytes 读取 n 个字节，返回底层数组的拷贝
func (c *ByteCursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.NewParseError(errors.P0104, "negative length %d at offset %d", n, c.pos)
	}
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, c.data[c.pos:c.pos+n])
	c.pos += n
	return b, nil
}

// Skip 跳过 n 个字节
func (c *ByteCursor) Skip(n int) error {
	if n < 0 {
		return errors.NewParseError(errors.P0104, "negative length %d at offset %d", n, c.pos)
	}
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}
