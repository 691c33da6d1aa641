package jvmgen

import (
	"bytes"
	"encoding/binary"
)

// ByteWriter 大端字节写入器
type ByteWriter struct {
	buf bytes.Buffer
}

// NewByteWriter 创建新的字节码写入器
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// WriteU8 写入无符号字节
func (w *ByteWriter) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteU16 写入无符号短整型
func (w *ByteWriter) WriteU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteU32 写入无符号整型
func (w *ByteWriter) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteBytes 写入字节数组
func (w *ByteWriter) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// Bytes 返回已写入的字节
func (w *ByteWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len 返回当前长度
func (w *ByteWriter) Len() int {
	return w.buf.Len()
}

// PatchU16 覆盖 offset 处已写入的两个字节，用于回填跳转偏移
func (w *ByteWriter) PatchU16(offset int, v uint16) {
	binary.BigEndian.PutUint16(w.buf.Bytes()[offset:], v)
}
