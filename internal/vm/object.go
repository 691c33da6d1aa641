package vm

import (
	"github.com/tangzhangming/sjvm/internal/classfile"
)

// Object 虚拟机内类的实例。字段按 "声明类.字段名" 存放。
// 继承宿主类（如 RuntimeException）时，Host 是宿主构造器创建的那一部分。
type Object struct {
	Class  *classfile.Klass
	Host   any
	fields map[string][]Value
}

// NewObject 创建实例，字段在首次读取时取默认值
func NewObject(k *classfile.Klass) *Object {
	return &Object{Class: k, fields: make(map[string][]Value)}
}

// JavaClassName 类名
func (o *Object) JavaClassName() string { return o.Class.Name }

// Field 读取字段
func (o *Object) Field(owner, name, descriptor string) []Value {
	if v, ok := o.fields[owner+"."+name]; ok {
		return v
	}
	return zeroSlots(descriptor)
}

// SetField 写入字段
func (o *Object) SetField(owner, name string, v []Value) {
	o.fields[owner+"."+name] = v
}

// ClassMirror ldc 一个类常量得到的对象
type ClassMirror struct {
	Name string
}

// JavaClassName java/lang/Class
func (c *ClassMirror) JavaClassName() string { return "java/lang/Class" }
