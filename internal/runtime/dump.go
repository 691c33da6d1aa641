package runtime

import (
	"fmt"
	"io"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/sjvm/internal/classfile"
)

// ClassDump 类的 JSON 视图
type ClassDump struct {
	Name             string       `json:"name"`
	Super            string       `json:"super,omitempty"`
	Interfaces       []string     `json:"interfaces,omitempty"`
	AccessFlags      string       `json:"access_flags"`
	Version          string       `json:"version"`
	SourceFile       string       `json:"source_file,omitempty"`
	ConstantPoolSize int          `json:"constant_pool_count"`
	Fields           []MemberDump `json:"fields"`
	Methods          []MemberDump `json:"methods"`
	BootstrapMethods int          `json:"bootstrap_methods,omitempty"`
	InnerClasses     []string     `json:"inner_classes,omitempty"`
}

// MemberDump 字段或方法
type MemberDump struct {
	Name        string    `json:"name"`
	Descriptor  string    `json:"descriptor"`
	AccessFlags string    `json:"access_flags"`
	Code        *CodeDump `json:"code,omitempty"`
}

// CodeDump 方法的 Code 属性摘要
type CodeDump struct {
	MaxStack    uint16 `json:"max_stack"`
	MaxLocals   uint16 `json:"max_locals"`
	Length      int    `json:"length"`
	Lines       int    `json:"line_numbers,omitempty"`
	HasLocalVar bool   `json:"local_variable_table,omitempty"`
}

// NewClassDump 由解析结果生成 JSON 视图
func NewClassDump(k *classfile.Klass) *ClassDump {
	d := &ClassDump{
		Name:             k.Name,
		Super:            k.SuperName,
		Interfaces:       k.InterfaceNames,
		AccessFlags:      fmt.Sprintf("0x%04x", uint16(k.AccessFlags)),
		Version:          fmt.Sprintf("%d.%d", k.MajorVersion, k.MinorVersion),
		SourceFile:       k.SourceFile,
		ConstantPoolSize: k.ConstantPool.Len(),
		Fields:           make([]MemberDump, 0, len(k.Fields)),
		Methods:          make([]MemberDump, 0, len(k.Methods)),
		BootstrapMethods: len(k.BootstrapMethods),
	}
	for _, ic := range k.InnerClasses {
		if name, err := k.ConstantPool.ClassName(ic.InnerClassIndex); err == nil {
			d.InnerClasses = append(d.InnerClasses, name)
		}
	}
	for _, f := range k.Fields {
		d.Fields = append(d.Fields, MemberDump{
			Name:        f.Name,
			Descriptor:  f.Descriptor,
			AccessFlags: fmt.Sprintf("0x%04x", uint16(f.AccessFlags)),
		})
	}
	for _, m := range k.Methods {
		md := MemberDump{
			Name:        m.Name,
			Descriptor:  m.Descriptor,
			AccessFlags: fmt.Sprintf("0x%04x", uint16(m.AccessFlags)),
		}
		if code := m.Code(); code != nil {
			md.Code = &CodeDump{
				MaxStack:    code.MaxStack,
				MaxLocals:   code.MaxLocals,
				Length:      len(code.Code),
				HasLocalVar: code.LocalVariableTable() != nil,
			}
			if t := code.LineNumberTable(); t != nil {
				md.Code.Lines = len(t.Entries)
			}
		}
		d.Methods = append(d.Methods, md)
	}
	return d
}

// Dump 以缩进 JSON 输出类的结构
func (r *Runtime) Dump(class string, w io.Writer) error {
	k, err := r.Load(class)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewClassDump(k))
}
