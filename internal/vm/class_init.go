package vm

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/sjvm/internal/classfile"
)

// ensureInitialized 首次主动使用类时初始化：先父类，再静态字段默认值，最后 <clinit>。
// 先标记再执行，<clinit> 内对本类的再次引用不会递归初始化。
func (in *Interpreter) ensureInitialized(k *classfile.Klass) {
	if in.vm.initialized[k.ID] {
		return
	}
	in.vm.initialized[k.ID] = true

	if super := in.vm.superOf(k); super != nil {
		in.ensureInitialized(super)
	}
	for _, fi := range k.Fields {
		if !fi.AccessFlags.IsStatic() {
			continue
		}
		key := staticKey(k.Name, fi.Name)
		if _, ok := in.vm.statics[key]; !ok {
			in.vm.statics[key] = zeroSlots(fi.Descriptor)
		}
	}

	m, ok := k.FindMethod(classfile.ClinitName, "()V")
	if !ok {
		return
	}
	in.vm.stats.ClassInits.Inc()
	in.vm.log.Debug("class init", zap.String("class", k.Name))
	in.invokeMethod(k, m, nil)
	// 由入口触发时，<clinit> 的帧弹出后仍在解析入口方法
	if in.thread.Depth() == 0 {
		in.thread.setState(StateInvoking)
	}
}
