package native

// java/io/PrintStream 的 print / println 重载
var printDescriptors = []string{"Z", "C", "I", "J", "F", "D", descString, descObject, "[C"}

func registerPrintStream(r *Registry) {
	const cls = "java/io/PrintStream"

	stream := func(name, desc string, fn func(p *PrintStream, args []any) error) {
		method := "PrintStream." + name
		r.Register(cls, name, desc, func(args []any) (any, error) {
			p, err := arg[*PrintStream](method, args, 0)
			if err != nil {
				return nil, err
			}
			return nil, fn(p, args)
		})
	}

	stream("println", "()V", func(p *PrintStream, _ []any) error {
		return p.print("\n")
	})
	stream("flush", "()V", func(p *PrintStream, _ []any) error {
		return nil
	})
	for _, d := range printDescriptors {
		stream("print", "("+d+")V", func(p *PrintStream, args []any) error {
			return p.print(printable(args[1]))
		})
		stream("println", "("+d+")V", func(p *PrintStream, args []any) error {
			return p.print(printable(args[1]) + "\n")
		})
	}
}

// CharArray 由虚拟机数组实现；char[] 返回 ok=true，println(char[]) 打印其内容
type CharArray interface {
	Chars() ([]uint16, bool)
}

func printable(v any) string {
	if ca, ok := v.(CharArray); ok {
		if chars, ok := ca.Chars(); ok {
			return (&StringBuilder{buf: chars}).String()
		}
	}
	return ToString(v)
}
