package i18n

var messagesEN = map[string]string{
	// ========== Fault kinds ==========
	"fault.parse":       "ParseError",
	"fault.resolution":  "ResolutionError",
	"fault.type":        "TypeError",
	"fault.bounds":      "BoundsError",
	"fault.unsupported": "UnsupportedInstructionError",
	"fault.runtime":     "RuntimeError",
	"fault.caused_by":   "caused by:",
	"fault.stack_trace": "Stack trace:",
	"fault.more_frames": "... %d more",

	// ========== Error codes ==========
	"code.bad_magic":                  "the file does not start with 0xCAFEBABE",
	"code.unexpected_eof":             "the class file ended in the middle of a structure",
	"code.unsupported_constant":       "this constant pool tag is not supported",
	"code.bad_constant_ref":           "a constant pool index points at the wrong kind of entry",
	"code.trailing_bytes":             "extra bytes follow the last class attribute",
	"code.unknown_class_attribute":    "only SourceFile, BootstrapMethods and InnerClasses class attributes are supported",
	"code.field_attributes":           "fields with attributes (ConstantValue, Signature, ...) are not supported",
	"code.method_attribute_count":     "a concrete method must carry exactly one Code attribute",
	"code.method_attribute_not_code":  "the only method attribute must be Code",
	"code.attribute_length":           "an attribute's declared length does not match its content",
	"code.bad_descriptor":             "the descriptor string is malformed",
	"code.uncaught_exception":         "exception dispatch is not supported, athrow aborts execution",
	"code.unknown_opcode":             "the interpreter has no handler for this opcode",
	"code.pc_out_of_bounds":           "a branch or operand read left the method's code",
	"code.fell_off_code":              "execution reached the end of the code without a return instruction",
	"code.array_index_out_of_bounds":  "arrays have a fixed length, valid indices are [0, length)",
	"code.negative_array_size":        "array length must not be negative",
	"code.local_out_of_bounds":        "local variable index exceeds max_locals",
	"code.division_by_zero":           "integer division or remainder by zero",
	"code.type_mismatch":              "values are never coerced, the operand tag must match the instruction",
	"code.stack_underflow":            "the operand stack was empty",
	"code.null_reference":             "a null reference was dereferenced",
	"code.cast_failed":                "checkcast failed",
	"code.undefined_field":            "the field was not found in the class or its superclasses",
	"code.undefined_class":            "the class was not found on the classpath or in the host bridge",
	"code.undefined_method":           "no method with this exact name and descriptor exists",
	"code.unsupported_bootstrap":      "only LambdaMetafactory and StringConcatFactory bootstraps are supported",
	"code.bad_entry_point":            "the entry point must be public static void main(String[])",
	"code.stack_overflow":             "the operand stack exceeded its limit",
	"code.call_stack_overflow":        "call depth exceeded max_call_depth, check recursion",

	// ========== CLI ==========
	"cli.usage":         "Usage: sjvm [options] <main-class> [args...]",
	"cli.options":       "Options:",
	"cli.opt_cp":        "classpath entries (directories, .jar or .zip), separated by %q",
	"cli.opt_config":    "configuration file (default: nearest sjvm.toml)",
	"cli.opt_log":       "log level: debug, info, warn, error",
	"cli.opt_trace":     "log every executed instruction",
	"cli.opt_dump":      "print the parsed class as JSON and exit",
	"cli.opt_disasm":    "print a disassembly of every method and exit",
	"cli.opt_lang":      "message language: en, zh",
	"cli.opt_prof":      "after running, print an execution profile to stderr (text, json)",
	"cli.opt_version":   "print version and exit",
	"cli.opt_no_color":  "disable colored error output",
	"cli.no_main_class": "no main class given (pass it as an argument or set vm.main in sjvm.toml)",
	"cli.config_error":  "configuration error: %v",
	"cli.logger_error":  "cannot create logger: %v",
	"cli.prof_error":    "cannot write profile: %v",
}
