// Package bytecode defines the instruction set that the compiler emits and
// the VM executes. Every Op that consumes operands pulls them from the
// owning function's constants array at a fixed count known to both sides
// (see ConstantCount).
package bytecode

// Op is a single VM instruction.
type Op byte

const (
	// Locals and constants
	OpLoadConstant Op = iota
	OpLoadLocal
	OpAssignLocal
	OpDeclareLocal
	OpDeclareMultipleLocals
	OpPopLocals
	OpPop

	// Namespaces, functions, structs, captures
	OpLoadFunctionOrStruct
	OpLoadMember
	OpLoadType
	OpConstructBuiltin
	OpMakeLambda
	OpCaptureLocal
	OpLoadCapture

	// Indexing
	OpLoadIndex
	OpAssignIndex

	// Calls
	OpCall
	OpCallNative

	// Iteration
	OpInitIterator
	OpIncrementIterator
	OpPopIterator
	OpUnpack

	// Exceptions
	OpEnterTry
	OpExitTry
	OpThrow

	// Control flow
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpReturn
	OpExit

	// Diagnostics
	OpPrint
	OpAssert
	OpTypeOf

	// Logical / bitwise / comparison / shift
	OpLogicOr
	OpLogicAnd
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseAnd
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessEqual
	OpGreaterThan
	OpGreaterEqual
	OpLeftShift
	OpRightShift

	// Arithmetic and unary
	OpAddition
	OpSubtraction
	OpMultiply
	OpDivide
	OpModulus
	OpLogicNot
	OpBitwiseNot
	OpNegate
	OpPlus
)

var opNames = map[Op]string{
	OpLoadConstant:          "LoadConstant",
	OpLoadLocal:             "LoadLocal",
	OpAssignLocal:           "AssignLocal",
	OpDeclareLocal:          "DeclareLocal",
	OpDeclareMultipleLocals: "DeclareMultipleLocals",
	OpPopLocals:             "PopLocals",
	OpPop:                   "Pop",
	OpLoadFunctionOrStruct:  "LoadFunctionOrStruct",
	OpLoadMember:            "LoadMember",
	OpLoadType:              "LoadType",
	OpConstructBuiltin:      "ConstructBuiltin",
	OpMakeLambda:            "MakeLambda",
	OpCaptureLocal:          "CaptureLocal",
	OpLoadCapture:           "LoadCapture",
	OpLoadIndex:             "LoadIndex",
	OpAssignIndex:           "AssignIndex",
	OpCall:                  "Call",
	OpCallNative:            "CallNative",
	OpInitIterator:          "InitIterator",
	OpIncrementIterator:     "IncrementIterator",
	OpPopIterator:           "PopIterator",
	OpUnpack:                "Unpack",
	OpEnterTry:              "EnterTry",
	OpExitTry:               "ExitTry",
	OpThrow:                 "Throw",
	OpJump:                  "Jump",
	OpJumpIfFalse:           "JumpIfFalse",
	OpJumpIfTrue:            "JumpIfTrue",
	OpReturn:                "Return",
	OpExit:                  "Exit",
	OpPrint:                 "Print",
	OpAssert:                "Assert",
	OpTypeOf:                "TypeOf",
	OpLogicOr:               "LogicOr",
	OpLogicAnd:              "LogicAnd",
	OpBitwiseOr:             "BitwiseOr",
	OpBitwiseXor:            "BitwiseXor",
	OpBitwiseAnd:            "BitwiseAnd",
	OpEqual:                 "Equal",
	OpNotEqual:              "NotEqual",
	OpLessThan:              "LessThan",
	OpLessEqual:             "LessEqual",
	OpGreaterThan:           "GreaterThan",
	OpGreaterEqual:          "GreaterEqual",
	OpLeftShift:             "LeftShift",
	OpRightShift:            "RightShift",
	OpAddition:              "Addition",
	OpSubtraction:           "Subtraction",
	OpMultiply:              "Multiply",
	OpDivide:                "Divide",
	OpModulus:               "Modulus",
	OpLogicNot:              "LogicNot",
	OpBitwiseNot:            "BitwiseNot",
	OpNegate:                "Negate",
	OpPlus:                  "Plus",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "Unknown"
}

// ConstantCount is the number of entries every invocation of op pulls from
// the owning function's constants array. ConstructBuiltin is variable (3 or
// 4, depending on whether the builtin is Range) and is not covered here;
// callers special-case it.
func ConstantCount(op Op) int {
	switch op {
	case OpLoadConstant, OpLoadLocal, OpAssignLocal, OpPopLocals,
		OpDeclareMultipleLocals, OpLoadType, OpMakeLambda, OpCaptureLocal,
		OpLoadCapture, OpCallNative, OpLoadMember:
		return 1
	case OpLoadFunctionOrStruct, OpInitIterator, OpIncrementIterator,
		OpEnterTry, OpJump, OpJumpIfFalse, OpJumpIfTrue, OpPrint:
		return 2
	case OpCall:
		return 3
	default:
		return 0
	}
}

// OpLine pairs one instruction with the source line it was compiled from, so
// the VM can report a line number for an unhandled exception or panic.
type OpLine struct {
	Op   Op
	Line int
}
