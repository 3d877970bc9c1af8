// Package bytecode models the output of code generation: one Unit per module,
// holding fields and static methods whose bodies are instructions for a
// JVM-like operand-stack machine.
package bytecode

import "fmt"

// Opcode identifies an instruction
type Opcode byte

const (
	// Constants
	ICONST Opcode = iota + 1 // push Int
	LDC                      // push string constant Str
	ACONST_NULL

	// Locals
	ILOAD // slot in Int
	ISTORE
	ALOAD
	ASTORE

	// Fields
	GETSTATIC // Owner.Name:Desc
	PUTSTATIC

	// Arithmetic
	IADD
	ISUB
	IMUL
	IDIV
	IREM
	INEG

	// Arrays
	NEWARRAY // element descriptor in Desc
	IALOAD
	IASTORE
	BALOAD
	BASTORE
	AALOAD
	AASTORE

	// Stack
	DUP
	POP

	// Branches, target in Target
	IFEQ
	IFNE
	IF_ICMPEQ
	IF_ICMPNE
	IF_ICMPLT
	IF_ICMPGE
	IF_ICMPGT
	IF_ICMPLE
	IF_ACMPEQ
	IF_ACMPNE
	GOTO

	// Calls and returns
	INVOKESTATIC // Owner.Name:Desc
	IRETURN
	ARETURN
	RETURN
)

var opNames = [...]string{
	ICONST:       "ICONST",
	LDC:          "LDC",
	ACONST_NULL:  "ACONST_NULL",
	ILOAD:        "ILOAD",
	ISTORE:       "ISTORE",
	ALOAD:        "ALOAD",
	ASTORE:       "ASTORE",
	GETSTATIC:    "GETSTATIC",
	PUTSTATIC:    "PUTSTATIC",
	IADD:         "IADD",
	ISUB:         "ISUB",
	IMUL:         "IMUL",
	IDIV:         "IDIV",
	IREM:         "IREM",
	INEG:         "INEG",
	NEWARRAY:     "NEWARRAY",
	IALOAD:       "IALOAD",
	IASTORE:      "IASTORE",
	BALOAD:       "BALOAD",
	BASTORE:      "BASTORE",
	AALOAD:       "AALOAD",
	AASTORE:      "AASTORE",
	DUP:          "DUP",
	POP:          "POP",
	IFEQ:         "IFEQ",
	IFNE:         "IFNE",
	IF_ICMPEQ:    "IF_ICMPEQ",
	IF_ICMPNE:    "IF_ICMPNE",
	IF_ICMPLT:    "IF_ICMPLT",
	IF_ICMPGE:    "IF_ICMPGE",
	IF_ICMPGT:    "IF_ICMPGT",
	IF_ICMPLE:    "IF_ICMPLE",
	IF_ACMPEQ:    "IF_ACMPEQ",
	IF_ACMPNE:    "IF_ACMPNE",
	GOTO:         "GOTO",
	INVOKESTATIC: "INVOKESTATIC",
	IRETURN:      "IRETURN",
	ARETURN:      "ARETURN",
	RETURN:       "RETURN",
}

// String returns the mnemonic of the opcode
func (op Opcode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Valid reports whether op is a known opcode
func (op Opcode) Valid() bool {
	return op >= ICONST && op <= RETURN
}

// IsBranch reports whether the instruction carries a jump target
func (op Opcode) IsBranch() bool {
	return op >= IFEQ && op <= GOTO
}

// IsConditional reports whether the branch may fall through
func (op Opcode) IsConditional() bool {
	return op >= IFEQ && op <= IF_ACMPNE
}

// IsReturn reports whether the instruction leaves the method
func (op Opcode) IsReturn() bool {
	return op == IRETURN || op == ARETURN || op == RETURN
}

// EndsBlock reports whether control never falls through to the next instruction
func (op Opcode) EndsBlock() bool {
	return op == GOTO || op.IsReturn()
}

// Negate returns the conditional branch with the opposite condition
func (op Opcode) Negate() Opcode {
	switch op {
	case IFEQ:
		return IFNE
	case IFNE:
		return IFEQ
	case IF_ICMPEQ:
		return IF_ICMPNE
	case IF_ICMPNE:
		return IF_ICMPEQ
	case IF_ICMPLT:
		return IF_ICMPGE
	case IF_ICMPGE:
		return IF_ICMPLT
	case IF_ICMPGT:
		return IF_ICMPLE
	case IF_ICMPLE:
		return IF_ICMPGT
	case IF_ACMPEQ:
		return IF_ACMPNE
	case IF_ACMPNE:
		return IF_ACMPEQ
	default:
		return op
	}
}

// Instruction is one operation with its operands. Which operand fields are
// meaningful depends on Op.
type Instruction struct {
	Op     Opcode
	Int    int32  // ICONST value, or local slot for loads and stores
	Str    string // LDC constant
	Owner  string // unit name for field access and calls
	Name   string // field or method name
	Desc   string // field, method or array element descriptor
	Target int    // instruction index for branches
}

func (in Instruction) String() string {
	switch {
	case in.Op == ICONST:
		return fmt.Sprintf("%s %d", in.Op, in.Int)
	case in.Op == LDC:
		return fmt.Sprintf("%s %q", in.Op, in.Str)
	case in.Op == ILOAD, in.Op == ISTORE, in.Op == ALOAD, in.Op == ASTORE:
		return fmt.Sprintf("%s %d", in.Op, in.Int)
	case in.Op == GETSTATIC, in.Op == PUTSTATIC, in.Op == INVOKESTATIC:
		return fmt.Sprintf("%s %s.%s %s", in.Op, in.Owner, in.Name, in.Desc)
	case in.Op == NEWARRAY:
		return fmt.Sprintf("%s %s", in.Op, in.Desc)
	case in.Op.IsBranch():
		return fmt.Sprintf("%s %d", in.Op, in.Target)
	default:
		return in.Op.String()
	}
}
