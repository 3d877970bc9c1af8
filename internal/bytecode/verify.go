package bytecode

import (
	"errors"
	"fmt"
	"slices"
)

// VerifyError reports malformed code at an instruction offset. Offset is -1
// for errors that concern the method as a whole.
type VerifyError struct {
	Method  string
	Offset  int
	Message string
}

func (e *VerifyError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("verify %s: %s", e.Method, e.Message)
	}
	return fmt.Sprintf("verify %s at %d: %s", e.Method, e.Offset, e.Message)
}

// operand kinds tracked on the abstract stack
const (
	kindInt byte = 'I'
	kindRef byte = 'A'
)

func kindOf(desc string) byte {
	if IsReference(desc) {
		return kindRef
	}
	return kindInt
}

func kindName(k byte) string {
	if k == kindRef {
		return "reference"
	}
	return "int"
}

type verifier struct {
	m      *Method
	ret    string
	states [][]byte
	seen   []bool
	work   []int
	max    int
}

// Verify checks that every path through the method keeps a consistent
// operand stack, never underflows, stays inside its locals, and ends in a
// return of the declared kind. It returns the maximum stack depth.
func Verify(m *Method) (int, error) {
	params, ret, err := m.Signature()
	if err != nil {
		return 0, &VerifyError{Method: m.Name, Offset: -1, Message: err.Error()}
	}
	if m.MaxLocals < len(params) {
		return 0, &VerifyError{Method: m.Name, Offset: -1,
			Message: fmt.Sprintf("%d local slot(s) cannot hold %d parameter(s)", m.MaxLocals, len(params))}
	}
	if len(m.Code) == 0 {
		return 0, &VerifyError{Method: m.Name, Offset: -1, Message: "method has no code"}
	}

	v := &verifier{
		m:      m,
		ret:    ret,
		states: make([][]byte, len(m.Code)),
		seen:   make([]bool, len(m.Code)),
	}
	v.merge(0, nil)
	for len(v.work) > 0 {
		pc := v.work[len(v.work)-1]
		v.work = v.work[:len(v.work)-1]
		if err := v.step(pc); err != nil {
			var ve *VerifyError
			if errors.As(err, &ve) {
				return 0, err
			}
			return 0, &VerifyError{Method: m.Name, Offset: pc, Message: err.Error()}
		}
	}
	return v.max, nil
}

func (v *verifier) merge(pc int, stack []byte) error {
	if !v.seen[pc] {
		v.seen[pc] = true
		v.states[pc] = stack
		v.work = append(v.work, pc)
		return nil
	}
	if !slices.Equal(v.states[pc], stack) {
		return &VerifyError{Method: v.m.Name, Offset: pc,
			Message: fmt.Sprintf("inconsistent stack at merge point: %s vs %s", v.states[pc], stack)}
	}
	return nil
}

func (v *verifier) step(pc int) error {
	in := v.m.Code[pc]
	stack := slices.Clone(v.states[pc])

	pop := func(want byte) error {
		if len(stack) == 0 {
			return fmt.Errorf("%s: stack underflow", in.Op)
		}
		got := stack[len(stack)-1]
		if got != want {
			return fmt.Errorf("%s: expected %s on the stack, got %s", in.Op, kindName(want), kindName(got))
		}
		stack = stack[:len(stack)-1]
		return nil
	}
	popAll := func(kinds ...byte) error {
		for _, k := range kinds {
			if err := pop(k); err != nil {
				return err
			}
		}
		return nil
	}
	push := func(k byte) {
		stack = append(stack, k)
	}
	slot := func() error {
		if in.Int < 0 || int(in.Int) >= v.m.MaxLocals {
			return fmt.Errorf("%s: local slot %d out of range [0, %d)", in.Op, in.Int, v.m.MaxLocals)
		}
		return nil
	}

	var err error
	switch in.Op {
	case ICONST:
		push(kindInt)
	case LDC, ACONST_NULL:
		push(kindRef)
	case ILOAD, ALOAD:
		err = slot()
		if in.Op == ILOAD {
			push(kindInt)
		} else {
			push(kindRef)
		}
	case ISTORE:
		if err = slot(); err == nil {
			err = pop(kindInt)
		}
	case ASTORE:
		if err = slot(); err == nil {
			err = pop(kindRef)
		}
	case GETSTATIC, PUTSTATIC:
		if !ValidFieldDesc(in.Desc) {
			return fmt.Errorf("%s: invalid field descriptor %q", in.Op, in.Desc)
		}
		if in.Op == GETSTATIC {
			push(kindOf(in.Desc))
		} else {
			err = pop(kindOf(in.Desc))
		}
	case IADD, ISUB, IMUL, IDIV, IREM:
		err = popAll(kindInt, kindInt)
		push(kindInt)
	case INEG:
		err = pop(kindInt)
		push(kindInt)
	case NEWARRAY:
		if !ValidFieldDesc(in.Desc) {
			return fmt.Errorf("%s: invalid element descriptor %q", in.Op, in.Desc)
		}
		err = pop(kindInt)
		push(kindRef)
	case IALOAD, BALOAD:
		err = popAll(kindInt, kindRef)
		push(kindInt)
	case AALOAD:
		err = popAll(kindInt, kindRef)
		push(kindRef)
	case IASTORE, BASTORE:
		err = popAll(kindInt, kindInt, kindRef)
	case AASTORE:
		err = popAll(kindRef, kindInt, kindRef)
	case DUP:
		if len(stack) == 0 {
			return fmt.Errorf("%s: stack underflow", in.Op)
		}
		push(stack[len(stack)-1])
	case POP:
		if len(stack) == 0 {
			return fmt.Errorf("%s: stack underflow", in.Op)
		}
		stack = stack[:len(stack)-1]
	case IFEQ, IFNE:
		err = pop(kindInt)
	case IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE:
		err = popAll(kindInt, kindInt)
	case IF_ACMPEQ, IF_ACMPNE:
		err = popAll(kindRef, kindRef)
	case GOTO:
	case INVOKESTATIC:
		params, ret, perr := ParseMethodDesc(in.Desc)
		if perr != nil {
			return fmt.Errorf("%s: %w", in.Op, perr)
		}
		for i := len(params) - 1; i >= 0 && err == nil; i-- {
			err = pop(kindOf(params[i]))
		}
		if ret != DescVoid {
			push(kindOf(ret))
		}
	case IRETURN:
		if v.ret != DescInt && v.ret != DescBoolean {
			return fmt.Errorf("%s in method returning %s", in.Op, v.ret)
		}
		err = pop(kindInt)
	case ARETURN:
		if !IsReference(v.ret) {
			return fmt.Errorf("%s in method returning %s", in.Op, v.ret)
		}
		err = pop(kindRef)
	case RETURN:
		if v.ret != DescVoid {
			return fmt.Errorf("%s in method returning %s", in.Op, v.ret)
		}
	default:
		return fmt.Errorf("unknown opcode %s", in.Op)
	}
	if err != nil {
		return err
	}
	v.max = max(v.max, len(stack))

	if in.Op.IsBranch() {
		if in.Target < 0 || in.Target >= len(v.m.Code) {
			return fmt.Errorf("%s: branch target %d out of range", in.Op, in.Target)
		}
		if err := v.merge(in.Target, stack); err != nil {
			return err
		}
	}
	if !in.Op.EndsBlock() {
		if pc+1 >= len(v.m.Code) {
			return fmt.Errorf("execution falls off the end of the code")
		}
		return v.merge(pc+1, stack)
	}
	return nil
}
