// Package vm is a reference loader for bytecode units. It verifies and links
// units, then interprets their static methods on demand.
package vm

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/lhaig/modc/internal/bytecode"
)

// DefaultMaxDepth bounds the number of nested calls
const DefaultMaxDepth = 2048

// Value is a runtime value: int32, bool (only at the Invoke boundary),
// string, *Array, or nil.
type Value = any

// Array is a fixed-size array. Elements of int and boolean arrays are int32.
type Array struct {
	Elem string // element descriptor
	Data []Value
}

// NewArray allocates an array of n zero elements
func NewArray(elem string, n int) *Array {
	a := &Array{Elem: elem, Data: make([]Value, n)}
	zero := zeroValue(elem)
	for i := range a.Data {
		a.Data[i] = zero
	}
	return a
}

// Len returns the number of elements
func (a *Array) Len() int {
	return len(a.Data)
}

func zeroValue(desc string) Value {
	if bytecode.IsReference(desc) {
		return nil
	}
	return int32(0)
}

type method struct {
	m      *bytecode.Method
	params []string
	ret    string
}

type unit struct {
	name    string
	fields  map[string]Value
	descs   map[string]string
	methods map[string]*method
}

// Loader holds loaded units and their static field values. A Loader is not
// safe for concurrent use.
type Loader struct {
	MaxDepth int
	units    map[string]*unit
}

func NewLoader() *Loader {
	return &Loader{
		MaxDepth: DefaultMaxDepth,
		units:    make(map[string]*unit),
	}
}

// Load verifies and installs units. Either every unit is loaded or none is.
func (l *Loader) Load(units ...*bytecode.Unit) error {
	staged := make(map[string]*unit, len(units))
	for _, u := range units {
		if _, dup := l.units[u.Name]; dup {
			return fmt.Errorf("load %s: unit is already loaded", u.Name)
		}
		if _, dup := staged[u.Name]; dup {
			return fmt.Errorf("load %s: unit appears twice", u.Name)
		}
		lu, err := link(u)
		if err != nil {
			return err
		}
		staged[u.Name] = lu
	}
	for name, lu := range staged {
		l.units[name] = lu
	}
	return nil
}

func link(u *bytecode.Unit) (*unit, error) {
	lu := &unit{
		name:    u.Name,
		fields:  make(map[string]Value, len(u.Fields)),
		descs:   make(map[string]string, len(u.Fields)),
		methods: make(map[string]*method, len(u.Methods)),
	}
	for _, f := range u.Fields {
		if !bytecode.ValidFieldDesc(f.Desc) {
			return nil, fmt.Errorf("load %s.%s: %w: invalid field descriptor %q", u.Name, f.Name, ErrVerify, f.Desc)
		}
		lu.fields[f.Name] = zeroValue(f.Desc)
		lu.descs[f.Name] = f.Desc
	}
	for _, m := range u.Methods {
		maxStack, err := bytecode.Verify(m)
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: %w: %w", u.Name, m.Name, ErrVerify, err)
		}
		params, ret, _ := m.Signature()
		if _, dup := lu.methods[m.Name]; dup {
			return nil, fmt.Errorf("load %s.%s: %w: method declared twice", u.Name, m.Name, ErrVerify)
		}
		linked := *m
		linked.MaxStack = maxStack
		lu.methods[m.Name] = &method{m: &linked, params: params, ret: ret}
	}
	return lu, nil
}

// Invoke runs a static method with Go arguments and returns its result.
// A void method returns nil.
func (l *Loader) Invoke(unitName, fn string, args ...Value) (Value, error) {
	u, ok := l.units[unitName]
	if !ok {
		return nil, fmt.Errorf("invoke %s.%s: %w", unitName, fn, ErrNoSuchUnit)
	}
	m, ok := u.methods[fn]
	if !ok {
		return nil, fmt.Errorf("invoke %s.%s: %w", unitName, fn, ErrNoSuchMethod)
	}
	if len(args) != len(m.params) {
		return nil, fmt.Errorf("invoke %s.%s: %w: expects %d argument(s), got %d",
			unitName, fn, ErrBadArgument, len(m.params), len(args))
	}
	in := make([]Value, len(args))
	for i, arg := range args {
		v, err := toValue(m.params[i], arg)
		if err != nil {
			return nil, fmt.Errorf("invoke %s.%s: argument %d: %w", unitName, fn, i, err)
		}
		in[i] = v
	}
	ret, err := l.call(u, m, in, 0)
	if err != nil {
		return nil, err
	}
	return fromValue(m.ret, ret), nil
}

// Field returns the current value of a static field
func (l *Loader) Field(unitName, name string) (Value, error) {
	u, ok := l.units[unitName]
	if !ok {
		return nil, fmt.Errorf("field %s.%s: %w", unitName, name, ErrNoSuchUnit)
	}
	v, ok := u.fields[name]
	if !ok {
		return nil, fmt.Errorf("field %s.%s: %w", unitName, name, ErrNoSuchField)
	}
	return fromValue(u.descs[name], v), nil
}

// toValue converts a Go argument to the runtime representation of desc
func toValue(desc string, v Value) (Value, error) {
	switch desc {
	case bytecode.DescInt:
		switch x := v.(type) {
		case int32:
			return x, nil
		case int:
			if x < math.MinInt32 || x > math.MaxInt32 {
				return nil, fmt.Errorf("%w: %d does not fit in int", ErrBadArgument, x)
			}
			return int32(x), nil
		}
	case bytecode.DescBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return int32(1), nil
			}
			return int32(0), nil
		}
	case bytecode.DescString:
		switch v.(type) {
		case string, nil:
			return v, nil
		}
	default:
		if elem, ok := bytecode.ElemDesc(desc); ok {
			switch a := v.(type) {
			case nil:
				return nil, nil
			case *Array:
				if a == nil {
					return nil, nil
				}
				if a.Elem == elem {
					return a, nil
				}
			}
			break
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: cannot pass %T as %s", ErrBadArgument, v, desc)
}

func fromValue(desc string, v Value) Value {
	if desc == bytecode.DescBoolean {
		i, _ := v.(int32)
		return i != 0
	}
	return v
}

func (l *Loader) lookup(owner, name, desc string) (*unit, *method, error) {
	u, ok := l.units[owner]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", owner, ErrNoSuchUnit)
	}
	m, ok := u.methods[name]
	if !ok || m.m.Desc != desc {
		return nil, nil, fmt.Errorf("%s.%s %s: %w", owner, name, desc, ErrNoSuchMethod)
	}
	return u, m, nil
}

func (l *Loader) field(owner, name, desc string) (*unit, error) {
	u, ok := l.units[owner]
	if !ok {
		return nil, fmt.Errorf("%s: %w", owner, ErrNoSuchUnit)
	}
	if d, ok := u.descs[name]; !ok || d != desc {
		return nil, fmt.Errorf("%s.%s %s: %w", owner, name, desc, ErrNoSuchField)
	}
	return u, nil
}

// call interprets one method activation
func (l *Loader) call(u *unit, m *method, args []Value, depth int) (Value, error) {
	code := m.m.Code
	if depth >= l.MaxDepth {
		return nil, &RuntimeError{Unit: u.name, Method: m.m.Name, Offset: 0, Err: ErrStackOverflow}
	}
	locals := make([]Value, m.m.MaxLocals)
	copy(locals, args)
	stack := make([]Value, 0, m.m.MaxStack)

	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popInt := func() int32 {
		i, _ := pop().(int32)
		return i
	}

	pc := 0
	fail := func(err error) (Value, error) {
		return nil, &RuntimeError{Unit: u.name, Method: m.m.Name, Offset: pc, Err: err}
	}

	for {
		in := code[pc]
		next := pc + 1

		switch in.Op {
		case bytecode.ICONST:
			push(in.Int)
		case bytecode.LDC:
			push(in.Str)
		case bytecode.ACONST_NULL:
			push(nil)

		case bytecode.ILOAD, bytecode.ALOAD:
			push(locals[in.Int])
		case bytecode.ISTORE, bytecode.ASTORE:
			locals[in.Int] = pop()

		case bytecode.GETSTATIC:
			fu, err := l.field(in.Owner, in.Name, in.Desc)
			if err != nil {
				return fail(err)
			}
			push(fu.fields[in.Name])
		case bytecode.PUTSTATIC:
			fu, err := l.field(in.Owner, in.Name, in.Desc)
			if err != nil {
				return fail(err)
			}
			fu.fields[in.Name] = pop()

		case bytecode.IADD, bytecode.ISUB, bytecode.IMUL, bytecode.IDIV, bytecode.IREM:
			b := popInt()
			a := popInt()
			var r int32
			switch in.Op {
			case bytecode.IADD:
				r = a + b
			case bytecode.ISUB:
				r = a - b
			case bytecode.IMUL:
				r = a * b
			case bytecode.IDIV, bytecode.IREM:
				if b == 0 {
					return fail(ErrDivideByZero)
				}
				if in.Op == bytecode.IDIV {
					r = a / b
				} else {
					r = a % b
				}
			}
			push(r)
		case bytecode.INEG:
			push(-popInt())

		case bytecode.NEWARRAY:
			n := popInt()
			if n < 0 {
				return fail(fmt.Errorf("%w: negative length %d", ErrIndexOutOfRange, n))
			}
			push(NewArray(in.Desc, int(n)))
		case bytecode.IALOAD, bytecode.BALOAD, bytecode.AALOAD:
			idx := popInt()
			arr, err := checkIndex(pop(), idx)
			if err != nil {
				return fail(err)
			}
			push(arr.Data[idx])
		case bytecode.IASTORE, bytecode.BASTORE, bytecode.AASTORE:
			v := pop()
			idx := popInt()
			arr, err := checkIndex(pop(), idx)
			if err != nil {
				return fail(err)
			}
			arr.Data[idx] = v

		case bytecode.DUP:
			push(stack[len(stack)-1])
		case bytecode.POP:
			pop()

		case bytecode.IFEQ, bytecode.IFNE:
			v := popInt()
			if (v == 0) == (in.Op == bytecode.IFEQ) {
				next = in.Target
			}
		case bytecode.IF_ICMPEQ, bytecode.IF_ICMPNE, bytecode.IF_ICMPLT,
			bytecode.IF_ICMPGE, bytecode.IF_ICMPGT, bytecode.IF_ICMPLE:
			b := popInt()
			a := popInt()
			if compareInts(in.Op, a, b) {
				next = in.Target
			}
		case bytecode.IF_ACMPEQ, bytecode.IF_ACMPNE:
			b := pop()
			a := pop()
			if refEqual(a, b) == (in.Op == bytecode.IF_ACMPEQ) {
				next = in.Target
			}
		case bytecode.GOTO:
			next = in.Target

		case bytecode.INVOKESTATIC:
			cu, cm, err := l.lookup(in.Owner, in.Name, in.Desc)
			if err != nil {
				return fail(err)
			}
			n := len(cm.params)
			callArgs := slices.Clone(stack[len(stack)-n:])
			stack = stack[:len(stack)-n]
			ret, err := l.call(cu, cm, callArgs, depth+1)
			if err != nil {
				return nil, err
			}
			if cm.ret != bytecode.DescVoid {
				push(ret)
			}

		case bytecode.IRETURN, bytecode.ARETURN:
			return pop(), nil
		case bytecode.RETURN:
			return nil, nil

		default:
			return fail(fmt.Errorf("%w: unknown opcode %s", ErrVerify, in.Op))
		}
		pc = next
	}
}

func checkIndex(ref Value, idx int32) (*Array, error) {
	arr, _ := ref.(*Array)
	if arr == nil {
		return nil, ErrNullReference
	}
	if idx < 0 || int(idx) >= len(arr.Data) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, idx, len(arr.Data))
	}
	return arr, nil
}

// refEqual compares two references. Host values of uncomparable Go types
// are equal only when they share identity.
func refEqual(a, b Value) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}

func compareInts(op bytecode.Opcode, a, b int32) bool {
	switch op {
	case bytecode.IF_ICMPEQ:
		return a == b
	case bytecode.IF_ICMPNE:
		return a != b
	case bytecode.IF_ICMPLT:
		return a < b
	case bytecode.IF_ICMPGE:
		return a >= b
	case bytecode.IF_ICMPGT:
		return a > b
	default:
		return a <= b
	}
}
