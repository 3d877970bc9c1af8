package bytecode

import (
	"errors"
	"strings"
	"testing"
)

func TestParseMethodDesc(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{"()V", nil, "V"},
		{"(I)I", []string{"I"}, "I"},
		{"(IZ)Z", []string{"I", "Z"}, "Z"},
		{"([ILjava/lang/String;)[[Z", []string{"[I", "Ljava/lang/String;"}, "[[Z"},
		{"(Ljava/net/Socket;)Ljava/net/Socket;", []string{"Ljava/net/Socket;"}, "Ljava/net/Socket;"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			params, ret, err := ParseMethodDesc(tt.desc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(params, ",") != strings.Join(tt.params, ",") || ret != tt.ret {
				t.Errorf("got %v %s, expected %v %s", params, ret, tt.params, tt.ret)
			}
			if MethodDesc(params, ret) != tt.desc {
				t.Errorf("MethodDesc did not rebuild %s", tt.desc)
			}
		})
	}
}

func TestParseMethodDescErrors(t *testing.T) {
	for _, desc := range []string{"", "I", "(I", "(X)V", "(Ljava)V", "()", "()II", "()[V"} {
		if _, _, err := ParseMethodDesc(desc); err == nil {
			t.Errorf("expected an error for %q", desc)
		}
	}
}

func TestDescriptorHelpers(t *testing.T) {
	if HostDesc("java.lang.String") != DescString {
		t.Errorf("HostDesc = %s", HostDesc("java.lang.String"))
	}
	if ArrayDesc(ArrayDesc(DescInt)) != "[[I" {
		t.Error("nested array descriptor")
	}
	if !IsReference("[I") || !IsReference(DescString) || IsReference(DescBoolean) {
		t.Error("IsReference")
	}
	if elem, ok := ElemDesc("[[Z"); !ok || elem != "[Z" {
		t.Errorf("ElemDesc = %s %v", elem, ok)
	}
	if !ValidFieldDesc("[Lx/Y;") || ValidFieldDesc("IZ") || ValidFieldDesc("V") {
		t.Error("ValidFieldDesc")
	}
}

func TestOpcodeHelpers(t *testing.T) {
	if IF_ICMPLT.Negate() != IF_ICMPGE || IFEQ.Negate() != IFNE || IF_ACMPNE.Negate() != IF_ACMPEQ {
		t.Error("Negate")
	}
	if !GOTO.EndsBlock() || !IRETURN.EndsBlock() || IFEQ.EndsBlock() {
		t.Error("EndsBlock")
	}
	if ICONST.String() != "ICONST" || Opcode(0).String() != "Opcode(0)" {
		t.Error("String")
	}
	if Opcode(0).Valid() || !RETURN.Valid() {
		t.Error("Valid")
	}
}

func TestAssemblerResolvesLabels(t *testing.T) {
	a := NewAssembler()
	top := a.NewLabel()
	end := a.NewLabel()
	a.Place(top)
	a.Emit(Instruction{Op: ILOAD, Int: 0})
	a.Jump(IFEQ, end)
	a.Jump(GOTO, top)
	if a.Reachable() {
		t.Error("code after GOTO should be unreachable")
	}
	a.Place(end)
	if !a.Reachable() {
		t.Error("placing a targeted label should restore reachability")
	}
	a.Op(RETURN)

	code, err := a.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if code[1].Target != 3 || code[2].Target != 0 {
		t.Errorf("targets %d %d, expected 3 0", code[1].Target, code[2].Target)
	}
}

func TestAssemblerUnreferencedLabelKeepsDeadCode(t *testing.T) {
	a := NewAssembler()
	l := a.NewLabel()
	a.Op(RETURN)
	a.Place(l)
	if a.Reachable() {
		t.Error("an unreferenced label should not make code reachable")
	}
}

func TestAssemblerUnplacedLabel(t *testing.T) {
	a := NewAssembler()
	a.Jump(GOTO, a.NewLabel())
	if _, err := a.Finish(); err == nil {
		t.Fatal("expected an error for an unplaced label")
	}
}

func method(desc string, locals int, code ...Instruction) *Method {
	return &Method{Name: "m", Desc: desc, MaxLocals: locals, Code: code}
}

func TestVerifyAccepts(t *testing.T) {
	tests := []struct {
		name  string
		m     *Method
		stack int
	}{
		{
			name: "constant",
			m:    method("()I", 0, Instruction{Op: ICONST, Int: 42}, Instruction{Op: IRETURN}),
			stack: 1,
		},
		{
			name: "arithmetic",
			m: method("(II)I", 2,
				Instruction{Op: ILOAD, Int: 0},
				Instruction{Op: ILOAD, Int: 1},
				Instruction{Op: ICONST, Int: 2},
				Instruction{Op: IMUL},
				Instruction{Op: IADD},
				Instruction{Op: IRETURN},
			),
			stack: 3,
		},
		{
			name: "array literal",
			m: method("()[I", 0,
				Instruction{Op: ICONST, Int: 1},
				Instruction{Op: NEWARRAY, Desc: "I"},
				Instruction{Op: DUP},
				Instruction{Op: ICONST, Int: 0},
				Instruction{Op: ICONST, Int: 7},
				Instruction{Op: IASTORE},
				Instruction{Op: ARETURN},
			),
			stack: 4,
		},
		{
			name: "conditional skip",
			m: method("(I)V", 1,
				Instruction{Op: ILOAD, Int: 0},
				Instruction{Op: IFEQ, Target: 6},
				Instruction{Op: ILOAD, Int: 0},
				Instruction{Op: ICONST, Int: 1},
				Instruction{Op: ISUB},
				Instruction{Op: ISTORE, Int: 0},
				Instruction{Op: RETURN},
			),
			stack: 2,
		},
		{
			name: "call",
			m: method("()V", 0,
				Instruction{Op: LDC, Str: "x"},
				Instruction{Op: ICONST, Int: 1},
				Instruction{Op: INVOKESTATIC, Owner: "M", Name: "g", Desc: "(Ljava/lang/String;I)Z"},
				Instruction{Op: POP},
				Instruction{Op: RETURN},
			),
			stack: 2,
		},
		{
			name: "static field",
			m: method("()V", 0,
				Instruction{Op: GETSTATIC, Owner: "M", Name: "x", Desc: "I"},
				Instruction{Op: INEG},
				Instruction{Op: PUTSTATIC, Owner: "M", Name: "x", Desc: "I"},
				Instruction{Op: RETURN},
			),
			stack: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Verify(tt.m)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.stack {
				t.Errorf("max stack %d, expected %d", got, tt.stack)
			}
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	tests := []struct {
		name   string
		m      *Method
		substr string
	}{
		{"no code", method("()V", 0), "no code"},
		{"bad descriptor", method("I", 0, Instruction{Op: RETURN}), "must start with '('"},
		{"too few locals", method("(II)V", 1, Instruction{Op: RETURN}), "cannot hold 2 parameter(s)"},
		{"underflow", method("()I", 0, Instruction{Op: IADD}, Instruction{Op: IRETURN}), "stack underflow"},
		{"falls off end", method("()V", 0, Instruction{Op: ICONST, Int: 1}), "falls off the end"},
		{"wrong kind", method("()I", 0, Instruction{Op: LDC, Str: "s"}, Instruction{Op: IRETURN}), "expected int on the stack, got reference"},
		{"wrong return", method("()I", 0, Instruction{Op: RETURN}), "RETURN in method returning I"},
		{"slot out of range", method("()V", 1, Instruction{Op: ILOAD, Int: 1}, Instruction{Op: POP}, Instruction{Op: RETURN}), "local slot 1 out of range"},
		{"target out of range", method("()V", 0, Instruction{Op: GOTO, Target: 9}), "branch target 9 out of range"},
		{
			"inconsistent merge",
			method("(I)I", 1,
				Instruction{Op: ILOAD, Int: 0},
				Instruction{Op: IFEQ, Target: 3},
				Instruction{Op: ICONST, Int: 1},
				Instruction{Op: ICONST, Int: 2},
				Instruction{Op: IRETURN},
			),
			"inconsistent stack",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.m)
			if err == nil {
				t.Fatal("expected an error")
			}
			var ve *VerifyError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *VerifyError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not contain %q", err, tt.substr)
			}
		})
	}
}

func TestListing(t *testing.T) {
	u := &Unit{
		Name:   "Test",
		Fields: []*Field{{Public: true, Name: "count", Desc: "I"}},
		Methods: []*Method{
			method("()I", 0,
				Instruction{Op: ICONST, Int: 1},
				Instruction{Op: IFNE, Target: 3},
				Instruction{Op: GOTO, Target: 3},
				Instruction{Op: LDC, Str: "a\"b"},
				Instruction{Op: POP},
				Instruction{Op: GETSTATIC, Owner: "Test", Name: "count", Desc: "I"},
				Instruction{Op: IRETURN},
			),
		},
	}
	out := Listing(u)
	for _, want := range []string{
		"unit Test\n",
		"  field public count I\n",
		"  method m ()I locals=0 stack=0\n",
		"      1: IFNE 3\n",
		"  >   3: LDC \"a\\\"b\"\n",
		"GETSTATIC Test.count I",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
