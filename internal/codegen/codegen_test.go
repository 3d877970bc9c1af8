package codegen

import (
	"strings"
	"testing"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/bytecode"
	"github.com/lhaig/modc/internal/checker"
	"github.com/lhaig/modc/internal/parser"
)

func compile(t *testing.T, sources ...string) []*bytecode.Unit {
	t.Helper()
	prog := &ast.Program{}
	for i, src := range sources {
		mod, err := parser.New(src).Parse()
		if err != nil {
			t.Fatalf("source %d: %v", i, err)
		}
		prog.Modules = append(prog.Modules, mod)
	}
	a := checker.NewAnalyzer(prog)
	if diags := a.Run(); diags.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", diags.Format("test"))
	}
	units, err := Generate(prog, a.Info())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return units
}

func findMethod(t *testing.T, units []*bytecode.Unit, unit, name string) *bytecode.Method {
	t.Helper()
	for _, u := range units {
		if u.Name == unit {
			if m := u.Method(name); m != nil {
				return m
			}
		}
	}
	t.Fatalf("method %s.%s not generated", unit, name)
	return nil
}

func render(code []bytecode.Instruction) string {
	parts := make([]string, len(code))
	for i, in := range code {
		parts[i] = in.String()
	}
	return strings.Join(parts, "; ")
}

func TestGenerateInstructionSequences(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fn   string
		want string
	}{
		{
			name: "constant arithmetic",
			src:  `int f() { return 23 + 19; }`,
			want: "ICONST 23; ICONST 19; IADD; IRETURN",
		},
		{
			name: "parameters and locals",
			src:  `int f(int a, int b) { int c = a * b; return c; }`,
			want: "ILOAD 0; ILOAD 1; IMUL; ISTORE 2; ILOAD 2; IRETURN",
		},
		{
			name: "empty void function",
			src:  `void f() { }`,
			want: "RETURN",
		},
		{
			name: "comparison in value context",
			src:  `boolean f(int a) { return a < 10; }`,
			want: "ILOAD 0; ICONST 10; IF_ICMPLT 5; ICONST 0; GOTO 6; ICONST 1; IRETURN",
		},
		{
			name: "negation in value context",
			src:  `boolean f(boolean b) { return !b; }`,
			want: "ILOAD 0; IFEQ 4; ICONST 0; GOTO 5; ICONST 1; IRETURN",
		},
		{
			name: "if else with returns",
			src:  `int f(boolean b) { if (b) return 1; else return 2; }`,
			want: "ILOAD 0; IFEQ 4; ICONST 1; IRETURN; ICONST 2; IRETURN",
		},
		{
			name: "while loop",
			src:  `int f() { int i = 0; while (i < 10) { i = i + 1; } return i; }`,
			want: "ICONST 0; ISTORE 0; ILOAD 0; ICONST 10; IF_ICMPGE 10; ILOAD 0; ICONST 1; IADD; ISTORE 0; GOTO 2; ILOAD 0; IRETURN",
		},
		{
			name: "break leaves the loop",
			src:  `void f() { while (true) { break; } }`,
			want: "ICONST 1; IFEQ 3; GOTO 3; RETURN",
		},
		{
			name: "dead code is dropped",
			src:  `int f() { return 1; int x = 2; return x; }`,
			want: "ICONST 1; IRETURN",
		},
		{
			name: "array literal",
			src:  `int[] f() { return [4, 5]; }`,
			want: "ICONST 2; NEWARRAY I; DUP; ICONST 0; ICONST 4; IASTORE; DUP; ICONST 1; ICONST 5; IASTORE; ARETURN",
		},
		{
			name: "empty array literal",
			src:  `int[] f() { return []; }`,
			want: "ICONST 0; NEWARRAY I; ARETURN",
		},
		{
			name: "index store and load",
			src:  `int f(int[] a) { a[0] = a[1]; return a[0]; }`,
			want: "ALOAD 0; ICONST 0; ALOAD 0; ICONST 1; IALOAD; IASTORE; ALOAD 0; ICONST 0; IALOAD; IRETURN",
		},
		{
			name: "minimum int literal",
			src:  `int f() { return -2147483648; }`,
			want: "ICONST -2147483648; IRETURN",
		},
		{
			name: "negated expression",
			src:  `int f(int x) { return -x; }`,
			want: "ILOAD 0; INEG; IRETURN",
		},
		{
			name: "unused call result is popped",
			src:  `int g() { return 1; } void f() { g(); }`,
			want: "INVOKESTATIC M.g ()I; POP; RETURN",
		},
		{
			name: "locals without initializer get zero values",
			src:  `type string = "java.lang.String"; void f() { int x; string s; }`,
			want: "ICONST 0; ISTORE 0; ACONST_NULL; ASTORE 1; RETURN",
		},
		{
			name: "string constant",
			src:  `type string = "java.lang.String"; string f() { return "hi"; }`,
			want: `LDC "hi"; ARETURN`,
		},
		{
			name: "string equality compares references",
			src:  `type string = "java.lang.String"; void f(string a, string b) { if (a != b) return; }`,
			want: "ALOAD 0; ALOAD 1; IF_ACMPEQ 4; RETURN; RETURN",
		},
		{
			name: "body local shadows parameter",
			src:  `int f(int p) { int p = 5; return p; }`,
			want: "ICONST 5; ISTORE 1; ILOAD 1; IRETURN",
		},
		{
			name: "field access",
			src:  `int n; void f() { n = n + 1; }`,
			want: "GETSTATIC M.n I; ICONST 1; IADD; PUTSTATIC M.n I; RETURN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := compile(t, `module M { `+tt.src+` }`)
			fn := tt.fn
			if fn == "" {
				fn = "f"
			}
			m := findMethod(t, units, "M", fn)
			if got := render(m.Code); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestSlotsAreNotReusedAcrossSiblingScopes(t *testing.T) {
	units := compile(t, `module M { void f(int p) { { int a = 1; } { int b = 2; } } }`)
	m := findMethod(t, units, "M", "f")
	if m.MaxLocals != 3 {
		t.Errorf("MaxLocals = %d, expected 3", m.MaxLocals)
	}
	if got := render(m.Code); got != "ICONST 1; ISTORE 1; ICONST 2; ISTORE 2; RETURN" {
		t.Errorf("unexpected code %s", got)
	}
}

func TestUnitShape(t *testing.T) {
	units := compile(t, `module M {
    type string = "java.lang.String";
    type Sock = "java.net.Socket";
    public string[] names;
    int count;
    public boolean[][] g(Sock s, string t) { return [[true]]; }
    void h() { }
}`)
	if len(units) != 1 || units[0].Name != "M" {
		t.Fatalf("unexpected units %v", units)
	}
	u := units[0]

	if len(u.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(u.Fields))
	}
	if f := u.Field("names"); f == nil || !f.Public || f.Desc != "[Ljava/lang/String;" {
		t.Errorf("unexpected field %+v", f)
	}
	if f := u.Field("count"); f == nil || f.Public || f.Desc != "I" {
		t.Errorf("unexpected field %+v", f)
	}

	g := u.Method("g")
	if g == nil || !g.Public || g.Desc != "(Ljava/net/Socket;Ljava/lang/String;)[[Z" {
		t.Fatalf("unexpected method %+v", g)
	}
	if g.MaxLocals != 2 {
		t.Errorf("MaxLocals = %d, expected 2", g.MaxLocals)
	}
	code := render(g.Code)
	if !strings.Contains(code, "NEWARRAY [Z") || !strings.Contains(code, "NEWARRAY Z") {
		t.Errorf("expected both array allocations in %s", code)
	}
	if !strings.Contains(code, "BASTORE") || !strings.Contains(code, "AASTORE") {
		t.Errorf("expected boolean and reference element stores in %s", code)
	}
	if g.MaxStack == 0 {
		t.Error("MaxStack was not computed")
	}
	if h := u.Method("h"); h == nil || h.Public || h.Desc != "()V" {
		t.Errorf("unexpected method %+v", h)
	}
}

func TestCrossModuleReferences(t *testing.T) {
	units := compile(t,
		`module App { import Lib; int f() { count = twice(count); return count; } }`,
		`module Lib { public int count; public int twice(int x) { return x * 2; } }`,
	)
	if len(units) != 2 || units[0].Name != "App" || units[1].Name != "Lib" {
		t.Fatalf("units not in program order")
	}
	m := findMethod(t, units, "App", "f")
	want := "GETSTATIC Lib.count I; INVOKESTATIC Lib.twice (I)I; PUTSTATIC Lib.count I; GETSTATIC Lib.count I; IRETURN"
	if got := render(m.Code); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestGeneratedCodeVerifies(t *testing.T) {
	units := compile(t, `module M {
    type string = "java.lang.String";
    int total;
    public int sum(int[] xs) {
        int i = 0;
        int s = 0;
        while (i < 3) {
            if (xs[i] % 2 == 0) {
                s = s + xs[i];
            } else if (!(xs[i] > 100)) {
                s = s - 1;
            } else {
                break;
            }
            i = i + 1;
        }
        total = total + s;
        return s;
    }
    boolean same(string a, string b, boolean c) { return (a == b) == c; }
    int[][] grid() { return [[1, 2], [], [3]]; }
}`)
	for _, m := range units[0].Methods {
		if _, err := bytecode.Verify(m); err != nil {
			t.Errorf("%s: %v", m.Name, err)
		}
	}
}

func TestGenerateRequiresAnalysis(t *testing.T) {
	mod, err := parser.New(`module M { int f() { return 1; } }`).Parse()
	if err != nil {
		t.Fatal(err)
	}
	_, err = Generate(&ast.Program{Modules: []*ast.Module{mod}}, &checker.Info{})
	if err == nil || !strings.Contains(err.Error(), "was not resolved") {
		t.Fatalf("expected an unresolved-function error, got %v", err)
	}
}
