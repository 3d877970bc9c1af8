package checker

import (
	"testing"

	"github.com/lhaig/modc/internal/ast"
	"github.com/lhaig/modc/internal/diagnostic"
)

// mod wraps declarations in a module that declares a string alias
func mod(decls string) string {
	return `module M { type string = "java.lang.String"; ` + decls + ` }`
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		substr string
	}{
		{"arithmetic on boolean", `int f() { return true + 1; }`, "operator '+' requires int operands, got boolean and int"},
		{"modulo on string", `int f() { return "a" % 2; }`, "operator '%' requires int operands, got String and int"},
		{"relational on strings", `boolean f(string a, string b) { return a < b; }`, "operator '<' requires int operands, got String and String"},
		{"equality across types", `boolean f() { return 1 == true; }`, "operator '==' requires operands of the same type, got int and boolean"},
		{"equality of distinct host types", `type A = "x.A"; type B = "x.B"; boolean f(A a, B b) { return a == b; }`, "got A and B"},
		{"void comparison", `void g() { } boolean f() { return g() == g(); }`, "operator '==' cannot compare void values"},
		{"not on int", `boolean f() { return !5; }`, "operator '!' requires a boolean operand, got int"},
		{"negate boolean", `int f() { return -true; }`, "operator '-' requires an int operand, got boolean"},
		{"wrong return type", `int f() { return true; }`, "type mismatch: cannot use boolean value as int"},
		{"return value from void", `void f() { return 1; }`, "void function 'f' cannot return a value"},
		{"missing return value", `int f() { return; }`, "missing return value: function 'f' returns int"},
		{"if condition", `void f() { if (1) { } }`, "if condition must be boolean, got int"},
		{"while condition", `void f(string s) { while (s) { } }`, "while condition must be boolean, got String"},
		{"index non-array", `int x; int f() { return x[0]; }`, "cannot index a value of type int"},
		{"boolean index", `int f(int[] a) { return a[true]; }`, "array index must be int, got boolean"},
		{"mixed array literal", `int[] f() { return [1, true]; }`, "array element has type boolean, expected int"},
		{"mixed array literal without context", `void f() { boolean b = [1, 2] == ["a"]; }`, "array element has type String, expected int"},
		{"void array element", `void g() { } void f() { int[] a = [g()]; }`, "void value cannot be an array element"},
		{"empty array without context", `boolean f() { return [] == []; }`, "cannot infer the element type of an empty array literal"},
		{"arity", `int g(int a, int b) { return a; } int f() { return g(1); }`, "function 'g' expects 2 argument(s), got 1"},
		{"argument type", `int g(int a) { return a; } int f() { return g("x"); }`, "type mismatch: cannot use String value as int"},
		{"assignment", `int x; void f() { x = true; }`, "type mismatch: cannot use boolean value as int"},
		{"array element assignment", `void f(int[] a) { a[0] = "s"; }`, "type mismatch: cannot use String value as int"},
		{"initializer", `void f() { boolean b = 3; }`, "type mismatch: cannot use int value as boolean"},
		{"literal too large", `int f() { return 2147483648; }`, "integer literal 2147483648 is out of range for int"},
		{"negative literal too large", `int f() { return -2147483649; }`, "integer literal 2147483649 is out of range for int"},
		{"huge literal", `int f() { return 123456789012345678901234567890; }`, "is out of range for int"},
		{"array of wrong nesting", `int[][] f() { return [1]; }`, "array element has type int, expected int[]"},
		{"void call as value", `void g() { } int f() { int x = g(); return x; }`, "type mismatch: cannot use void value as int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analyze(t, mod(tt.src))
			expectError(t, a, diagnostic.Type, tt.substr)
		})
	}
}

func TestWellTypedPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"int range limits", `int f() { return 2147483647; } int g() { return -2147483648; }`},
		{"string equality", `boolean f(string a, string b) { return a == b; }`},
		{"aliases of the string descriptor agree", `type text = "java.lang.String"; boolean f(string a, text b) { return a != b; }`},
		{"host type passthrough", `type Sock = "java.net.Socket"; Sock keep(Sock s) { return s; }`},
		{"array equality", `boolean f(int[] a, int[] b) { return a == b; }`},
		{"boolean equality", `boolean f(boolean a) { return a == !a; }`},
		{"empty array from return type", `int[] f() { return []; }`},
		{"empty array from declaration", `void f() { int[] a = []; a = []; }`},
		{"empty array from parameter", `void g(string[] xs) { } void f() { g([]); }`},
		{"empty array from comparison", `boolean f(int[] a) { return a == []; }`},
		{"nested array literal", `int[][] f() { return [[], [1, 2], [3]]; }`},
		{"index assignment", `void f(int[] a) { a[0] = 5; a[a[1]] = a[2] * 2; }`},
		{"recursive call", `int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); }`},
		{"forward reference", `int f() { return g(); } int g() { return 1; }`},
		{"void call statement", `void g(int x) { } void f() { g(1); }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectClean(t, analyze(t, mod(tt.src)))
		})
	}
}

func TestUnusedExpressionIsAWarning(t *testing.T) {
	a := analyze(t, mod(`void f() { 1 + 2; }`))
	expectClean(t, a)
	warnings := a.Diagnostics().Warnings()
	if len(warnings) != 1 || warnings[0].Message != "expression value is not used" {
		t.Fatalf("expected one warning, got:\n%s", a.Diagnostics().Format("test"))
	}
}

func TestEmptyArrayTakesContextType(t *testing.T) {
	a := analyze(t, mod(`string[][] f() { return [[]]; }`))
	expectClean(t, a)

	fn := a.prog.Modules[0].Functions()[0]
	outer := fn.Body.Statements[0].(*ast.ReturnStmt).Value.(*ast.ArrayLit)
	inner := outer.Elements[0]
	if got := a.Info().TypeOf(inner); !got.Equal(ArrayOf(TypeString)) {
		t.Errorf("inner literal typed %s, expected String[]", got)
	}
	if got := a.Info().TypeOf(outer); !got.Equal(ArrayOf(ArrayOf(TypeString))) {
		t.Errorf("outer literal typed %s, expected String[][]", got)
	}
}

func TestUnresolvedNamesDoNotCascade(t *testing.T) {
	a := analyze(t, mod(`int f() { return missing + other(1) * 2; }`))
	if n := len(a.Diagnostics().OfKind(diagnostic.Type)); n != 0 {
		t.Errorf("expected no type errors after name errors, got:\n%s", a.Diagnostics().Format("test"))
	}
	if n := len(a.Diagnostics().OfKind(diagnostic.Name)); n != 2 {
		t.Errorf("expected 2 name errors, got %d", n)
	}
}
