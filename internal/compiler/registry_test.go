package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lhaig/modc/internal/diagnostic"
)

// writeSourceFile creates a source file with the given content in dir
func writeSourceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestReadSources(t *testing.T) {
	dir := t.TempDir()
	a := writeSourceFile(t, dir, "a.mod", "module A { }")
	b := writeSourceFile(t, dir, "b.mod", "module B { }")

	sources, err := ReadSources([]string{a, b})
	if err != nil {
		t.Fatalf("ReadSources: %v", err)
	}
	if len(sources) != 2 || sources[0].Name != a || sources[1].Text != "module B { }" {
		t.Errorf("unexpected sources %+v", sources)
	}

	if _, err := ReadSources([]string{filepath.Join(dir, "missing.mod")}); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRegistryKeepsInputOrder(t *testing.T) {
	var sources []Source
	for i := range 40 {
		sources = append(sources, Source{
			Name: fmt.Sprintf("m%d.mod", i),
			Text: fmt.Sprintf("module M%d { public int f() { return %d; } }", i, i),
		})
	}

	for _, jobs := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			r := NewModuleRegistry(sources, jobs)
			if err := r.ParseAll(context.Background()); err != nil {
				t.Fatalf("ParseAll: %v", err)
			}
			if d := r.Diagnostics(); d.Count() != 0 {
				t.Fatalf("unexpected diagnostics:\n%s", d.Format("test"))
			}
			prog := r.Program()
			if len(prog.Modules) != len(sources) {
				t.Fatalf("expected %d modules, got %d", len(sources), len(prog.Modules))
			}
			for i, mod := range prog.Modules {
				if mod.Name != fmt.Sprintf("M%d", i) || mod.File != sources[i].Name {
					t.Errorf("module %d is %s from %s", i, mod.Name, mod.File)
				}
			}
			if r.Module("M7") != prog.Modules[7] || r.Module("Nope") != nil {
				t.Error("Module lookup")
			}
		})
	}
}

func TestRegistryCollectsErrorsPerSource(t *testing.T) {
	sources := []Source{
		{Name: "good.mod", Text: "module Good { }"},
		{Name: "lex.mod", Text: "module M { int f() { return 1; } @ }"},
		{Name: "syntax.mod", Text: "module S { int x = ; }"},
	}
	r := NewModuleRegistry(sources, 2)
	if err := r.ParseAll(context.Background()); err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	d := r.Diagnostics()
	if d.ErrorCount() != 2 {
		t.Fatalf("expected 2 errors, got:\n%s", d.Format("test"))
	}
	lex := d.All()[0]
	if lex.Kind != diagnostic.Lexical || lex.File != "lex.mod" || lex.Line != 0 || lex.Column != 33 {
		t.Errorf("unexpected lexical diagnostic %+v", lex)
	}
	syn := d.All()[1]
	if syn.Kind != diagnostic.Syntax || syn.File != "syntax.mod" {
		t.Errorf("unexpected syntax diagnostic %+v", syn)
	}

	prog := r.Program()
	if len(prog.Modules) != 2 || prog.Modules[0].Name != "Good" || prog.Modules[1].Name != "M" {
		t.Errorf("expected the modules that parsed, in order")
	}
}

func TestRegistryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewModuleRegistry([]Source{{Name: "a", Text: "module A { }"}}, 1)
	if err := r.ParseAll(ctx); err == nil {
		t.Fatal("expected a cancellation error")
	}
}
