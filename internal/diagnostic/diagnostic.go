package diagnostic

import (
	"fmt"
	"strings"

	"github.com/lhaig/modc/internal/ast"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Kind names the compilation phase that produced a diagnostic
type Kind int

const (
	Lexical Kind = iota
	Syntax
	Name
	Type
	Flow
	Import
	Internal // code generation failures on a checked program
	Style    // lint findings; always warnings
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Name:
		return "name"
	case Type:
		return "type"
	case Flow:
		return "flow"
	case Import:
		return "import"
	case Internal:
		return "internal"
	case Style:
		return "style"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single compiler error, warning, or info message
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Line     int
	Column   int
	File     string   // optional file path (for multi-file compilation)
	Hint     string   // optional suggestion
	Node     ast.Node // offending construct; nil for lexical and syntax errors
}

// String renders the diagnostic without file information
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s(%s) %d:%d: %s", d.Severity, d.Kind, d.Line, d.Column, d.Message)
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	items []Diagnostic
}

// New creates a new empty Diagnostics collection
func New() *Diagnostics {
	return &Diagnostics{
		items: make([]Diagnostic, 0),
	}
}

// Add appends a fully built diagnostic
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

func (d *Diagnostics) add(sev Severity, kind Kind, node ast.Node, msg string) {
	line, col := 0, 0
	if node != nil {
		line, col = node.Pos()
	}
	d.items = append(d.items, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  msg,
		Line:     line,
		Column:   col,
		Node:     node,
	})
}

// Errorf adds an error diagnostic positioned at node
func (d *Diagnostics) Errorf(kind Kind, node ast.Node, format string, args ...any) {
	d.add(Error, kind, node, fmt.Sprintf(format, args...))
}

// Warningf adds a warning diagnostic positioned at node
func (d *Diagnostics) Warningf(kind Kind, node ast.Node, format string, args ...any) {
	d.add(Warning, kind, node, fmt.Sprintf(format, args...))
}

// ErrorfInFile adds an error diagnostic with file path and explicit position,
// for errors that precede the syntax tree
func (d *Diagnostics) ErrorfInFile(file string, kind Kind, line, col int, format string, args ...any) {
	d.items = append(d.items, Diagnostic{
		Severity: Error,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Column:   col,
		File:     file,
	})
}

// Merge appends every diagnostic of other, stamping file on those without one
func (d *Diagnostics) Merge(other *Diagnostics, file string) {
	for _, item := range other.items {
		if item.File == "" {
			item.File = file
		}
		d.items = append(d.items, item)
	}
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the error-level diagnostics
func (d *Diagnostics) Errors() []Diagnostic {
	return d.filter(Error)
}

// Warnings returns only the warning-level diagnostics
func (d *Diagnostics) Warnings() []Diagnostic {
	return d.filter(Warning)
}

func (d *Diagnostics) filter(sev Severity) []Diagnostic {
	out := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Severity == sev {
			out = append(out, item)
		}
	}
	return out
}

// OfKind returns the diagnostics produced by one phase
func (d *Diagnostics) OfKind(kind Kind) []Diagnostic {
	out := make([]Diagnostic, 0)
	for _, item := range d.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// ErrorCount returns the number of error-level diagnostics
func (d *Diagnostics) ErrorCount() int {
	return len(d.filter(Error))
}

// WarningCount returns the number of warning-level diagnostics
func (d *Diagnostics) WarningCount() int {
	return len(d.filter(Warning))
}

// Format returns human-readable error messages
// Output format:
//
//	error[filename:3:10]: undefined name 'x'
//	  hint: did you mean 'y'?
//	warning[filename:5:1]: unreachable statement
func (d *Diagnostics) Format(filename string) string {
	if len(d.items) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, item := range d.items {
		fileToUse := filename
		if item.File != "" {
			fileToUse = item.File
		}

		fmt.Fprintf(&builder, "%s[%s:%d:%d]: %s",
			item.Severity,
			fileToUse,
			item.Line,
			item.Column,
			item.Message,
		)

		if item.Hint != "" {
			fmt.Fprintf(&builder, "\n  hint: %s", item.Hint)
		}

		if i < len(d.items)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

// Clear removes all diagnostics from the collection
func (d *Diagnostics) Clear() {
	d.items = make([]Diagnostic, 0)
}
