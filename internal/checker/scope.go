package checker

import (
	"fmt"

	"github.com/lhaig/modc/internal/ast"
)

// SymbolKind represents the kind of symbol
type SymbolKind int

const (
	SymLocal SymbolKind = iota
	SymParam
	SymField
	SymFunction
	SymTypeAlias
)

// String returns the string representation of the symbol kind
func (sk SymbolKind) String() string {
	switch sk {
	case SymLocal:
		return "local variable"
	case SymParam:
		return "parameter"
	case SymField:
		return "field"
	case SymFunction:
		return "function"
	case SymTypeAlias:
		return "type"
	default:
		return "unknown"
	}
}

// Symbol is the declaration a name resolves to
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Module string // declaring module
	Public bool   // only meaningful for module-level symbols
	Type   *Type  // value type, or the aliased type for SymTypeAlias; nil if unresolved
	Params []*Type
	Return *Type
	Node   ast.Node // declaring node
}

// Scope represents a lexical scope with a symbol table
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
	order   []*Symbol
}

// NewScope creates a new scope with an optional parent
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Define adds a symbol to the current scope
// Returns an error if the symbol is already defined in this scope
func (s *Scope) Define(name string, sym *Symbol) error {
	if prev, exists := s.symbols[name]; exists {
		return fmt.Errorf("'%s' is already declared as a %s in this scope", name, prev.Kind)
	}
	s.symbols[name] = sym
	s.order = append(s.order, sym)
	return nil
}

// Resolve looks up a symbol in the current scope and parent scopes
// Returns nil if the symbol is not found
func (s *Scope) Resolve(name string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	if s.parent != nil {
		return s.parent.Resolve(name)
	}
	return nil
}

// ResolveLocal looks up a symbol only in the current scope (not parent scopes)
func (s *Scope) ResolveLocal(name string) *Symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	return nil
}

// Symbols returns the symbols of this scope in definition order
func (s *Scope) Symbols() []*Symbol {
	return s.order
}
