package checker

// TypeKind tags the shape of a resolved type
type TypeKind int

const (
	KindInt TypeKind = iota
	KindBoolean
	KindString
	KindVoid
	KindArray
	KindHost
)

// StringDescriptor is the host descriptor that aliases the built-in string type
const StringDescriptor = "java.lang.String"

// Type represents a resolved type. Host types are opaque references named by
// the alias that introduced them and compared by descriptor.
type Type struct {
	Kind       TypeKind
	Elem       *Type  // element type when Kind == KindArray
	Alias      string // alias name when Kind == KindHost
	Descriptor string // host descriptor when Kind == KindHost
}

// Builtin types
var (
	TypeInt     = &Type{Kind: KindInt}
	TypeBoolean = &Type{Kind: KindBoolean}
	TypeString  = &Type{Kind: KindString}
	TypeVoid    = &Type{Kind: KindVoid}
)

// ArrayOf returns the array type with the given element type
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// HostType returns the type a `type alias = "descriptor";` declaration binds
func HostType(alias, descriptor string) *Type {
	if descriptor == StringDescriptor {
		return TypeString
	}
	return &Type{Kind: KindHost, Alias: alias, Descriptor: descriptor}
}

// Equal checks if two types are equal
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.Equal(other.Elem)
	case KindHost:
		return t.Descriptor == other.Descriptor
	default:
		return true
	}
}

// IsReference reports whether values of the type are heap references
func (t *Type) IsReference() bool {
	return t != nil && (t.Kind == KindString || t.Kind == KindArray || t.Kind == KindHost)
}

// String returns the string representation of the type
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindInt:
		return "int"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "String"
	case KindVoid:
		return "void"
	case KindArray:
		return t.Elem.String() + "[]"
	case KindHost:
		return t.Alias
	default:
		return "<unknown>"
	}
}
