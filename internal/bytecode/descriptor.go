package bytecode

import (
	"fmt"
	"strings"
)

// Field descriptors of the built-in types
const (
	DescInt     = "I"
	DescBoolean = "Z"
	DescVoid    = "V"
	DescString  = "Ljava/lang/String;"
)

// ArrayDesc returns the descriptor of an array with the given element descriptor
func ArrayDesc(elem string) string {
	return "[" + elem
}

// HostDesc returns the descriptor of a host class given its dotted name
func HostDesc(className string) string {
	return "L" + strings.ReplaceAll(className, ".", "/") + ";"
}

// MethodDesc builds a method descriptor: (params)ret
func MethodDesc(params []string, ret string) string {
	return "(" + strings.Join(params, "") + ")" + ret
}

// IsReference reports whether a field descriptor denotes a reference type
func IsReference(desc string) bool {
	return strings.HasPrefix(desc, "L") || strings.HasPrefix(desc, "[")
}

// ElemDesc returns the element descriptor of an array descriptor
func ElemDesc(desc string) (string, bool) {
	if !strings.HasPrefix(desc, "[") {
		return "", false
	}
	return desc[1:], true
}

// ParseMethodDesc splits a method descriptor into parameter and return descriptors
func ParseMethodDesc(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q must start with '('", desc)
	}
	rest := desc[1:]
	for !strings.HasPrefix(rest, ")") {
		if rest == "" {
			return nil, "", fmt.Errorf("method descriptor %q has no ')'", desc)
		}
		var p string
		p, rest, err = splitFieldDesc(rest)
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		params = append(params, p)
	}
	rest = rest[1:]
	if rest == DescVoid {
		return params, DescVoid, nil
	}
	ret, tail, err := splitFieldDesc(rest)
	if err != nil {
		return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
	}
	if tail != "" {
		return nil, "", fmt.Errorf("method descriptor %q has trailing %q", desc, tail)
	}
	return params, ret, nil
}

// ValidFieldDesc reports whether desc is exactly one field descriptor
func ValidFieldDesc(desc string) bool {
	_, rest, err := splitFieldDesc(desc)
	return err == nil && rest == ""
}

// splitFieldDesc reads one field descriptor from the front of s
func splitFieldDesc(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("missing field descriptor")
	}
	switch s[0] {
	case 'I', 'Z':
		return s[:1], s[1:], nil
	case '[':
		elem, rest, err := splitFieldDesc(s[1:])
		if err != nil {
			return "", "", err
		}
		return "[" + elem, rest, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return "", "", fmt.Errorf("unterminated class descriptor %q", s)
		}
		return s[:end+1], s[end+1:], nil
	default:
		return "", "", fmt.Errorf("invalid field descriptor %q", s)
	}
}
