package bytecode

import (
	"fmt"
	"strings"
)

// Listing renders a unit as human-readable assembly
func Listing(u *Unit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unit %s\n", u.Name)
	for _, f := range u.Fields {
		fmt.Fprintf(&sb, "  field %s%s %s\n", visibility(f.Public), f.Name, f.Desc)
	}
	for _, m := range u.Methods {
		fmt.Fprintf(&sb, "\n  method %s%s %s locals=%d stack=%d\n",
			visibility(m.Public), m.Name, m.Desc, m.MaxLocals, m.MaxStack)
		targets := make(map[int]bool)
		for _, in := range m.Code {
			if in.Op.IsBranch() {
				targets[in.Target] = true
			}
		}
		for i, in := range m.Code {
			marker := " "
			if targets[i] {
				marker = ">"
			}
			fmt.Fprintf(&sb, "  %s%4d: %s\n", marker, i, in)
		}
	}
	return sb.String()
}

func visibility(public bool) string {
	if public {
		return "public "
	}
	return ""
}
