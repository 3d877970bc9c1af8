package ast

import (
	"fmt"
	"strings"
)

// Print returns a tree-like string representation of the AST for debugging
func Print(node Node) string {
	var sb strings.Builder
	printNode(&sb, node, 0)
	return sb.String()
}

func visibility(public bool) string {
	if public {
		return " (public)"
	}
	return ""
}

func printNode(sb *strings.Builder, node Node, indent int) {
	if node == nil {
		return
	}

	prefix := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *Program:
		sb.WriteString(prefix + "Program\n")
		for _, m := range n.Modules {
			printNode(sb, m, indent+1)
		}

	case *Module:
		fmt.Fprintf(sb, "%sModule: %s\n", prefix, n.Name)
		for _, imp := range n.Imports {
			printNode(sb, imp, indent+1)
		}
		for _, d := range n.Decls {
			printNode(sb, d, indent+1)
		}

	case *Import:
		fmt.Fprintf(sb, "%sImport: %s\n", prefix, n.Name)

	case *TypeDecl:
		fmt.Fprintf(sb, "%sType: %s = %q%s\n", prefix, n.Name, n.Descriptor, visibility(n.Public))

	case *FieldDecl:
		fmt.Fprintf(sb, "%sField: %s %s%s\n", prefix, n.Type, n.Name, visibility(n.Public))

	case *FunctionDecl:
		fmt.Fprintf(sb, "%sFunction: %s%s\n", prefix, n.Name, visibility(n.Public))
		if len(n.Params) > 0 {
			fmt.Fprintf(sb, "%s  Params:\n", prefix)
			for _, p := range n.Params {
				printNode(sb, p, indent+2)
			}
		} else {
			fmt.Fprintf(sb, "%s  Params: none\n", prefix)
		}
		fmt.Fprintf(sb, "%s  Returns: %s\n", prefix, n.ReturnType)
		if n.Body != nil {
			fmt.Fprintf(sb, "%s  Body:\n", prefix)
			printNode(sb, n.Body, indent+2)
		}

	case *Param:
		fmt.Fprintf(sb, "%s%s %s\n", prefix, n.Type, n.Name)

	case *Block:
		sb.WriteString(prefix + "Block\n")
		for _, s := range n.Statements {
			printNode(sb, s, indent+1)
		}

	case *VarDecl:
		fmt.Fprintf(sb, "%sVar: %s %s\n", prefix, n.Type, n.Name)
		if n.Init != nil {
			printNode(sb, n.Init, indent+1)
		}

	case *AssignStmt:
		sb.WriteString(prefix + "Assign\n")
		printNode(sb, n.Target, indent+1)
		printNode(sb, n.Value, indent+1)

	case *IfStmt:
		sb.WriteString(prefix + "If\n")
		printNode(sb, n.Condition, indent+1)
		fmt.Fprintf(sb, "%s  Then:\n", prefix)
		printNode(sb, n.Then, indent+2)
		if n.Else != nil {
			fmt.Fprintf(sb, "%s  Else:\n", prefix)
			printNode(sb, n.Else, indent+2)
		}

	case *WhileStmt:
		sb.WriteString(prefix + "While\n")
		printNode(sb, n.Condition, indent+1)
		printNode(sb, n.Body, indent+1)

	case *BreakStmt:
		sb.WriteString(prefix + "Break\n")

	case *ReturnStmt:
		sb.WriteString(prefix + "Return\n")
		if n.Value != nil {
			printNode(sb, n.Value, indent+1)
		}

	case *ExprStmt:
		sb.WriteString(prefix + "ExprStmt\n")
		printNode(sb, n.Expr, indent+1)

	case *IntLit:
		fmt.Fprintf(sb, "%sInt: %s\n", prefix, n.Value)

	case *StringLit:
		fmt.Fprintf(sb, "%sString: %q\n", prefix, n.Value)

	case *BoolLit:
		fmt.Fprintf(sb, "%sBool: %t\n", prefix, n.Value)

	case *ArrayLit:
		fmt.Fprintf(sb, "%sArray (%d elements)\n", prefix, len(n.Elements))
		for _, e := range n.Elements {
			printNode(sb, e, indent+1)
		}

	case *Identifier:
		fmt.Fprintf(sb, "%sIdent: %s\n", prefix, n.Name)

	case *IndexExpr:
		sb.WriteString(prefix + "Index\n")
		printNode(sb, n.Array, indent+1)
		printNode(sb, n.Index, indent+1)

	case *BinaryExpr:
		fmt.Fprintf(sb, "%sBinary: %s\n", prefix, n.Op)
		printNode(sb, n.Left, indent+1)
		printNode(sb, n.Right, indent+1)

	case *UnaryExpr:
		fmt.Fprintf(sb, "%sUnary: %s\n", prefix, n.Op)
		printNode(sb, n.Operand, indent+1)

	case *CallExpr:
		fmt.Fprintf(sb, "%sCall: %s\n", prefix, n.Callee)
		for _, a := range n.Args {
			printNode(sb, a, indent+1)
		}

	default:
		fmt.Fprintf(sb, "%s<unknown %T>\n", prefix, node)
	}
}

// Inspect walks the tree rooted at node in depth-first source order, calling
// fn for each node. If fn returns false the children of that node are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		for _, m := range n.Modules {
			Inspect(m, fn)
		}
	case *Module:
		for _, imp := range n.Imports {
			Inspect(imp, fn)
		}
		for _, d := range n.Decls {
			Inspect(d, fn)
		}
	case *FieldDecl:
		Inspect(n.Type, fn)
	case *FunctionDecl:
		Inspect(n.ReturnType, fn)
		for _, p := range n.Params {
			Inspect(p, fn)
		}
		Inspect(n.Body, fn)
	case *Param:
		Inspect(n.Type, fn)
	case *TypeRef:
		if n.Elem != nil {
			Inspect(n.Elem, fn)
		}
	case *Block:
		for _, s := range n.Statements {
			Inspect(s, fn)
		}
	case *VarDecl:
		Inspect(n.Type, fn)
		if n.Init != nil {
			Inspect(n.Init, fn)
		}
	case *AssignStmt:
		Inspect(n.Target, fn)
		Inspect(n.Value, fn)
	case *IfStmt:
		Inspect(n.Condition, fn)
		Inspect(n.Then, fn)
		if n.Else != nil {
			Inspect(n.Else, fn)
		}
	case *WhileStmt:
		Inspect(n.Condition, fn)
		Inspect(n.Body, fn)
	case *ReturnStmt:
		if n.Value != nil {
			Inspect(n.Value, fn)
		}
	case *ExprStmt:
		Inspect(n.Expr, fn)
	case *ArrayLit:
		for _, e := range n.Elements {
			Inspect(e, fn)
		}
	case *IndexExpr:
		Inspect(n.Array, fn)
		Inspect(n.Index, fn)
	case *BinaryExpr:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *UnaryExpr:
		Inspect(n.Operand, fn)
	case *CallExpr:
		for _, a := range n.Args {
			Inspect(a, fn)
		}
	}
}
