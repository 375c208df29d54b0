package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented tree rendering of node to w.
//
//	Statements
//	  Assignment x
//	    BinOp "+"
//	      Number 1
//	      Number 2
func Fprint(w io.Writer, node Node) error {
	d := &dumper{w: w}
	d.node(node, 0)
	return d.err
}

// Dump returns the tree rendering of node as a string.
func Dump(node Node) string {
	var sb strings.Builder
	_ = Fprint(&sb, node)
	return sb.String()
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) line(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *dumper) node(node Node, depth int) {
	switch n := node.(type) {
	case *Statements:
		d.line(depth, "Statements")
		for _, s := range n.List {
			d.node(s, depth+1)
		}
	case *Number:
		d.line(depth, "Number %s", n.String())
	case *String:
		d.line(depth, "String %s", strconv.Quote(n.Value))
	case *Bool:
		d.line(depth, "Bool %t", n.Value)
	case *Identifier:
		d.line(depth, "Identifier %s", n.Name)
	case *UnaryOp:
		d.line(depth, "UnaryOp %q", n.Token.Literal)
		d.node(n.Operand, depth+1)
	case *BinOp:
		d.line(depth, "BinOp %q", n.Token.Literal)
		d.node(n.Left, depth+1)
		d.node(n.Right, depth+1)
	case *LogicalOp:
		d.line(depth, "LogicalOp %q", n.Token.Literal)
		d.node(n.Left, depth+1)
		d.node(n.Right, depth+1)
	case *Grouping:
		d.line(depth, "Grouping")
		d.node(n.Inner, depth+1)
	case *FunctionCall:
		d.line(depth, "FunctionCall %s", n.Name)
		for _, a := range n.Args {
			d.node(a, depth+1)
		}
	case *Assignment:
		d.line(depth, "Assignment %s", n.Target.Name)
		d.node(n.Value, depth+1)
	case *Print:
		d.line(depth, "Print")
		d.node(n.Value, depth+1)
	case *Println:
		d.line(depth, "Println")
		d.node(n.Value, depth+1)
	case *If:
		d.line(depth, "If")
		d.node(n.Test, depth+1)
		d.line(depth+1, "Then")
		d.node(n.Then, depth+2)
		if n.Else != nil {
			d.line(depth+1, "Else")
			d.node(n.Else, depth+2)
		}
	case *While:
		d.line(depth, "While")
		d.node(n.Test, depth+1)
		d.node(n.Body, depth+1)
	case *For:
		d.line(depth, "For")
		d.node(n.Init, depth+1)
		d.node(n.End, depth+1)
		d.node(n.Step, depth+1)
		d.node(n.Body, depth+1)
	case *FunctionDeclaration:
		params := make([]string, 0, len(n.Params))
		for _, p := range n.Params {
			params = append(params, p.Name)
		}
		d.line(depth, "FunctionDeclaration %s(%s)", n.Name, strings.Join(params, ", "))
		d.node(n.Body, depth+1)
	case *FunctionCallStatement:
		d.line(depth, "FunctionCallStatement")
		d.node(n.Call, depth+1)
	case *Return:
		d.line(depth, "Return")
		d.node(n.Value, depth+1)
	default:
		d.line(depth, "<unknown %T>", node)
	}
}
