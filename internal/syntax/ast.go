// internal/syntax/ast.go
package syntax

import "fmt"

/*
 * Parse tree for the filter language.
 *
 * The tree is a closed set of node types: FieldRef, Constant, Comparison,
 * Logical and Group. Consumers dispatch with a type switch; the unexported
 * marker method keeps the set sealed.
 *
 * Constants carry the raw token text with quotes stripped. Typing happens
 * only once a constant is bound to a field, so the tree never interprets
 * literal values.
 *
 * Positions are 1-based byte columns into the query text.
 */

// Node is any element of a parsed filter expression.
type Node interface {
	Pos() int
	String() string
	node()
}

// CompareOp is a relational or containment operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNotEq
	OpGt
	OpGte
	OpLt
	OpLte
	OpLike
	OpNotLike
)

var compareOpText = [...]string{
	OpEq:      "==",
	OpNotEq:   "!=",
	OpGt:      ">",
	OpGte:     ">=",
	OpLt:      "<",
	OpLte:     "<=",
	OpLike:    "like",
	OpNotLike: "not like",
}

func (op CompareOp) String() string {
	if op < 0 || int(op) >= len(compareOpText) {
		return fmt.Sprintf("CompareOp(%d)", int(op))
	}
	return compareOpText[op]
}

// IsContainment reports whether op is like or not like.
func (op CompareOp) IsContainment() bool {
	return op == OpLike || op == OpNotLike
}

// LogicalOp is a boolean connective.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return fmt.Sprintf("LogicalOp(%d)", int(op))
	}
}

// FieldRef names a record attribute, optionally one level deep (outer.inner).
type FieldRef struct {
	Name   string
	Nested string // empty for a simple field
	At     int
}

// Path returns the dotted field reference as written.
func (f *FieldRef) Path() string {
	if f.Nested == "" {
		return f.Name
	}
	return f.Name + "." + f.Nested
}

func (f *FieldRef) Pos() int       { return f.At }
func (f *FieldRef) String() string { return f.Path() }
func (*FieldRef) node()            {}

// Constant is an unparsed literal token.
type Constant struct {
	Raw    string // quotes stripped
	Quoted bool
	At     int
}

func (c *Constant) Pos() int { return c.At }

func (c *Constant) String() string {
	if c.Quoted {
		return "'" + c.Raw + "'"
	}
	return c.Raw
}

func (*Constant) node() {}

// Comparison is `field OP constant`.
type Comparison struct {
	Op       CompareOp
	Field    *FieldRef
	Constant *Constant
	At       int
}

func (c *Comparison) Pos() int { return c.At }

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Constant)
}

func (*Comparison) node() {}

// Logical joins two expressions with and/or.
type Logical struct {
	Op    LogicalOp
	Left  Node
	Right Node
	At    int
}

func (l *Logical) Pos() int { return l.At }

func (l *Logical) String() string {
	return fmt.Sprintf("%s(%s, %s)", l.Op, l.Left, l.Right)
}

func (*Logical) node() {}

// Group is a parenthesized expression. It never changes the truth value of Inner.
type Group struct {
	Inner Node
	At    int
}

func (g *Group) Pos() int       { return g.At }
func (g *Group) String() string { return "(" + g.Inner.String() + ")" }
func (*Group) node()            {}

// Inspect traverses the tree depth-first, calling f for each node.
// If f returns false, the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch v := n.(type) {
	case *Comparison:
		Inspect(v.Field, f)
		Inspect(v.Constant, f)
	case *Logical:
		Inspect(v.Left, f)
		Inspect(v.Right, f)
	case *Group:
		Inspect(v.Inner, f)
	}
}
