// internal/filter/compile.go
package filter

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

/*
 * Filter compilation.
 *
 * Compile turns query text into a Predicate over a record type T:
 *   1. Parse the text into a syntax tree (syntax.Parse)
 *   2. Walk the tree once, depth-first, binding each comparison's field
 *      and coercing its constant in tree order
 *   3. Combine child predicates with and/or closures
 *
 * The walk aborts on the first failure and no partial predicate escapes.
 * Everything that can fail does so here: a compiled Predicate never parses,
 * resolves or returns an error when invoked.
 *
 * Predicates capture only immutable state (accessors from the cached
 * schema and coerced constants) and are safe for concurrent use.
 */

// Predicate is a compiled filter over records of type T.
type Predicate[T any] func(rec T) bool

// Test reports whether rec satisfies the filter.
func (p Predicate[T]) Test(rec T) bool {
	return p(rec)
}

// Compile parses query and binds it against T. T must be a struct or a
// pointer to a struct; a nil pointer record never matches.
func Compile[T any](query string) (Predicate[T], error) {
	tree, err := syntax.Parse(query)
	if err != nil {
		return nil, grammarError(err)
	}
	return CompileTree[T](tree)
}

// CompileTree binds an already parsed tree against T.
func CompileTree[T any](tree syntax.Node) (Predicate[T], error) {
	t := reflect.TypeFor[T]()
	schema, err := SchemaOf(t)
	if err != nil {
		return nil, err
	}

	p, err := compileNode(schema, tree)
	if err != nil {
		return nil, err
	}

	if t.Kind() == reflect.Pointer {
		return func(rec T) bool {
			v := reflect.ValueOf(rec)
			if v.IsNil() {
				return false
			}
			return p(v.Elem())
		}, nil
	}
	return func(rec T) bool {
		// Addressable, so decimal fields are compared in place.
		return p(reflect.ValueOf(&rec).Elem())
	}, nil
}

func compileNode(schema *Schema, tree syntax.Node) (predicate, error) {
	if tree == nil {
		return nil, &CompileError{Kind: types.ErrGrammar, Msg: "empty expression"}
	}
	c := &compiler{schema: schema}
	return c.compile(tree)
}

type compiler struct {
	schema      *Schema
	comparisons int // bound so far, checked against types.MaxComparisons
}

func (c *compiler) compile(n syntax.Node) (predicate, error) {
	switch n := n.(type) {
	case *syntax.Comparison:
		return c.comparison(n)

	case *syntax.Logical:
		left, err := c.compile(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.compile(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case syntax.OpAnd:
			return and(left, right), nil
		case syntax.OpOr:
			return or(left, right), nil
		default:
			return nil, &CompileError{Kind: types.ErrGrammar, Pos: n.At, Msg: fmt.Sprintf("unknown logical operator %s", n.Op)}
		}

	case *syntax.Group:
		inner, err := c.compile(n.Inner)
		if err != nil {
			return nil, err
		}
		return group(inner), nil

	case *syntax.FieldRef, *syntax.Constant:
		return nil, &CompileError{
			Kind: types.ErrGrammar,
			Pos:  n.Pos(),
			Msg:  fmt.Sprintf("%s is not a boolean expression", n),
		}

	case nil:
		return nil, &CompileError{Kind: types.ErrGrammar, Msg: "empty expression"}

	default:
		return nil, &CompileError{Kind: types.ErrGrammar, Msg: fmt.Sprintf("unexpected node %T", n)}
	}
}

func (c *compiler) comparison(n *syntax.Comparison) (predicate, error) {
	if n.Field == nil || n.Constant == nil {
		return nil, &CompileError{Kind: types.ErrGrammar, Pos: n.At, Msg: "incomplete comparison"}
	}

	p, err := c.bind(n)
	if err != nil {
		var cerr *CompileError
		if errors.As(err, &cerr) && cerr.Pos == 0 {
			cerr.Pos = n.Field.At
		}
		return nil, err
	}

	c.comparisons++
	if c.comparisons > types.MaxComparisons {
		return nil, &CompileError{
			Kind: types.ErrGrammar,
			Pos:  n.At,
			Msg:  fmt.Sprintf("more than %d comparisons", types.MaxComparisons),
			Err:  types.ErrTooManyComparisons,
		}
	}
	return p, nil
}

func (c *compiler) bind(n *syntax.Comparison) (predicate, error) {
	attr, err := c.schema.Resolve(n.Field)
	if err != nil {
		return nil, err
	}

	if n.Op.IsContainment() {
		return buildContainment(n.Op, attr, n.Constant)
	}

	value, err := coerce(attr, n.Constant)
	if err != nil {
		return nil, err
	}
	return buildComparison(n.Op, attr, value)
}
