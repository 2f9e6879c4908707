// internal/filter/engine.go
package filter

import (
	"fmt"
	"reflect"

	"github.com/solatis/spelfilter/internal/types"
)

// Engine compiles filters against one record type and applies them to
// record slices. It holds only the cached schema and is safe for
// concurrent use.
type Engine[T any] struct {
	schema         *Schema
	maxQueryLength int
}

// NewEngine creates an engine for T. maxQueryLength <= 0 uses
// types.MaxQueryLength.
func NewEngine[T any](maxQueryLength int) (*Engine[T], error) {
	schema, err := SchemaOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if maxQueryLength <= 0 || maxQueryLength > types.MaxQueryLength {
		maxQueryLength = types.MaxQueryLength
	}
	return &Engine[T]{schema: schema, maxQueryLength: maxQueryLength}, nil
}

// Schema returns the descriptor of T.
func (e *Engine[T]) Schema() *Schema {
	return e.schema
}

// Compile compiles query against T, enforcing the engine's length limit.
func (e *Engine[T]) Compile(query string) (Predicate[T], error) {
	if len(query) > e.maxQueryLength {
		return nil, &CompileError{
			Kind: types.ErrGrammar,
			Msg:  fmt.Sprintf("query is %d bytes, limit is %d", len(query), e.maxQueryLength),
			Err:  types.ErrQueryTooLong,
		}
	}
	return Compile[T](query)
}

// Filter compiles query and returns the matching records.
func (e *Engine[T]) Filter(query string, records []T) ([]T, error) {
	p, err := e.Compile(query)
	if err != nil {
		return nil, err
	}
	return Apply(p, records), nil
}

// Apply returns the records satisfying p, preserving order. The input
// slice is not modified.
func Apply[T any](p Predicate[T], records []T) []T {
	var out []T
	for _, rec := range records {
		if p(rec) {
			out = append(out, rec)
		}
	}
	return out
}
