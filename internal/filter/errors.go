// internal/filter/errors.go
package filter

import (
	"errors"
	"fmt"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

// CompileError is the structured failure returned by every compile path.
// Kind is one of the types.Err* kind sentinels; errors.Is matches it as well
// as the underlying cause.
type CompileError struct {
	Kind    error
	Field   string // attribute name, or the reference as written when unresolved
	Literal string // offending literal, if any
	Type    string // Go type involved, if any
	Pos     int    // 1-based column in the query, 0 if unknown
	Msg     string
	Err     error // underlying cause
}

func (e *CompileError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompileError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// grammarError wraps a front end failure.
func grammarError(err error) *CompileError {
	cerr := &CompileError{Kind: types.ErrGrammar, Err: err}
	var serr *syntax.Error
	if errors.As(err, &serr) {
		cerr.Pos = serr.Pos
	}
	return cerr
}

func invalidLiteral(attr *Attribute, raw string, cause error) *CompileError {
	return &CompileError{
		Kind:    types.ErrInvalidLiteral,
		Field:   attr.Name,
		Literal: raw,
		Type:    attr.Type.String(),
		Msg:     fmt.Sprintf("cannot parse %q as %s for field %s", raw, attr.Type, attr.Name),
		Err:     cause,
	}
}

func unsupportedType(attr *Attribute) *CompileError {
	return &CompileError{
		Kind:  types.ErrUnsupportedFieldType,
		Field: attr.Name,
		Type:  attr.Type.String(),
		Msg:   fmt.Sprintf("field %s has type %s which cannot be compared", attr.Name, attr.Type),
	}
}
