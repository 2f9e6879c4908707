package types

import "errors"

// Sentinel errors for filter compilation. Every compile failure matches exactly
// one of the kind sentinels via errors.Is.
var (
	// ErrUnknownField indicates a field token matches no attribute of the record
	// type, matches more than one, or a nested lookup fails at the second level.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnsupportedFieldType indicates a field type offers neither ordering,
	// string identity, nor a string parsing contract.
	ErrUnsupportedFieldType = errors.New("unsupported field type")

	// ErrTypeMismatch indicates like/not like used against a non-string field.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidLiteral indicates a literal cannot be parsed into the field's type.
	ErrInvalidLiteral = errors.New("invalid literal")

	// ErrInvalidEnumLiteral indicates a literal names no member of the enumeration.
	ErrInvalidEnumLiteral = errors.New("invalid enum literal")

	// ErrGrammar indicates the lexer or parser rejected the query text.
	ErrGrammar = errors.New("grammar error")
)

// Resource limit errors. These are reported together with ErrGrammar.
var (
	// ErrQueryTooLong indicates the query text exceeds MaxQueryLength.
	ErrQueryTooLong = errors.New("query exceeds maximum length")

	// ErrExpressionTooDeep indicates parenthesis nesting exceeds MaxExpressionDepth.
	ErrExpressionTooDeep = errors.New("expression exceeds maximum nesting depth")

	// ErrTooManyComparisons indicates a query holds more than MaxComparisons comparisons.
	ErrTooManyComparisons = errors.New("query has too many comparisons")

	// ErrPathTooDeep indicates a field reference exceeds MaxPathDepth segments.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")
)

// Storage errors.
var (
	// ErrFilterNotFound indicates no saved filter exists under the requested name.
	ErrFilterNotFound = errors.New("saved filter not found")

	// ErrFilterExists indicates a saved filter name is already taken by the owner.
	ErrFilterExists = errors.New("saved filter already exists")

	// ErrAPIKeyNotFound indicates no API key matches the presented key hash.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrInvalidFilterName indicates an empty or overlong saved filter name.
	ErrInvalidFilterName = errors.New("invalid filter name")
)
