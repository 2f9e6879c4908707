// Package types provides domain models shared across spelfilter components.
//
// Dependency-light design: errors.go is stdlib only so the filter core can
// import it without pulling storage or transport packages. The employee record
// domain lives here because the CLI, storage and API layers all bind to it.
package types

import "time"

// FilterID represents a UUIDv7 saved-filter identifier.
type FilterID string

// APIKeyID represents a UUIDv7 API key identifier.
type APIKeyID string

// SavedFilter is a named query text owned by an API key holder.
// Only the text is stored; predicates are compiled on every use.
type SavedFilter struct {
	FilterID  FilterID
	Owner     string
	Name      string
	Query     string
	Target    string // record type the query was validated against
	CreatedAt time.Time
}

// Resource limits enforced by the front end and the compiler.
const (
	// MaxQueryLength bounds the lexer input.
	// 4KB holds any hand-written filter; longer inputs are almost certainly generated abuse.
	MaxQueryLength = 4 * 1024

	// MaxExpressionDepth bounds parenthesis nesting to keep recursive descent shallow.
	MaxExpressionDepth = 32

	// MaxComparisons bounds the number of comparisons in one query.
	MaxComparisons = 128

	// MaxPathDepth is the number of segments a field reference may have (outer.inner).
	MaxPathDepth = 2

	// MaxFilterNameLength bounds saved filter names.
	MaxFilterNameLength = 128
)

// APIKey is the stored form of an API key. The key itself is never stored,
// only its HMAC under the secret named by SecretID.
type APIKey struct {
	APIKeyID   APIKeyID
	Owner      string
	Name       string
	SecretID   string
	KeyHash    string // hex HMAC-SHA256
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}
