// internal/filter/logical.go
package filter

import "reflect"

// and evaluates right only when left holds.
func and(left, right predicate) predicate {
	return func(rec reflect.Value) bool {
		return left(rec) && right(rec)
	}
}

// or evaluates right only when left fails.
func or(left, right predicate) predicate {
	return func(rec reflect.Value) bool {
		return left(rec) || right(rec)
	}
}

// group is the identity; parentheses only shape the tree.
func group(inner predicate) predicate {
	return inner
}
