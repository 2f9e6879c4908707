// internal/filter/operators.go
package filter

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

/*
 * Comparison and containment builders.
 *
 * Every relational operator runs through one three-way comparison per kind
 * (negative/zero/positive), mapped against zero:
 *   ==  =0    !=  !=0    >  >0    >=  >=0    <  <0    <=  <=0
 *
 * Strings compare ordinally (strings.Compare), so value comparison is exact
 * even though field lookup is case-insensitive. Enums compare ordinals.
 *
 * Unordered values (float NaN, decimal NaN) satisfy only !=.
 * Absent values (nil pointer on the access path) satisfy nothing.
 *
 * like/not like are substring containment on string kinds only. not like
 * is its own closure rather than a negated like.
 */

// predicate is the untyped form of a compiled filter over a struct value.
type predicate func(rec reflect.Value) bool

// threeWay compares a field value with the bound constant. ordered is false
// when either side is unordered (NaN).
type threeWay func(v reflect.Value) (c int, ordered bool)

// signTest maps an operator to a test on a three-way comparison result.
func signTest(op syntax.CompareOp) (func(int) bool, error) {
	switch op {
	case syntax.OpEq:
		return func(c int) bool { return c == 0 }, nil
	case syntax.OpNotEq:
		return func(c int) bool { return c != 0 }, nil
	case syntax.OpGt:
		return func(c int) bool { return c > 0 }, nil
	case syntax.OpGte:
		return func(c int) bool { return c >= 0 }, nil
	case syntax.OpLt:
		return func(c int) bool { return c < 0 }, nil
	case syntax.OpLte:
		return func(c int) bool { return c <= 0 }, nil
	default:
		return nil, &CompileError{
			Kind: types.ErrGrammar,
			Msg:  fmt.Sprintf("operator %s is not a relational operator", op),
		}
	}
}

// buildComparison binds a relational operator, an attribute and a coerced
// constant into a predicate.
func buildComparison(op syntax.CompareOp, attr *Attribute, value any) (predicate, error) {
	test, err := signTest(op)
	if err != nil {
		return nil, err
	}
	compare, err := comparator(attr, value)
	if err != nil {
		return nil, err
	}

	get := attr.get
	unordered := op == syntax.OpNotEq
	return func(rec reflect.Value) bool {
		v, ok := get(rec)
		if !ok {
			return false
		}
		c, ordered := compare(v)
		if !ordered {
			return unordered
		}
		return test(c)
	}, nil
}

// comparator returns the three-way comparison for the attribute's kind.
func comparator(attr *Attribute, value any) (threeWay, error) {
	switch attr.kind {
	case kindEnum:
		ord := value.(int64)
		if isSigned(attr.Type.Kind()) {
			return func(v reflect.Value) (int, bool) { return cmp.Compare(v.Int(), ord), true }, nil
		}
		return func(v reflect.Value) (int, bool) {
			// Ordinals above MaxInt64 cannot be named by an int64 member value.
			u := v.Uint()
			if ord < 0 {
				return 1, true
			}
			return cmp.Compare(u, uint64(ord)), true
		}, nil

	case kindString:
		s := value.(string)
		return func(v reflect.Value) (int, bool) { return strings.Compare(v.String(), s), true }, nil

	case kindBool:
		b := value.(bool)
		return func(v reflect.Value) (int, bool) { return compareBool(v.Bool(), b), true }, nil

	case kindInt:
		n := value.(int64)
		return func(v reflect.Value) (int, bool) { return cmp.Compare(v.Int(), n), true }, nil

	case kindUint:
		n := value.(uint64)
		return func(v reflect.Value) (int, bool) { return cmp.Compare(v.Uint(), n), true }, nil

	case kindFloat:
		f := value.(float64)
		return func(v reflect.Value) (int, bool) {
			x := v.Float()
			if x != x || f != f {
				return 0, false
			}
			return cmp.Compare(x, f), true
		}, nil

	case kindDecimal:
		d := value.(*apd.Decimal)
		if isNaN(d) {
			return func(reflect.Value) (int, bool) { return 0, false }, nil
		}
		return func(v reflect.Value) (int, bool) {
			x := decimalOf(v)
			if isNaN(x) {
				return 0, false
			}
			return x.Cmp(d), true
		}, nil

	case kindDateTime:
		t := value.(time.Time)
		return func(v reflect.Value) (int, bool) { return v.Interface().(time.Time).Compare(t), true }, nil

	case kindDate:
		d := value.(civil.Date)
		return func(v reflect.Value) (int, bool) { return compareDate(v.Interface().(civil.Date), d), true }, nil

	case kindTimeOfDay:
		t := value.(civil.Time)
		return func(v reflect.Value) (int, bool) { return compareClock(v.Interface().(civil.Time), t), true }, nil

	case kindDuration:
		d := value.(time.Duration)
		return func(v reflect.Value) (int, bool) { return cmp.Compare(time.Duration(v.Int()), d), true }, nil

	case kindParseable:
		arg := []reflect.Value{value.(reflect.Value)}
		method := attr.compare
		return func(v reflect.Value) (int, bool) {
			return int(v.Method(method).Call(arg)[0].Int()), true
		}, nil

	case kindStruct, kindUnsupported:
		return nil, unsupportedType(attr)

	default:
		return nil, unsupportedType(attr)
	}
}

// buildContainment binds like/not like. The attribute must be string-like;
// the constant is used verbatim.
func buildContainment(op syntax.CompareOp, attr *Attribute, c *syntax.Constant) (predicate, error) {
	if !attr.StringLike() {
		return nil, &CompileError{
			Kind:    types.ErrTypeMismatch,
			Field:   attr.Name,
			Literal: c.Raw,
			Type:    attr.Type.String(),
			Msg:     fmt.Sprintf("%s requires a string field, %s has type %s", op, attr.Name, attr.Type),
		}
	}

	get := attr.get
	substr := c.Raw
	switch op {
	case syntax.OpLike:
		return func(rec reflect.Value) bool {
			v, ok := get(rec)
			return ok && strings.Contains(v.String(), substr)
		}, nil
	case syntax.OpNotLike:
		return func(rec reflect.Value) bool {
			v, ok := get(rec)
			return ok && !strings.Contains(v.String(), substr)
		}, nil
	default:
		return nil, &CompileError{
			Kind: types.ErrGrammar,
			Msg:  fmt.Sprintf("operator %s is not a containment operator", op),
		}
	}
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func isNaN(d *apd.Decimal) bool {
	return d.Form == apd.NaN || d.Form == apd.NaNSignaling
}

// decimalOf returns the field's decimal without copying when the value is addressable.
func decimalOf(v reflect.Value) *apd.Decimal {
	if v.CanAddr() {
		return v.Addr().Interface().(*apd.Decimal)
	}
	d := v.Interface().(apd.Decimal)
	return &d
}

func compareDate(a, b civil.Date) int {
	if c := cmp.Compare(a.Year, b.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Month, b.Month); c != 0 {
		return c
	}
	return cmp.Compare(a.Day, b.Day)
}

func compareClock(a, b civil.Time) int {
	if c := cmp.Compare(a.Hour, b.Hour); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minute, b.Minute); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Second, b.Second); c != 0 {
		return c
	}
	return cmp.Compare(a.Nanosecond, b.Nanosecond)
}
