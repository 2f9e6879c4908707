// internal/filter/schema.go
package filter

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

/*
 * Schema descriptors and field resolution.
 *
 * A Schema describes the readable attributes of one struct type: exported
 * fields (promoted fields of embedded structs included) and exported
 * niladic methods with a single result. Attributes are keyed by their
 * Unicode case-folded name, so Name, name and NAME resolve alike.
 *
 * Descriptors are built once per type and cached for the process lifetime
 * in a sync.Map. A concurrent first build may run twice; LoadOrStore keeps
 * one and the descriptor is never mutated afterwards.
 *
 * Each attribute is classified into a closed set of kinds when the schema
 * is built. Coercion and comparison dispatch on that kind with exhaustive
 * switches instead of probing capabilities at compile time.
 *
 * Absent values: a nil pointer on the access path (embedded pointer,
 * pointer-typed field, or nested pointer struct) makes the accessor report
 * ok=false. Comparisons treat an absent value as non-matching.
 *
 * Struct tag `filter:"name"` renames an attribute, `filter:"-"` hides it.
 */

// Enum is implemented by integer-backed types with a closed set of named
// members. Literals are matched against member names case-insensitively and
// compared by ordinal.
type Enum interface {
	EnumMembers() map[string]int64
}

type attrKind int

const (
	kindUnsupported attrKind = iota
	kindString
	kindBool
	kindInt
	kindUint
	kindFloat
	kindDecimal
	kindDateTime
	kindDate
	kindTimeOfDay
	kindDuration
	kindEnum
	kindParseable
	kindStruct
)

var attrKindNames = [...]string{
	kindUnsupported: "unsupported",
	kindString:      "string",
	kindBool:        "bool",
	kindInt:         "int",
	kindUint:        "uint",
	kindFloat:       "float",
	kindDecimal:     "decimal",
	kindDateTime:    "datetime",
	kindDate:        "date",
	kindTimeOfDay:   "time",
	kindDuration:    "duration",
	kindEnum:        "enum",
	kindParseable:   "parseable",
	kindStruct:      "record",
}

func (k attrKind) String() string {
	if k < 0 || int(k) >= len(attrKindNames) {
		return fmt.Sprintf("attrKind(%d)", int(k))
	}
	return attrKindNames[k]
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	dateType     = reflect.TypeFor[civil.Date]()
	clockType    = reflect.TypeFor[civil.Time]()
	decimalType  = reflect.TypeFor[apd.Decimal]()
	enumType     = reflect.TypeFor[Enum]()
	textType     = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// accessor reads an attribute from a struct value. ok is false when a nil
// pointer on the access path leaves the attribute absent.
type accessor func(rec reflect.Value) (v reflect.Value, ok bool)

// Attribute is one resolvable member of a Schema.
type Attribute struct {
	Name string       // Go name, dotted for nested attributes
	Type reflect.Type // pointer types are dereferenced

	kind    attrKind
	get     accessor
	members map[string]int64 // folded member name -> ordinal, enums only
	compare int              // Compare method index, parseable only
}

// Kind returns the attribute's type class name.
func (a *Attribute) Kind() string { return a.kind.String() }

// StringLike reports whether like/not like may be used on the attribute.
func (a *Attribute) StringLike() bool { return a.kind == kindString }

// Schema is the immutable descriptor of a record struct type.
type Schema struct {
	Type  reflect.Type
	attrs map[string][]*Attribute // folded name -> candidates; >1 is ambiguous
	list  []*Attribute
}

var schemaCache sync.Map // reflect.Type -> *Schema

// SchemaOf returns the cached descriptor for struct type t, building it on
// first use. A pointer to a struct is accepted and dereferenced.
func SchemaOf(t reflect.Type) (*Schema, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &CompileError{
			Kind: types.ErrUnsupportedFieldType,
			Type: fmt.Sprint(t),
			Msg:  fmt.Sprintf("record type %v is not a struct", t),
		}
	}

	if s, ok := schemaCache.Load(t); ok {
		return s.(*Schema), nil
	}
	s, _ := schemaCache.LoadOrStore(t, buildSchema(t))
	return s.(*Schema), nil
}

func buildSchema(t reflect.Type) *Schema {
	s := &Schema{Type: t, attrs: make(map[string][]*Attribute)}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("filter"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		s.add(newAttribute(name, f.Type, fieldAccessor(f.Index)))
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		// Method type includes the receiver as its first input.
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}
		s.add(newAttribute(m.Name, m.Type.Out(0), methodAccessor(m.Index)))
	}

	sort.Slice(s.list, func(i, j int) bool { return s.list[i].Name < s.list[j].Name })
	return s
}

func (s *Schema) add(a *Attribute) {
	key := foldName(a.Name)
	s.attrs[key] = append(s.attrs[key], a)
	s.list = append(s.list, a)
}

func newAttribute(name string, t reflect.Type, get accessor) *Attribute {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	a := &Attribute{Name: name, Type: t, get: get}
	a.kind, a.compare = classify(t)
	if a.kind == kindEnum {
		members := reflect.Zero(t).Interface().(Enum).EnumMembers()
		a.members = make(map[string]int64, len(members))
		for member, ord := range members {
			a.members[foldName(member)] = ord
		}
	}
	return a
}

// classify maps a Go type onto the closed attribute kind set. For parseable
// types it also returns the index of the Compare method.
func classify(t reflect.Type) (attrKind, int) {
	if t.Implements(enumType) && isInteger(t.Kind()) {
		return kindEnum, 0
	}

	switch t {
	case timeType:
		return kindDateTime, 0
	case durationType:
		return kindDuration, 0
	case dateType:
		return kindDate, 0
	case clockType:
		return kindTimeOfDay, 0
	case decimalType:
		return kindDecimal, 0
	}

	if t.Kind() == reflect.String {
		return kindString, 0
	}

	if reflect.PointerTo(t).Implements(textType) {
		if m, ok := t.MethodByName("Compare"); ok &&
			m.Type.NumIn() == 2 && m.Type.In(1) == t &&
			m.Type.NumOut() == 1 && m.Type.Out(0).Kind() == reflect.Int {
			return kindParseable, m.Index
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return kindBool, 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt, 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindUint, 0
	case reflect.Float32, reflect.Float64:
		return kindFloat, 0
	case reflect.Struct:
		return kindStruct, 0
	default:
		return kindUnsupported, 0
	}
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func fieldAccessor(index []int) accessor {
	return func(v reflect.Value) (reflect.Value, bool) {
		for i, x := range index {
			if i > 0 && v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
			v = v.Field(x)
		}
		return deref(v)
	}
}

func methodAccessor(index int) accessor {
	return func(v reflect.Value) (reflect.Value, bool) {
		return deref(v.Method(index).Call(nil)[0])
	}
}

func deref(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() != reflect.Pointer {
		return v, true
	}
	if v.IsNil() {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

// foldName case-folds s. Casers are stateful, so one is created per call.
func foldName(s string) string {
	return cases.Fold().String(s)
}

// Attributes returns all attributes sorted by Go name.
func (s *Schema) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.list))
	copy(out, s.list)
	return out
}

// Lookup finds the single attribute whose name folds to the same string as name.
func (s *Schema) Lookup(name string) (*Attribute, error) {
	candidates := s.attrs[foldName(name)]
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return nil, &CompileError{
			Kind:  types.ErrUnknownField,
			Field: name,
			Type:  s.Type.String(),
			Msg:   fmt.Sprintf("no field %q on %s", name, s.Type),
		}
	default:
		names := make([]string, len(candidates))
		for i, a := range candidates {
			names[i] = a.Name
		}
		return nil, &CompileError{
			Kind:  types.ErrUnknownField,
			Field: name,
			Type:  s.Type.String(),
			Msg:   fmt.Sprintf("field %q on %s is ambiguous between %v", name, s.Type, names),
		}
	}
}

// Resolve binds a field reference to an attribute. A nested reference
// resolves its outer name first and then its inner name against the outer
// attribute's struct type, composing the two accessors.
func (s *Schema) Resolve(ref *syntax.FieldRef) (*Attribute, error) {
	outer, err := s.Lookup(ref.Name)
	if err != nil {
		return nil, err
	}
	if ref.Nested == "" {
		return outer, nil
	}

	if outer.kind != kindStruct {
		return nil, &CompileError{
			Kind:  types.ErrUnknownField,
			Field: ref.Path(),
			Type:  outer.Type.String(),
			Msg:   fmt.Sprintf("field %s has type %s and no nested fields", outer.Name, outer.Type),
		}
	}
	nested, err := SchemaOf(outer.Type)
	if err != nil {
		return nil, err
	}
	inner, err := nested.Lookup(ref.Nested)
	if err != nil {
		var cerr *CompileError
		if errors.As(err, &cerr) {
			cerr.Field = ref.Path()
		}
		return nil, err
	}

	getOuter, getInner := outer.get, inner.get
	composed := *inner
	composed.Name = outer.Name + "." + inner.Name
	composed.get = func(rec reflect.Value) (reflect.Value, bool) {
		v, ok := getOuter(rec)
		if !ok {
			return reflect.Value{}, false
		}
		return getInner(v)
	}
	return &composed, nil
}
