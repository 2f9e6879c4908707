// internal/filter/engine_test.go
package filter

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/spelfilter/internal/types"
)

func TestEngine_Filter(t *testing.T) {
	engine, err := NewEngine[account](0)
	if err != nil {
		t.Fatalf("NewEngine() error = %v, want nil", err)
	}

	records := []account{
		{Name: "Ali", Age: 50},
		{Name: "Sara", Age: 31},
		{Name: "Alma", Age: 19},
	}

	got, err := engine.Filter("name like 'Al' and age > 20", records)
	if err != nil {
		t.Fatalf("Filter() error = %v, want nil", err)
	}
	if len(got) != 1 || got[0].Name != "Ali" {
		t.Errorf("Filter() = %+v, want [Ali]", got)
	}

	got, err = engine.Filter("age > 100", records)
	if err != nil {
		t.Fatalf("Filter() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("Filter() = %+v, want none", got)
	}

	if _, err := engine.Filter("nope == 1", records); !errors.Is(err, types.ErrUnknownField) {
		t.Errorf("Filter() error = %v, want %v", err, types.ErrUnknownField)
	}
}

func TestEngine_QueryLengthLimit(t *testing.T) {
	engine, err := NewEngine[account](16)
	if err != nil {
		t.Fatalf("NewEngine() error = %v, want nil", err)
	}
	if _, err := engine.Compile("age > 1"); err != nil {
		t.Errorf("Compile(short) error = %v, want nil", err)
	}
	_, err = engine.Compile("name == '" + strings.Repeat("x", 16) + "'")
	if !errors.Is(err, types.ErrQueryTooLong) || !errors.Is(err, types.ErrGrammar) {
		t.Errorf("Compile(long) error = %v, want %v", err, types.ErrQueryTooLong)
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	p, err := Compile[account]("age >= 2")
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	in := []account{{Age: 5}, {Age: 1}, {Age: 3}, {Age: 2}}
	got := Apply(p, in)
	want := []int{5, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("len(Apply()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Age != want[i] {
			t.Errorf("Apply()[%d].Age = %d, want %d", i, got[i].Age, want[i])
		}
	}
	if in[1].Age != 1 {
		t.Errorf("Apply() modified its input")
	}
}

func TestCompile_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	ops := []string{"==", "!=", ">", ">=", "<", "<="}
	manual := []func(a, b int) bool{
		func(a, b int) bool { return a == b },
		func(a, b int) bool { return a != b },
		func(a, b int) bool { return a > b },
		func(a, b int) bool { return a >= b },
		func(a, b int) bool { return a < b },
		func(a, b int) bool { return a <= b },
	}

	properties.Property("compiled comparison agrees with manual evaluation", prop.ForAll(
		func(op int, threshold int, age int) bool {
			p, err := Compile[account](fmt.Sprintf("age %s %d", ops[op], threshold))
			if err != nil {
				return false
			}
			return p(account{Age: age}) == manual[op](age, threshold)
		},
		gen.IntRange(0, len(ops)-1),
		gen.IntRange(-50, 50),
		gen.IntRange(-50, 50),
	))

	properties.Property("compiling twice yields identical behavior", prop.ForAll(
		func(threshold int, name string, age int, useOr bool) bool {
			connective := "and"
			if useOr {
				connective = "or"
			}
			query := fmt.Sprintf("age > %d %s name like 'a'", threshold, connective)
			p1, err1 := Compile[account](query)
			p2, err2 := Compile[account](query)
			if err1 != nil || err2 != nil {
				return false
			}
			rec := account{Age: age, Name: name}
			return p1(rec) == p2(rec)
		},
		gen.IntRange(-20, 20),
		gen.AlphaString(),
		gen.IntRange(-20, 20),
		gen.Bool(),
	))

	properties.Property("and/or match boolean connectives", prop.ForAll(
		func(age int, hasA bool, useOr bool) bool {
			name := "bob"
			if hasA {
				name = "alan"
			}
			connective, want := "and", age > 0 && hasA
			if useOr {
				connective, want = "or", age > 0 || hasA
			}
			p, err := Compile[account](fmt.Sprintf("(age > 0) %s (name like 'a')", connective))
			if err != nil {
				return false
			}
			return p(account{Age: age, Name: name}) == want
		},
		gen.IntRange(-5, 5),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
