package syntax

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/spelfilter/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "age > 45", want: "age > 45"},
		{input: "name == 'Ali'", want: "name == 'Ali'"},
		{input: `name == "Ali"`, want: "name == 'Ali'"},
		{input: "name like 'li'", want: "name like 'li'"},
		{input: "name not like 'li'", want: "name not like 'li'"},
		{input: "address.city == 'Tehran'", want: "address.city == 'Tehran'"},
		{input: "employeeType == Manager", want: "employeeType == Manager"},
		{input: "a == 1 and b == 2 or c == 3", want: "or(and(a == 1, b == 2), c == 3)"},
		{input: "a == 1 or b == 2 and c == 3", want: "or(a == 1, and(b == 2, c == 3))"},
		{input: "a == 1 and b == 2 and c == 3", want: "and(and(a == 1, b == 2), c == 3)"},
		{input: "(a == 1 or b == 2) and c == 3", want: "and((or(a == 1, b == 2)), c == 3)"},
		{input: "((a == 1))", want: "((a == 1))"},
		{input: "a <= -1.5", want: "a <= -1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v, want nil", err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("Parse() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParse_ComparisonFields(t *testing.T) {
	node, err := Parse("Address.Zip >= '1000'")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	cmp, ok := node.(*Comparison)
	if !ok {
		t.Fatalf("node = %T, want *Comparison", node)
	}
	if cmp.Op != OpGte {
		t.Errorf("Op = %v, want >=", cmp.Op)
	}
	if cmp.Field.Name != "Address" || cmp.Field.Nested != "Zip" {
		t.Errorf("Field = %+v, want Address.Zip", cmp.Field)
	}
	if cmp.Constant.Raw != "1000" || !cmp.Constant.Quoted {
		t.Errorf("Constant = %+v, want quoted 1000", cmp.Constant)
	}
	if cmp.Constant.Pos() != 16 {
		t.Errorf("Constant.Pos() = %d, want 16", cmp.Constant.Pos())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantPos int
		wantMsg string
	}{
		{name: "empty", input: "", wantPos: 1, wantMsg: "empty expression"},
		{name: "blank", input: "   ", wantPos: 4, wantMsg: "empty expression"},
		{name: "missing operator", input: "age 45", wantPos: 5, wantMsg: "expected comparison operator"},
		{name: "missing literal", input: "age >", wantPos: 6, wantMsg: "expected literal"},
		{name: "literal first", input: "45 < age", wantPos: 1, wantMsg: "expected field name or '('"},
		{name: "unbalanced open", input: "(age > 1", wantPos: 9, wantMsg: "expected ')'"},
		{name: "unbalanced close", input: "age > 1)", wantPos: 8, wantMsg: "expected 'and', 'or' or end of input"},
		{name: "not without like", input: "name not 'x'", wantPos: 10, wantMsg: "expected 'like' after 'not'"},
		{name: "dangling and", input: "age > 1 and", wantPos: 12, wantMsg: "expected field name or '('"},
		{name: "single equals", input: "age = 1", wantPos: 5, wantMsg: "use '=='"},
		{name: "trailing dot", input: "address. == 1", wantPos: 10, wantMsg: "expected nested field name"},
		{name: "unterminated", input: "name == 'Ali", wantPos: 9, wantMsg: "unterminated string literal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("Parse() error = %v, want *Error", err)
			}
			if perr.Pos != tt.wantPos {
				t.Errorf("Pos = %d, want %d (%v)", perr.Pos, tt.wantPos, perr)
			}
			if !strings.Contains(perr.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want substring %q", perr.Msg, tt.wantMsg)
			}
		})
	}
}

func TestParse_Limits(t *testing.T) {
	t.Run("query too long", func(t *testing.T) {
		query := "name == '" + strings.Repeat("x", types.MaxQueryLength) + "'"
		_, err := Parse(query)
		if !errors.Is(err, types.ErrQueryTooLong) {
			t.Errorf("Parse() error = %v, want ErrQueryTooLong", err)
		}
	})

	t.Run("nesting at limit", func(t *testing.T) {
		depth := types.MaxExpressionDepth
		query := strings.Repeat("(", depth) + "a == 1" + strings.Repeat(")", depth)
		if _, err := Parse(query); err != nil {
			t.Errorf("Parse() error = %v, want nil", err)
		}
	})

	t.Run("nesting too deep", func(t *testing.T) {
		depth := types.MaxExpressionDepth + 1
		query := strings.Repeat("(", depth) + "a == 1" + strings.Repeat(")", depth)
		_, err := Parse(query)
		if !errors.Is(err, types.ErrExpressionTooDeep) {
			t.Errorf("Parse() error = %v, want ErrExpressionTooDeep", err)
		}
	})

	t.Run("path too deep", func(t *testing.T) {
		_, err := Parse("a.b.c == 1")
		if !errors.Is(err, types.ErrPathTooDeep) {
			t.Errorf("Parse() error = %v, want ErrPathTooDeep", err)
		}
	})
}

func TestInspect(t *testing.T) {
	node, err := Parse("(a == 1 or b.c == 2) and d like 'x'")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	var fields []string
	Inspect(node, func(n Node) bool {
		if f, ok := n.(*FieldRef); ok {
			fields = append(fields, f.Path())
		}
		return true
	})

	want := []string{"a", "b.c", "d"}
	if strings.Join(fields, ",") != strings.Join(want, ",") {
		t.Errorf("fields = %v, want %v", fields, want)
	}

	count := 0
	Inspect(node, func(n Node) bool {
		count++
		_, isGroup := n.(*Group)
		return !isGroup
	})
	// and, group, comparison d, field d, constant 'x'
	if count != 5 {
		t.Errorf("visited %d nodes with group pruned, want 5", count)
	}
}
