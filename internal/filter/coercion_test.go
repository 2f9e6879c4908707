// internal/filter/coercion_test.go
package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

func employeeAttr(t *testing.T, name string) *Attribute {
	t.Helper()
	s, err := SchemaOf(reflect.TypeFor[types.Employee]())
	if err != nil {
		t.Fatalf("SchemaOf() error = %v, want nil", err)
	}
	attr, err := s.Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v, want nil", name, err)
	}
	return attr
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		field string
		raw   string
		want  any
	}{
		{"name", " padded ", " padded "},
		{"age", "45", int64(45)},
		{"age", "-7", int64(-7)},
		{"employeetype", "MANAGER", int64(1)},
		{"employeetype", "employee", int64(2)},
		{"birthdate", "2000-1-2", civil.Date{Year: 2000, Month: time.January, Day: 2}},
		{"birthdate", "2000-01-02", civil.Date{Year: 2000, Month: time.January, Day: 2}},
		{"bedtime", "22:30", civil.Time{Hour: 22, Minute: 30}},
		{"bedtime", "7:05 AM", civil.Time{Hour: 7, Minute: 5}},
		{"bedtime", "23:59:59.5", civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 500000000}},
		{"registerdatetime", "2024-03-01T10:00:00Z", time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)},
		{"registerdatetime", "2024-03-01 10:00", time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)},
		{"workingduration", "90m", 90 * time.Minute},
		{"workingduration", "8:30", 8*time.Hour + 30*time.Minute},
		{"workingduration", "1.02:00", 26 * time.Hour},
		{"workingduration", "-0:00:01.25", -(time.Second + 250*time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.raw, func(t *testing.T) {
			attr := employeeAttr(t, tt.field)
			got, err := coerce(attr, &syntax.Constant{Raw: tt.raw})
			if err != nil {
				t.Fatalf("coerce() error = %v, want nil", err)
			}
			if gt, ok := got.(time.Time); ok {
				if !gt.Equal(tt.want.(time.Time)) {
					t.Errorf("coerce() = %v, want %v", gt, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoerce_Decimal(t *testing.T) {
	attr := employeeAttr(t, "accountbalance")
	got, err := coerce(attr, &syntax.Constant{Raw: "12.50"})
	if err != nil {
		t.Fatalf("coerce() error = %v, want nil", err)
	}
	want := apd.New(125, -1)
	if got.(*apd.Decimal).Cmp(want) != 0 {
		t.Errorf("coerce() = %v, want %v", got, want)
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		field   string
		raw     string
		wantErr error
	}{
		{"age", "4.5", types.ErrInvalidLiteral},
		{"age", "", types.ErrInvalidLiteral},
		{"employeetype", "Boss", types.ErrInvalidEnumLiteral},
		{"employeetype", "1", types.ErrInvalidEnumLiteral},
		{"birthdate", "2000-13-01", types.ErrInvalidLiteral},
		{"bedtime", "noon", types.ErrInvalidLiteral},
		{"workingduration", "1:60", types.ErrInvalidLiteral},
		{"workingduration", "x.1:00", types.ErrInvalidLiteral},
		{"workingduration", "1:00:00.", types.ErrInvalidLiteral},
		{"accountbalance", "1,000", types.ErrInvalidLiteral},
		{"address", "x", types.ErrUnsupportedFieldType},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.raw, func(t *testing.T) {
			attr := employeeAttr(t, tt.field)
			_, err := coerce(attr, &syntax.Constant{Raw: tt.raw})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("coerce() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoerce_EnumMessageListsMembers(t *testing.T) {
	attr := employeeAttr(t, "employeetype")
	_, err := coerce(attr, &syntax.Constant{Raw: "Boss"})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("coerce() error = %v, want *CompileError", err)
	}
	if cerr.Literal != "Boss" {
		t.Errorf("Literal = %q, want Boss", cerr.Literal)
	}
	if want := `"Boss" is not a member of types.EmployeeType (members: Employee, Manager)`; cerr.Msg != want {
		t.Errorf("Msg = %q, want %q", cerr.Msg, want)
	}
}
