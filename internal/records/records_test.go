package records

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/solatis/spelfilter/internal/types"
)

const sampleYAML = `
- name: Ali
  age: 50
  birthDate: "1975-03-09"
  registerDateTime: "2020-06-01T09:30:00Z"
  bedTime: "22:30"
  workingDuration: 8h30m
  accountBalance: "1500.25"
  employeeType: manager
  address:
    city: Tehran
    country: Iran
    zip: 14155
- Name: Sara
  AGE: 31
  employeeType: Employee
`

func TestEmployeesFromList_YAML(t *testing.T) {
	var list []any
	if err := yaml.Unmarshal([]byte(sampleYAML), &list); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	got, err := EmployeesFromList(list)
	if err != nil {
		t.Fatalf("EmployeesFromList() error = %v, want nil", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(EmployeesFromList()) = %d, want 2", len(got))
	}

	ali := got[0]
	if ali.Name != "Ali" || ali.Age != 50 {
		t.Errorf("Name, Age = %s, %d, want Ali, 50", ali.Name, ali.Age)
	}
	if ali.BirthDate != (civil.Date{Year: 1975, Month: time.March, Day: 9}) {
		t.Errorf("BirthDate = %v", ali.BirthDate)
	}
	if !ali.RegisterDateTime.Equal(time.Date(2020, time.June, 1, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("RegisterDateTime = %v", ali.RegisterDateTime)
	}
	if ali.BedTime != (civil.Time{Hour: 22, Minute: 30}) {
		t.Errorf("BedTime = %v", ali.BedTime)
	}
	if ali.WorkingDuration != 8*time.Hour+30*time.Minute {
		t.Errorf("WorkingDuration = %v", ali.WorkingDuration)
	}
	if ali.AccountBalance.Cmp(apd.New(150025, -2)) != 0 {
		t.Errorf("AccountBalance = %s", ali.AccountBalance.String())
	}
	if ali.EmployeeType != types.EmployeeTypeManager {
		t.Errorf("EmployeeType = %v", ali.EmployeeType)
	}
	if ali.Address == nil || ali.Address.Zip != 14155 || ali.Address.City != "Tehran" {
		t.Errorf("Address = %+v", ali.Address)
	}

	sara := got[1]
	if sara.Name != "Sara" || sara.Age != 31 || sara.Address != nil {
		t.Errorf("Sara = %+v", sara)
	}
}

func TestEmployeeRoundTrip(t *testing.T) {
	balance, _, _ := apd.NewFromString("-12.5")
	in := types.Employee{
		Name:             "Ali",
		Age:              50,
		BirthDate:        civil.Date{Year: 1975, Month: time.March, Day: 9},
		RegisterDateTime: time.Date(2020, time.June, 1, 9, 30, 0, 0, time.UTC),
		BedTime:          civil.Time{Hour: 22, Minute: 30, Second: 15},
		WorkingDuration:  90 * time.Minute,
		AccountBalance:   *balance,
		EmployeeType:     types.EmployeeTypeEmployee,
		Address:          &types.Address{City: "Oslo", Zip: 150},
	}

	out, err := EmployeeFromMap(EmployeeToMap(&in))
	if err != nil {
		t.Fatalf("EmployeeFromMap() error = %v, want nil", err)
	}
	if out.Name != in.Name || out.BirthDate != in.BirthDate || out.BedTime != in.BedTime ||
		out.WorkingDuration != in.WorkingDuration || out.EmployeeType != in.EmployeeType ||
		*out.Address != *in.Address || out.AccountBalance.Cmp(&in.AccountBalance) != 0 ||
		!out.RegisterDateTime.Equal(in.RegisterDateTime) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestEmployeeFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{name: "unknown key", in: map[string]any{"salary": 1}, want: "salary: unknown key"},
		{name: "fractional age", in: map[string]any{"age": 1.5}, want: "age: 1.5 is not an integer"},
		{name: "age as string", in: map[string]any{"age": "50"}, want: "age: expected an integer"},
		{name: "bad date", in: map[string]any{"birthDate": "09/03/1975"}, want: "birthDate:"},
		{name: "bad type", in: map[string]any{"employeeType": "boss"}, want: "employeeType:"},
		{name: "bad address", in: map[string]any{"address": "Oslo"}, want: "address: expected a mapping"},
		{name: "bad address key", in: map[string]any{"address": map[string]any{"street": "x"}}, want: "address: street: unknown key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EmployeeFromMap(tt.in)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("EmployeeFromMap() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestEmployeesFromList_NotAMapping(t *testing.T) {
	if _, err := EmployeesFromList([]any{"x"}); err == nil {
		t.Errorf("EmployeesFromList() error = nil, want error")
	}
}
