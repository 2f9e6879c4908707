package types

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"
)

// EmployeeType classifies an employee. Values are stored as their ordinal.
type EmployeeType uint8

const (
	EmployeeTypeManager  EmployeeType = 1
	EmployeeTypeEmployee EmployeeType = 2
)

var employeeTypeNames = map[EmployeeType]string{
	EmployeeTypeManager:  "Manager",
	EmployeeTypeEmployee: "Employee",
}

// EnumMembers returns the member names and ordinals of EmployeeType.
func (EmployeeType) EnumMembers() map[string]int64 {
	members := make(map[string]int64, len(employeeTypeNames))
	for v, name := range employeeTypeNames {
		members[name] = int64(v)
	}
	return members
}

func (t EmployeeType) String() string {
	if name, ok := employeeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EmployeeType(%d)", uint8(t))
}

// ParseEmployeeType matches s case-insensitively against the member names.
func ParseEmployeeType(s string) (EmployeeType, error) {
	for v, name := range employeeTypeNames {
		if strings.EqualFold(name, s) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown employee type %q", s)
}

// Address is the nested part of an Employee record.
type Address struct {
	City    string
	Country string
	Zip     int
}

// Employee is the record type served by the CLI and the filter API.
type Employee struct {
	Age              int
	Name             string
	BirthDate        civil.Date
	RegisterDateTime time.Time
	BedTime          civil.Time
	WorkingDuration  time.Duration
	AccountBalance   apd.Decimal
	EmployeeType     EmployeeType
	Address          *Address
}
