// Package records converts employee records to and from generic maps, the
// shape shared by YAML/JSON record files and the API's structpb messages.
//
// Keys are matched case-insensitively on input and written in lowerCamel
// case on output. Values use the same literal forms the filter language
// accepts: dates as 2006-01-02, clock times as 15:04:05, durations in Go
// syntax, decimals as strings, employee types by member name.
package records

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/solatis/spelfilter/internal/types"
)

// EmployeeToMap returns the map form of e.
func EmployeeToMap(e *types.Employee) map[string]any {
	m := map[string]any{
		"name":             e.Name,
		"age":              e.Age,
		"birthDate":        e.BirthDate.String(),
		"registerDateTime": e.RegisterDateTime.UTC().Format(time.RFC3339Nano),
		"bedTime":          e.BedTime.String(),
		"workingDuration":  e.WorkingDuration.String(),
		"accountBalance":   e.AccountBalance.String(),
		"employeeType":     e.EmployeeType.String(),
	}
	if a := e.Address; a != nil {
		m["address"] = map[string]any{
			"city":    a.City,
			"country": a.Country,
			"zip":     a.Zip,
		}
	}
	return m
}

// EmployeesToList returns the list form of records.
func EmployeesToList(records []types.Employee) []any {
	out := make([]any, len(records))
	for i := range records {
		out[i] = EmployeeToMap(&records[i])
	}
	return out
}

// EmployeeFromMap decodes one record. Unknown keys are rejected.
func EmployeeFromMap(m map[string]any) (types.Employee, error) {
	var e types.Employee
	for key, val := range m {
		var err error
		switch strings.ToLower(key) {
		case "name":
			e.Name, err = asString(val)
		case "age":
			e.Age, err = asInt(val)
		case "birthdate":
			var s string
			if s, err = asString(val); err == nil {
				e.BirthDate, err = civil.ParseDate(s)
			}
		case "registerdatetime":
			e.RegisterDateTime, err = asTime(val)
		case "bedtime":
			var s string
			if s, err = asString(val); err == nil {
				e.BedTime, err = parseClock(s)
			}
		case "workingduration":
			var s string
			if s, err = asString(val); err == nil {
				e.WorkingDuration, err = time.ParseDuration(s)
			}
		case "accountbalance":
			var s string
			if s, err = asNumberString(val); err == nil {
				_, _, err = e.AccountBalance.SetString(s)
			}
		case "employeetype":
			var s string
			if s, err = asString(val); err == nil {
				e.EmployeeType, err = types.ParseEmployeeType(s)
			}
		case "address":
			e.Address, err = addressFromValue(val)
		default:
			err = fmt.Errorf("unknown key")
		}
		if err != nil {
			return types.Employee{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return e, nil
}

// EmployeesFromList decodes a list of record maps.
func EmployeesFromList(list []any) ([]types.Employee, error) {
	out := make([]types.Employee, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected a mapping, got %T", i, item)
		}
		e, err := EmployeeFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func addressFromValue(val any) (*types.Address, error) {
	if val == nil {
		return nil, nil
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", val)
	}

	a := &types.Address{}
	for key, v := range m {
		var err error
		switch strings.ToLower(key) {
		case "city":
			a.City, err = asString(v)
		case "country":
			a.Country, err = asString(v)
		case "zip":
			a.Zip, err = asInt(v)
		default:
			err = fmt.Errorf("unknown key")
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return a, nil
}

// parseClock accepts 15:04:05[.fff] and the shorter 15:04.
func parseClock(s string) (civil.Time, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return civil.TimeOf(t), nil
	}
	return civil.ParseTime(s)
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

// asInt accepts the integer types YAML produces and the float64 that JSON
// and structpb produce, as long as it is integral.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fmt.Errorf("%d overflows int", n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt || n < math.MinInt {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// asNumberString accepts a decimal as a string or a plain number.
func asNumberString(v any) (string, error) {
	switch n := v.(type) {
	case string:
		return n, nil
	case int:
		return fmt.Sprint(n), nil
	case float64:
		return fmt.Sprint(n), nil
	default:
		return "", fmt.Errorf("expected a decimal string, got %T", v)
	}
}

// asTime accepts RFC 3339 strings and the time.Time values YAML decodes
// timestamps into.
func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("expected a timestamp, got %T", v)
	}
}
