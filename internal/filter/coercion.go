// internal/filter/coercion.go
package filter

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cockroachdb/apd/v3"

	"github.com/solatis/spelfilter/internal/syntax"
	"github.com/solatis/spelfilter/internal/types"
)

/*
 * Literal coercion.
 *
 * A constant has no type of its own. It is converted to the type of the
 * field it is compared against, so '45' and 45 coerce identically and the
 * same token may become a string, an int or a date depending on context.
 *
 * Per kind:
 *   - string: raw text verbatim
 *   - enum: case-insensitive member name -> ordinal
 *   - numeric: strconv at the field's bit size (no implicit narrowing)
 *   - decimal: apd.NewFromString
 *   - datetime/date/time: fixed layout lists, first match wins
 *   - duration: time.ParseDuration or clock form [-][d.]h:mm[:ss[.f]]
 *   - parseable: encoding.TextUnmarshaler on a new value
 *
 * Results are plain Go values (string, int64, uint64, float64, bool,
 * *apd.Decimal, time.Time, civil.Date, civil.Time, time.Duration) or a
 * reflect.Value for parseable types.
 */

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// "1" and "2" accept one or two digits, so 2000-1-1 and 2000-01-01 both parse.
const dateLayout = "2006-1-2"

var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.999999999",
	"3:04 PM",
	"3:04:05 PM",
}

// coerce converts the constant to the attribute's native representation.
func coerce(attr *Attribute, c *syntax.Constant) (any, error) {
	raw := c.Raw

	switch attr.kind {
	case kindString:
		return raw, nil

	case kindEnum:
		ord, ok := attr.members[foldName(raw)]
		if !ok {
			return nil, &CompileError{
				Kind:    types.ErrInvalidEnumLiteral,
				Field:   attr.Name,
				Literal: raw,
				Type:    attr.Type.String(),
				Msg:     fmt.Sprintf("%q is not a member of %s (members: %s)", raw, attr.Type, memberList(attr)),
			}
		}
		return ord, nil

	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return b, nil

	case kindInt:
		n, err := strconv.ParseInt(raw, 10, attr.Type.Bits())
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return n, nil

	case kindUint:
		n, err := strconv.ParseUint(raw, 10, attr.Type.Bits())
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return n, nil

	case kindFloat:
		f, err := strconv.ParseFloat(raw, attr.Type.Bits())
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return f, nil

	case kindDecimal:
		d, _, err := apd.NewFromString(raw)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return d, nil

	case kindDateTime:
		t, err := parseLayouts(raw, dateTimeLayouts)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return t, nil

	case kindDate:
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return civil.DateOf(t), nil

	case kindTimeOfDay:
		t, err := parseLayouts(raw, timeOfDayLayouts)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return civil.TimeOf(t), nil

	case kindDuration:
		d, err := parseDuration(raw)
		if err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return d, nil

	case kindParseable:
		ptr := reflect.New(attr.Type)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return nil, invalidLiteral(attr, raw, err)
		}
		return ptr.Elem(), nil

	case kindStruct, kindUnsupported:
		return nil, unsupportedType(attr)

	default:
		return nil, unsupportedType(attr)
	}
}

func memberList(attr *Attribute) string {
	names := make([]string, 0, len(attr.members))
	for name := range reflect.Zero(attr.Type).Interface().(Enum).EnumMembers() {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseLayouts returns the first successful parse. The error of the first
// layout is reported since it names the canonical format.
func parseLayouts(raw string, layouts []string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// parseDuration accepts Go duration syntax (8h30m) and clock syntax (8:30:00, 1.02:00).
func parseDuration(raw string) (time.Duration, error) {
	if !strings.Contains(raw, ":") {
		return time.ParseDuration(raw)
	}
	return parseClockDuration(raw)
}

// parseClockDuration parses [-][d.]h:mm[:ss[.fffffffff]].
func parseClockDuration(raw string) (time.Duration, error) {
	s := raw
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var days int64
	colon := strings.IndexByte(s, ':')
	if dot := strings.IndexByte(s[:colon], '.'); dot >= 0 {
		d, err := strconv.ParseInt(s[:dot], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count in %q", raw)
		}
		days = d
		s = s[dot+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock duration %q", raw)
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours in %q", raw)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", raw)
	}

	var seconds, nanos int64
	if len(parts) == 3 {
		sec, frac, hasFrac := strings.Cut(parts[2], ".")
		seconds, err = strconv.ParseInt(sec, 10, 64)
		if err != nil || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("invalid seconds in %q", raw)
		}
		if hasFrac {
			if frac == "" || len(frac) > 9 {
				return 0, fmt.Errorf("invalid fraction in %q", raw)
			}
			nanos, err = strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
			if err != nil || nanos < 0 {
				return 0, fmt.Errorf("invalid fraction in %q", raw)
			}
		}
	}

	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(nanos)
	if neg {
		total = -total
	}
	return total, nil
}
