// Package coerce converts raw filter literals into native parameter values
// according to a column's declared type.
package coerce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrCoercion is returned when a literal cannot be read as the column's type.
var ErrCoercion = errors.New("coercion failed")

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Family groups declared column types by how their literals are coerced.
type Family uint8

const (
	// Other types pass literals through unchanged.
	Other Family = iota
	// Text types: anything containing "char" or "text".
	Text
	// Numeric types: integer, bigint, smallint, numeric, real, double precision.
	Numeric
	// Temporal types: date and timestamp variants.
	Temporal
)

func (f Family) String() string {
	switch f {
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	case Temporal:
		return "temporal"
	default:
		return "other"
	}
}

var numericTypes = map[string]struct{}{
	"integer":          {},
	"bigint":           {},
	"smallint":         {},
	"numeric":          {},
	"real":             {},
	"double precision": {},
}

// FamilyOf classifies a declared type name. Matching is case-insensitive so
// that catalogs reporting upper-case names (SQLite pragmas) classify the same.
func FamilyOf(columnType string) Family {
	t := strings.ToLower(strings.TrimSpace(columnType))
	if _, ok := numericTypes[t]; ok {
		return Numeric
	}
	if strings.Contains(t, "date") || strings.Contains(t, "timestamp") {
		return Temporal
	}
	if IsText(t) {
		return Text
	}
	return Other
}

// IsText reports whether the declared type is text-like.
func IsText(columnType string) bool {
	t := strings.ToLower(columnType)
	return strings.Contains(t, "char") || strings.Contains(t, "text")
}

// CoercionError describes a literal that does not fit its column type.
type CoercionError struct {
	Value  string
	Type   string
	Family Family
	Cause  error
}

// Error implements the error interface.
func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot read %q as %s (%s): %v", e.Value, e.Type, e.Family, e.Cause)
}

// Unwrap returns the underlying parse error.
func (e *CoercionError) Unwrap() error {
	return e.Cause
}

// Is reports ErrCoercion for every coercion error.
func (e *CoercionError) Is(target error) bool {
	return target == ErrCoercion
}

// Coerce converts raw to the native value implied by columnType.
//
// Numeric literals containing a '.' become float64, the rest int64. Temporal
// literals must be ISO calendar dates and become UTC midnight. Text and
// unrecognized types return raw unchanged.
func Coerce(raw, columnType string) (any, error) {
	family := FamilyOf(columnType)
	switch family {
	case Numeric:
		s := strings.TrimSpace(raw)
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, &CoercionError{Value: raw, Type: columnType, Family: family, Cause: err}
			}
			return f, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, &CoercionError{Value: raw, Type: columnType, Family: family, Cause: err}
		}
		return n, nil
	case Temporal:
		d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
		if err != nil {
			return nil, &CoercionError{Value: raw, Type: columnType, Family: family, Cause: err}
		}
		return d, nil
	default:
		return raw, nil
	}
}
