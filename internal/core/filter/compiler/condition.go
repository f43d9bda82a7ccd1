// Package compiler compiles filter conditions into parameterized SQL.
//
// Fragments use '?' placeholders. Their final numbering depends on where the
// fragment lands in a statement, so rebinding is left to the assembler.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/appri/incidentdb/internal/core/filter/coerce"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// ErrInvalidCondition marks a condition that is dropped from the plan.
var ErrInvalidCondition = errors.New("invalid filter condition")

// Quoter renders an identifier for the target dialect.
type Quoter func(name string) string

// QuoteIdent double-quotes an identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var sqlOperators = map[domain.Operator]string{
	domain.Eq:         "=",
	domain.NotEq:      "!=",
	domain.Gt:         ">",
	domain.Gte:        ">=",
	domain.Lt:         "<",
	domain.Lte:        "<=",
	domain.StartsWith: "LIKE",
	domain.EndsWith:   "LIKE",
	domain.Contains:   "LIKE",
}

// DropError explains why a condition was left out.
type DropError struct {
	Column string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *DropError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Column, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Column, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *DropError) Unwrap() error { return e.Cause }

// Is reports ErrInvalidCondition for every drop.
func (e *DropError) Is(target error) bool { return target == ErrInvalidCondition }

func drop(column, reason string, cause error) error {
	return &DropError{Column: column, Reason: reason, Cause: cause}
}

// CompileCondition compiles one condition against the declared type of its
// column. A non-nil error means the condition must be dropped; it always
// matches ErrInvalidCondition.
func CompileCondition(cond domain.FilterCondition, columnType string, quote Quoter) (domain.Predicate, error) {
	if quote == nil {
		quote = QuoteIdent
	}
	col := quote(cond.Column)

	if cond.Value.Kind() == domain.KindMissing {
		return domain.Predicate{}, drop(cond.Column, "missing value", nil)
	}

	if cond.Operator == domain.Between {
		low, high, ok := cond.Value.AsRange()
		if !ok {
			return domain.Predicate{}, drop(cond.Column, "between requires exactly two values", nil)
		}
		lowParam, err := coerce.Coerce(low, columnType)
		if err != nil {
			return domain.Predicate{}, drop(cond.Column, "lower bound", err)
		}
		highParam, err := coerce.Coerce(high, columnType)
		if err != nil {
			return domain.Predicate{}, drop(cond.Column, "upper bound", err)
		}
		return domain.Predicate{
			SQL:         col + " BETWEEN ? AND ?",
			Params:      []any{lowParam, highParam},
			Description: fmt.Sprintf("%s: %s / %s", cond.Column, low, high),
		}, nil
	}

	sqlOp, ok := sqlOperators[cond.Operator]
	if !ok {
		return domain.Predicate{}, drop(cond.Column, fmt.Sprintf("unsupported operator %q", cond.Operator), nil)
	}
	raw, ok := cond.Value.AsSingle()
	if !ok {
		return domain.Predicate{}, drop(cond.Column, fmt.Sprintf("operator %s requires a single value", cond.Operator), nil)
	}

	pred := domain.Predicate{Description: fmt.Sprintf("%s: %s", cond.Column, raw)}

	if coerce.IsText(columnType) {
		pred.SQL = fmt.Sprintf("UPPER(%s) %s ?", col, sqlOp)
		pred.Params = []any{pattern(cond.Operator, strings.ToUpper(raw))}
		return pred, nil
	}

	// Pattern operators on non-text columns keep LIKE but get no wildcards.
	param, err := coerce.Coerce(raw, columnType)
	if err != nil {
		return domain.Predicate{}, drop(cond.Column, "value", err)
	}
	pred.SQL = fmt.Sprintf("%s %s ?", col, sqlOp)
	pred.Params = []any{param}
	return pred, nil
}

func pattern(op domain.Operator, value string) string {
	switch op {
	case domain.StartsWith:
		return value + "%"
	case domain.EndsWith:
		return "%" + value
	case domain.Contains:
		return "%" + value + "%"
	default:
		return value
	}
}
