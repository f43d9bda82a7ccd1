// Package domain contains the types shared by the filter compilation engine.
//
// A request carries an ordered list of FilterCondition values. Each condition
// relates to the one before it through its Logical connector: OR starts a new
// group, AND (the default) extends the current one. The engine turns that list,
// together with the live column types of the target table, into a QueryPlan.
package domain

import (
	"strings"
)

// Operator is a filter comparison operator as sent by clients.
type Operator string

const (
	// Eq checks equality.
	Eq Operator = "="
	// NotEq checks inequality.
	NotEq Operator = "!="
	// Gt checks if the column is greater than the value.
	Gt Operator = ">"
	// Gte checks if the column is greater than or equal to the value.
	Gte Operator = ">="
	// Lt checks if the column is less than the value.
	Lt Operator = "<"
	// Lte checks if the column is less than or equal to the value.
	Lte Operator = "<="
	// StartsWith matches a prefix on text columns.
	StartsWith Operator = "startswith"
	// EndsWith matches a suffix on text columns.
	EndsWith Operator = "endswith"
	// Contains matches a substring on text columns.
	Contains Operator = "contains"
	// Between checks an inclusive range and requires a Range value.
	Between Operator = "between"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{Eq, NotEq, Gt, Gte, Lt, Lte, StartsWith, EndsWith, Contains, Between}

// Valid reports whether o is one of the supported operators.
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// IsPattern reports whether o compiles to a LIKE predicate.
func (o Operator) IsPattern() bool {
	return o == StartsWith || o == EndsWith || o == Contains
}

// Logical relates a condition to the previous one in the list.
type Logical string

const (
	// AND extends the current group.
	AND Logical = "AND"
	// OR closes the current group and starts a new one.
	OR Logical = "OR"
)

// ParseLogical normalizes a connector. Empty input means AND.
func ParseLogical(s string) (Logical, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return AND, true
	case "OR":
		return OR, true
	default:
		return "", false
	}
}

// FilterCondition is one user-specified predicate.
type FilterCondition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
	Logical  Logical  `json:"logical,omitempty"`
}

// StartsGroup reports whether the condition at position index opens a new
// OR-branch. The first condition never does: there is nothing before it.
func (c FilterCondition) StartsGroup(index int) bool {
	return c.Logical == OR && index > 0
}

// ColumnSchema is one (column_name, data_type) pair from the live catalog.
type ColumnSchema struct {
	Name     string `json:"column_name" msgpack:"column_name"`
	DataType string `json:"data_type" msgpack:"data_type"`
}

// TableSchema is the ordered column list of a table.
type TableSchema []ColumnSchema

// TypeOf returns the declared type of column.
func (s TableSchema) TypeOf(column string) (string, bool) {
	for _, c := range s {
		if c.Name == column {
			return c.DataType, true
		}
	}
	return "", false
}

// Names returns the column names in catalog order.
func (s TableSchema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// SQLDialect identifies the SQL flavour a statement is rendered for.
type SQLDialect string

const (
	// PostgreSQL dialect ($n placeholders, double-quoted identifiers).
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect (? placeholders, backtick identifiers).
	MySQL SQLDialect = "mysql"
	// SQLite dialect (? placeholders, double-quoted identifiers).
	SQLite SQLDialect = "sqlite"
	// DuckDB dialect (? placeholders, double-quoted identifiers).
	DuckDB SQLDialect = "duckdb"
)

// ParseDialect maps provider names, including the aliases accepted by the
// configuration, to a dialect.
func ParseDialect(provider string) (SQLDialect, bool) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "postgres", "postgresql", "pg":
		return PostgreSQL, true
	case "mysql", "mariadb":
		return MySQL, true
	case "sqlite", "sqlite3":
		return SQLite, true
	case "duckdb":
		return DuckDB, true
	default:
		return "", false
	}
}
