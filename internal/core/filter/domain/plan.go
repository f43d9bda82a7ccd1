package domain

import "strings"

const (
	// MatchColumn is the alias of the computed annotation column.
	MatchColumn = "Coincidencia de Filtro"
	// UnmatchedLabel is what the annotation shows for rows no branch claims.
	UnmatchedLabel = "Coincidencia no agrupada"
)

// Predicate is one compiled condition.
type Predicate struct {
	SQL         string
	Params      []any
	Description string
}

// CompiledGroup is an AND-joined run of predicates forming one OR-branch.
type CompiledGroup struct {
	Fragments    []string
	Params       []any
	Descriptions []string
}

// Len returns the number of predicates in the group.
func (g CompiledGroup) Len() int { return len(g.Fragments) }

// Branch renders the group as a parenthesized conjunction.
func (g CompiledGroup) Branch() string {
	return "(" + strings.Join(g.Fragments, " AND ") + ")"
}

// Description joins the per-condition descriptions of the group.
func (g CompiledGroup) Description() string {
	return strings.Join(g.Descriptions, "; ")
}

// DroppedCondition records a condition left out of the plan.
type DroppedCondition struct {
	Index  int    `json:"index" msgpack:"index"`
	Column string `json:"column" msgpack:"column"`
	Reason string `json:"reason" msgpack:"reason"`
}

// QueryPlan is the compiled form of a filter list.
//
// CaseParams holds, per group and in group order, the group's own parameters
// followed by its description literal. WhereOnlyParams holds the parameters of
// every compiled condition in original order and is only valid without the
// CASE clause.
type QueryPlan struct {
	WhereSQL        string
	CaseSQL         string
	CaseParams      []any
	WhereOnlyParams []any
	Groups          []CompiledGroup
	Dropped         []DroppedCondition
}

// IsEmpty reports whether no condition compiled. Callers fall back to an
// unfiltered query.
func (p QueryPlan) IsEmpty() bool {
	return p.WhereSQL == ""
}

// PreviewParams returns the parameters of the annotated query: the CASE arms
// precede the WHERE clause in the statement text.
func (p QueryPlan) PreviewParams() []any {
	params := make([]any, 0, len(p.CaseParams)+len(p.WhereOnlyParams))
	params = append(params, p.CaseParams...)
	return append(params, p.WhereOnlyParams...)
}
