package compiler

import (
	"errors"
	"strings"

	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// Option configures Build.
type Option func(*options)

type options struct {
	quote Quoter
}

// WithQuoter sets the identifier quoter. Defaults to QuoteIdent.
func WithQuoter(q Quoter) Option {
	return func(o *options) {
		if q != nil {
			o.quote = q
		}
	}
}

// fold is the accumulator threaded through the condition list. Each step
// returns a new value; closed groups are never touched again.
type fold struct {
	closed    []domain.CompiledGroup
	open      domain.CompiledGroup
	whereOnly []any
	dropped   []domain.DroppedCondition
}

func (f fold) flush() fold {
	if f.open.Len() == 0 {
		return f
	}
	f.closed = append(f.closed[:len(f.closed):len(f.closed)], f.open)
	f.open = domain.CompiledGroup{}
	return f
}

func (f fold) skip(index int, cond domain.FilterCondition, reason string) fold {
	f.dropped = append(f.dropped[:len(f.dropped):len(f.dropped)], domain.DroppedCondition{
		Index:  index,
		Column: cond.Column,
		Reason: reason,
	})
	return f
}

func (f fold) extend(p domain.Predicate) fold {
	f.open = domain.CompiledGroup{
		Fragments:    appendCopy(f.open.Fragments, p.SQL),
		Params:       appendCopy(f.open.Params, p.Params...),
		Descriptions: appendCopy(f.open.Descriptions, p.Description),
	}
	f.whereOnly = appendCopy(f.whereOnly, p.Params...)
	return f
}

func appendCopy[T any](s []T, items ...T) []T {
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

// Build compiles an ordered filter list against a schema snapshot.
//
// Conditions on unknown columns and conditions that fail to compile are
// skipped and reported in QueryPlan.Dropped; a skipped condition never opens
// or closes a group. An empty plan means the caller must run unfiltered.
func Build(filters []domain.FilterCondition, schema domain.TableSchema, opts ...Option) domain.QueryPlan {
	o := options{quote: QuoteIdent}
	for _, opt := range opts {
		opt(&o)
	}

	var acc fold
	for i, cond := range filters {
		columnType, ok := schema.TypeOf(cond.Column)
		if !ok {
			acc = acc.skip(i, cond, "unknown column")
			continue
		}
		pred, err := CompileCondition(cond, columnType, o.quote)
		if err != nil {
			reason := err.Error()
			var de *DropError
			if errors.As(err, &de) {
				reason = de.Reason
				if de.Cause != nil {
					reason += ": " + de.Cause.Error()
				}
			}
			acc = acc.skip(i, cond, reason)
			continue
		}
		if cond.StartsGroup(i) {
			acc = acc.flush()
		}
		acc = acc.extend(pred)
	}
	acc = acc.flush()

	return render(acc, o.quote)
}

func render(acc fold, quote Quoter) domain.QueryPlan {
	plan := domain.QueryPlan{Dropped: acc.dropped}
	if len(acc.closed) == 0 {
		return plan
	}

	branches := make([]string, len(acc.closed))
	arms := make([]string, len(acc.closed))
	var caseParams []any
	for i, g := range acc.closed {
		branches[i] = g.Branch()
		arms[i] = "WHEN " + branches[i] + " THEN ?"
		caseParams = append(caseParams, g.Params...)
		caseParams = append(caseParams, g.Description())
	}

	plan.Groups = acc.closed
	plan.WhereSQL = "WHERE " + strings.Join(branches, " OR ")
	plan.CaseSQL = "(CASE " + strings.Join(arms, " ") +
		" ELSE '" + domain.UnmatchedLabel + "' END) AS " + quote(domain.MatchColumn)
	plan.CaseParams = caseParams
	plan.WhereOnlyParams = acc.whereOnly
	return plan
}
