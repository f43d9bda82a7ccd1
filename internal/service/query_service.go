// Package service implements the query service behind the HTTP API and CLI.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/appri/incidentdb/internal/cache"
	"github.com/appri/incidentdb/internal/core/catalog"
	"github.com/appri/incidentdb/internal/core/filter/assembler"
	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/appri/incidentdb/internal/debug"
	"github.com/appri/incidentdb/internal/resultset"
)

// DefaultPreviewLimit is the number of rows returned by Preview.
const DefaultPreviewLimit = 20

// Executor runs statements. Database adapters satisfy it.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	GetDialect() domain.SQLDialect
}

// QueryRequest is a table query as sent by clients.
type QueryRequest struct {
	Table    string                   `json:"table" msgpack:"table"`
	Columns  []string                 `json:"columns" msgpack:"columns"`
	Filters  []domain.FilterCondition `json:"filters" msgpack:"-"`
	FileType string                   `json:"file_type,omitempty" msgpack:"file_type,omitempty"`
}

// Validate checks required fields.
func (r QueryRequest) Validate() error {
	if strings.TrimSpace(r.Table) == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidRequest)
	}
	return nil
}

// PreviewResult is the answer to a preview query.
type PreviewResult struct {
	TotalCount  int64                     `json:"totalCount" msgpack:"totalCount"`
	PreviewData []resultset.Record        `json:"previewData" msgpack:"previewData"`
	Dropped     []domain.DroppedCondition `json:"dropped,omitempty" msgpack:"dropped,omitempty"`
}

// Statement is a rendered statement for display.
type Statement struct {
	SQL  string `json:"sql" msgpack:"sql"`
	Args []any  `json:"args" msgpack:"args"`
}

// Explanation shows what a request compiles to without running it.
type Explanation struct {
	Table    string                    `json:"table" msgpack:"table"`
	Dialect  domain.SQLDialect         `json:"dialect" msgpack:"dialect"`
	Preview  Statement                 `json:"preview" msgpack:"preview"`
	Download Statement                 `json:"download" msgpack:"download"`
	Count    Statement                 `json:"count" msgpack:"count"`
	Groups   []string                  `json:"groups" msgpack:"groups"`
	Dropped  []domain.DroppedCondition `json:"dropped,omitempty" msgpack:"dropped,omitempty"`
}

// QueryService orchestrates schema lookup, compilation and execution.
type QueryService struct {
	db           Executor
	catalog      catalog.Provider
	asm          *assembler.Assembler
	plans        *cache.LRU[domain.QueryPlan]
	previewLimit int
}

// Option configures a QueryService.
type Option func(*QueryService)

// WithPreviewLimit sets how many rows Preview returns.
func WithPreviewLimit(n int) Option {
	return func(s *QueryService) {
		if n > 0 {
			s.previewLimit = n
		}
	}
}

// WithPlanCache caches compiled plans. A non-positive size disables caching.
func WithPlanCache(size int, ttl time.Duration) Option {
	return func(s *QueryService) {
		if size > 0 {
			s.plans = cache.NewLRU[domain.QueryPlan](size, ttl)
		} else {
			s.plans = nil
		}
	}
}

// NewQueryService creates a new query service.
func NewQueryService(db Executor, provider catalog.Provider, opts ...Option) *QueryService {
	s := &QueryService{
		db:           db,
		catalog:      provider,
		asm:          assembler.New(db.GetDialect()),
		previewLimit: DefaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns every table with its columns.
func (s *QueryService) Schema(ctx context.Context) (map[string]domain.TableSchema, error) {
	schema, err := s.catalog.Schema(ctx)
	if err != nil {
		return nil, &QueryError{Operation: "schema", Cause: err}
	}
	return schema, nil
}

// Preview runs the annotated query and returns the first rows plus the total
// number of matches.
func (s *QueryService) Preview(ctx context.Context, req QueryRequest) (*PreviewResult, error) {
	plan, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}

	count := s.asm.Count(req.Table, plan)
	total, err := s.count(ctx, req.Table, count)
	if err != nil {
		return nil, err
	}

	q := s.asm.Preview(req.Table, req.Columns, plan, s.previewLimit)
	res, err := s.run(ctx, "preview", req.Table, q)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		TotalCount:  total,
		PreviewData: res.Records(),
		Dropped:     plan.Dropped,
	}, nil
}

// Download runs the export query.
func (s *QueryService) Download(ctx context.Context, req QueryRequest) (*resultset.Result, error) {
	plan, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "download", req.Table, s.asm.Download(req.Table, req.Columns, plan))
}

// Explain compiles the request against the live schema without running it.
func (s *QueryService) Explain(ctx context.Context, req QueryRequest) (*Explanation, error) {
	plan, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}

	groups := make([]string, len(plan.Groups))
	for i, g := range plan.Groups {
		groups[i] = g.Description()
	}
	preview := s.asm.Preview(req.Table, req.Columns, plan, s.previewLimit)
	download := s.asm.Download(req.Table, req.Columns, plan)
	count := s.asm.Count(req.Table, plan)

	return &Explanation{
		Table:    req.Table,
		Dialect:  s.asm.Dialect(),
		Preview:  Statement{SQL: preview.SQL, Args: nonNil(preview.Args)},
		Download: Statement{SQL: download.SQL, Args: nonNil(download.Args)},
		Count:    Statement{SQL: count.SQL, Args: nonNil(count.Args)},
		Groups:   groups,
		Dropped:  plan.Dropped,
	}, nil
}

// PlanCacheStats returns plan cache statistics; ok is false without a cache.
func (s *QueryService) PlanCacheStats() (cache.Stats, bool) {
	if s.plans == nil {
		return cache.Stats{}, false
	}
	return s.plans.GetStats(), true
}

// compile reads the live schema of the table and builds its plan. The schema
// is part of the cache key, so a cached plan never outlives a schema change.
func (s *QueryService) compile(ctx context.Context, req QueryRequest) (domain.QueryPlan, error) {
	if err := req.Validate(); err != nil {
		return domain.QueryPlan{}, err
	}

	schema, err := s.catalog.Columns(ctx, req.Table)
	if err != nil {
		return domain.QueryPlan{}, &QueryError{Operation: "schema", Table: req.Table, Cause: err}
	}

	var key string
	if s.plans != nil {
		key, err = cache.Key("plan:"+req.Table, s.asm.Dialect(), req.Filters, schema)
		if err == nil {
			if plan, ok := s.plans.Get(key); ok {
				return plan, nil
			}
		} else {
			debug.Debug("plan cache key failed", "error", err)
		}
	}

	plan := s.asm.Compile(req.Filters, schema)
	for _, d := range plan.Dropped {
		debug.Warn("dropping filter condition",
			"table", req.Table, "index", d.Index, "column", d.Column, "reason", d.Reason)
	}
	if len(req.Filters) > 0 && plan.IsEmpty() {
		debug.Info("no filter compiled, running unfiltered", "table", req.Table, "filters", len(req.Filters))
	}

	if s.plans != nil && key != "" {
		s.plans.Set(key, plan)
	}
	return plan, nil
}

func (s *QueryService) run(ctx context.Context, op, table string, q *assembler.Query) (*resultset.Result, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, &QueryError{Operation: op, Table: table, Query: q.SQL, Cause: err}
	}
	res, err := resultset.Scan(rows)
	if err != nil {
		return nil, &QueryError{Operation: op, Table: table, Query: q.SQL, Cause: err}
	}
	debug.Debug("query executed", "op", op, "table", table, "rows", res.Len(), "duration", time.Since(start))
	return res, nil
}

func (s *QueryService) count(ctx context.Context, table string, q *assembler.Query) (int64, error) {
	res, err := s.run(ctx, "count", table, q)
	if err != nil {
		return 0, err
	}
	if res.Len() != 1 || len(res.Rows[0]) != 1 {
		return 0, &QueryError{Operation: "count", Table: table, Query: q.SQL, Cause: fmt.Errorf("unexpected count result shape")}
	}
	switch n := res.Rows[0][0].(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		var v int64
		if _, err := fmt.Sscan(n, &v); err != nil {
			return 0, &QueryError{Operation: "count", Table: table, Query: q.SQL, Cause: err}
		}
		return v, nil
	default:
		return 0, &QueryError{Operation: "count", Table: table, Query: q.SQL, Cause: fmt.Errorf("unexpected count type %T", n)}
	}
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
