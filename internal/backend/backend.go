// Package backend defines the abstract relational query contract the
// engine builds against.
//
// The engine never issues query-language text: it incrementally fills a
// Query value with predicates, sort keys, slicing and annotations, then
// delegates execution. Implementations decide how the plan is actually
// run; the reference implementation lives in backend/memory.
package backend

import "context"

// Op enumerates the comparison operations a predicate can request.
// Case-insensitive variants exist for the string operations; the engine
// selects between the pair according to the active case flag.
type Op int

const (
	OpEq Op = iota
	OpIEq
	OpGt
	OpGte
	OpLt
	OpLte
	OpStartsWith
	OpIStartsWith
	OpEndsWith
	OpIEndsWith
	OpContains
	OpIContains
)

// String returns the lookup name, mirroring a SQL-ish spelling.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpIEq:
		return "ieq"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpStartsWith:
		return "startswith"
	case OpIStartsWith:
		return "istartswith"
	case OpEndsWith:
		return "endswith"
	case OpIEndsWith:
		return "iendswith"
	case OpContains:
		return "contains"
	case OpIContains:
		return "icontains"
	default:
		return "?"
	}
}

// Func enumerates the aggregation functions usable in annotations and
// aggregates.
type Func int

const (
	FuncCount Func = iota
	FuncMax
	FuncMin
	FuncAvg
	FuncSum
	FuncStdDev
	FuncVar
)

// Predicate is one compiled filter condition. Path is the sequence of
// relation hops ending in a scalar field, a relation name (meaning its
// primary key) or an annotation target. Exclude negates the predicate at
// the query level rather than comparison level, which is observable for
// NULL values: an excluded equality keeps NULL rows.
type Predicate struct {
	Path    []string
	Op      Op
	Value   any
	Exclude bool
}

// SortKey is a resolved ordering specification.
type SortKey struct {
	Path []string
	Desc bool
}

// Annotation is a per-row computed aggregate. Non-delayed annotations are
// computed before the main query's filtering, delayed ones after it (and
// therefore see only related rows surviving the shared relation
// traversal). Filters are scoped to the query's root entity.
type Annotation struct {
	Path    []string
	As      string
	Fn      Func
	Filters []Predicate
	Delayed bool
}

// RelatedSpec narrows the related rows fetched for a joined relation.
// Filters and sort keys are scoped to the related entity. Limit 0 means
// no limit.
type RelatedSpec struct {
	Filters []Predicate
	Sort    []SortKey
	Start   int
	Limit   int
}

// Record is one materialized row. Field covers scalar fields and
// annotation values; RelatedKeys returns the primary keys behind a
// relation (at most one element for to-one relations).
type Record interface {
	Entity() string
	Field(name string) (any, bool)
	RelatedKeys(relation string) []any
}

// Query is the mutable abstract plan for one entity. All predicates are
// conjunctive. Limit 0 means no limit. Count and Aggregate operate on
// the filtered, unsliced candidate set.
type Query interface {
	AddPredicate(p Predicate)
	AddAnnotation(a Annotation)
	AddSort(k SortKey)
	SetOffset(start int)
	SetLimit(limit int)
	SetDistinct(on bool)
	Execute(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Aggregate(ctx context.Context, fn Func, path []string) (any, error)
}

// Store produces queries and resolves related rows during row
// serialization.
type Store interface {
	Query(entity string) (Query, error)
	Related(ctx context.Context, rec Record, relation string, spec RelatedSpec) ([]Record, error)
}
