package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/genq/internal/backend"
	"github.com/matthewbaird/genq/internal/schema"
)

type query struct {
	st       *Store
	et       *schema.EntityType
	preds    []backend.Predicate
	anns     []backend.Annotation
	sorts    []backend.SortKey
	start    int
	limit    int // 0 means no limit
	distinct bool
}

func (q *query) AddPredicate(p backend.Predicate)   { q.preds = append(q.preds, p) }
func (q *query) AddAnnotation(a backend.Annotation) { q.anns = append(q.anns, a) }
func (q *query) AddSort(k backend.SortKey)          { q.sorts = append(q.sorts, k) }
func (q *query) SetOffset(n int)                    { q.start = n }
func (q *query) SetLimit(n int)                     { q.limit = n }
func (q *query) SetDistinct(on bool)                { q.distinct = on }

// Execute runs the full pipeline: immediate annotations, filtering,
// delayed annotations, sort, then slicing. Delayed annotations see
// only related rows that the main predicates on the same relation
// accept, so their values can differ from the immediate ones.
func (q *query) Execute(ctx context.Context) ([]backend.Record, error) {
	q.st.mu.RLock()
	defer q.st.mu.RUnlock()

	recs := q.filtered()
	q.st.sortRecords(recs, q.sorts)

	if q.start > len(recs) {
		recs = nil
	} else {
		recs = recs[q.start:]
	}
	if q.limit > 0 && q.limit < len(recs) {
		recs = recs[:q.limit]
	}

	out := make([]backend.Record, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out, nil
}

// Count reports the size of the filtered set, ignoring slicing.
func (q *query) Count(ctx context.Context) (int, error) {
	q.st.mu.RLock()
	defer q.st.mu.RUnlock()
	return len(q.filtered()), nil
}

// Aggregate folds a function over a field of the filtered, unsliced set.
func (q *query) Aggregate(ctx context.Context, fn backend.Func, path []string) (any, error) {
	q.st.mu.RLock()
	defer q.st.mu.RUnlock()

	var input []any
	for _, rec := range q.filtered() {
		input = append(input, q.st.leafValues(rec, path)...)
	}
	return fold(fn, input), nil
}

// filtered builds the annotated, predicate-matched row set in
// insertion order. Rows are distinct by construction, so the distinct
// flag needs no extra work here. Callers hold the store lock.
func (q *query) filtered() []*record {
	rows := q.st.rows[q.et.Name]
	recs := make([]*record, 0, len(rows))
	for _, r := range rows {
		rec := &record{st: q.st, et: q.et, r: r, ann: make(map[string]any)}
		for _, a := range q.anns {
			if !a.Delayed {
				rec.ann[a.As] = q.st.annotate(rec, a, nil)
			}
		}
		recs = append(recs, rec)
	}

	matched := recs[:0]
	for _, rec := range recs {
		if q.st.matchesAll(rec, q.preds) {
			matched = append(matched, rec)
		}
	}

	for _, rec := range matched {
		for _, a := range q.anns {
			if a.Delayed {
				rec.ann[a.As] = q.st.annotate(rec, a, q.preds)
			}
		}
	}
	return matched
}

// ── predicate matching ──

func (s *Store) matchesAll(rec *record, preds []backend.Predicate) bool {
	for _, p := range preds {
		if !s.matches(rec, p) {
			return false
		}
	}
	return true
}

// matches tests one predicate with exists semantics: a path crossing a
// to-many relation matches when any reachable leaf does. Exclusion is
// plain negation, so excluded equality keeps null leaves.
func (s *Store) matches(rec *record, p backend.Predicate) bool {
	hit := false
	for _, v := range s.leafValues(rec, p.Path) {
		if compare(p.Op, v, p.Value) {
			hit = true
			break
		}
	}
	if p.Exclude {
		return !hit
	}
	return hit
}

// leafValues walks a resolved path and collects every reachable leaf.
// A path ending on a relation yields the related primary keys.
func (s *Store) leafValues(rec *record, path []string) []any {
	if len(path) == 0 {
		return nil
	}
	head := path[0]

	rel := rec.et.Relation(head)
	if rel == nil {
		if v, ok := rec.Field(head); ok {
			return []any{v}
		}
		return []any{nil}
	}

	related := s.relatedRecords(rec, rel)
	if len(path) == 1 {
		target := s.registry.Entity(rel.Target)
		keys := make([]any, 0, len(related))
		for _, r := range related {
			k, _ := r.Field(target.PrimaryKey)
			keys = append(keys, k)
		}
		return keys
	}

	var out []any
	for _, r := range related {
		out = append(out, s.leafValues(r, path[1:])...)
	}
	return out
}

// ── annotations ──

// annotate computes one annotation value for a row. Filters whose path
// enters the annotated relation narrow the related rows; any other
// filter gates on the row itself and empties the input when it fails.
// For delayed annotations, mainPreds on the same relation narrow the
// related rows too.
func (s *Store) annotate(rec *record, a backend.Annotation, mainPreds []backend.Predicate) any {
	head := a.Path[0]
	rel := rec.et.Relation(head)

	if rel == nil {
		for _, f := range a.Filters {
			if !s.matches(rec, f) {
				return fold(a.Fn, nil)
			}
		}
		return fold(a.Fn, s.leafValues(rec, a.Path))
	}

	target := s.registry.Entity(rel.Target)
	var narrow []backend.Predicate
	for _, f := range a.Filters {
		if f.Path[0] == head {
			narrow = append(narrow, descend(f, target.PrimaryKey))
			continue
		}
		if !s.matches(rec, f) {
			return fold(a.Fn, nil)
		}
	}
	for _, p := range mainPreds {
		if p.Path[0] == head {
			narrow = append(narrow, descend(p, target.PrimaryKey))
		}
	}

	related := s.relatedRecords(rec, rel)
	kept := related[:0:0]
	for _, r := range related {
		if s.matchesAll(r, narrow) {
			kept = append(kept, r)
		}
	}

	var input []any
	if len(a.Path) == 1 {
		for _, r := range kept {
			k, _ := r.Field(target.PrimaryKey)
			input = append(input, k)
		}
	} else {
		for _, r := range kept {
			input = append(input, s.leafValues(r, a.Path[1:])...)
		}
	}
	return fold(a.Fn, input)
}

// descend rebases a predicate on the origin entity to one on the
// relation's target. A path of just the relation name compares against
// the target primary key.
func descend(p backend.Predicate, pk string) backend.Predicate {
	p.Path = p.Path[1:]
	if len(p.Path) == 0 {
		p.Path = []string{pk}
	}
	return p
}

// fold applies an aggregation function. Null leaves are ignored; an
// empty input yields 0 for count and null for everything else.
func fold(fn backend.Func, input []any) any {
	vals := input[:0:0]
	for _, v := range input {
		if v != nil {
			vals = append(vals, v)
		}
	}

	if fn == backend.FuncCount {
		return int64(len(vals))
	}
	if len(vals) == 0 {
		return nil
	}

	switch fn {
	case backend.FuncMax:
		best := vals[0]
		for _, v := range vals[1:] {
			if order(v, best) > 0 {
				best = v
			}
		}
		return best
	case backend.FuncMin:
		best := vals[0]
		for _, v := range vals[1:] {
			if order(v, best) < 0 {
				best = v
			}
		}
		return best
	case backend.FuncSum:
		return numericSum(vals)
	case backend.FuncAvg:
		return asFloat(numericSum(vals)) / float64(len(vals))
	case backend.FuncStdDev:
		return math.Sqrt(variance(vals))
	case backend.FuncVar:
		return variance(vals)
	}
	return nil
}

// numericSum keeps integer sums integral so they serialize without a
// fractional part.
func numericSum(vals []any) any {
	allInt := true
	var fsum float64
	var isum int64
	for _, v := range vals {
		if n, ok := v.(int64); ok && allInt {
			isum += n
		} else {
			allInt = false
		}
		fsum += asFloat(v)
	}
	if allInt {
		return isum
	}
	return fsum
}

func variance(vals []any) float64 {
	mean := asFloat(numericSum(vals)) / float64(len(vals))
	var acc float64
	for _, v := range vals {
		d := asFloat(v) - mean
		acc += d * d
	}
	return acc / float64(len(vals))
}

// ── sorting ──

func (s *Store) sortRecords(recs []*record, keys []backend.SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, k := range keys {
			a := s.firstLeaf(recs[i], k.Path)
			b := s.firstLeaf(recs[j], k.Path)
			c := order(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (s *Store) firstLeaf(rec *record, path []string) any {
	for _, v := range s.leafValues(rec, path) {
		return v
	}
	return nil
}

// ── value comparison ──

func compare(op backend.Op, a, b any) bool {
	if a == nil || b == nil {
		switch op {
		case backend.OpEq, backend.OpIEq:
			return a == nil && b == nil
		}
		return false
	}

	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return false
		}
		return compareStrings(op, sa, sb)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return false
		}
		return ordered(op, orderTimes(ta, tb))
	}
	if ua, ok := a.(uuid.UUID); ok {
		ub, ok := b.(uuid.UUID)
		if !ok {
			return false
		}
		return (op == backend.OpEq || op == backend.OpIEq) && ua == ub
	}
	if isNumeric(a) && isNumeric(b) {
		return ordered(op, orderFloats(asFloat(a), asFloat(b)))
	}
	return (op == backend.OpEq || op == backend.OpIEq) && a == b
}

func compareStrings(op backend.Op, a, b string) bool {
	switch op {
	case backend.OpEq:
		return a == b
	case backend.OpIEq:
		return strings.EqualFold(a, b)
	case backend.OpStartsWith:
		return strings.HasPrefix(a, b)
	case backend.OpIStartsWith:
		return strings.HasPrefix(strings.ToLower(a), strings.ToLower(b))
	case backend.OpEndsWith:
		return strings.HasSuffix(a, b)
	case backend.OpIEndsWith:
		return strings.HasSuffix(strings.ToLower(a), strings.ToLower(b))
	case backend.OpContains:
		return strings.Contains(a, b)
	case backend.OpIContains:
		return strings.Contains(strings.ToLower(a), strings.ToLower(b))
	default:
		return ordered(op, strings.Compare(a, b))
	}
}

func ordered(op backend.Op, c int) bool {
	switch op {
	case backend.OpEq, backend.OpIEq:
		return c == 0
	case backend.OpGt:
		return c > 0
	case backend.OpGte:
		return c >= 0
	case backend.OpLt:
		return c < 0
	case backend.OpLte:
		return c <= 0
	}
	return false
}

// order gives a three-way comparison for sort keys and max/min. Nulls
// sort first; mismatched kinds compare equal.
func order(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
		return 0
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return orderTimes(ta, tb)
		}
		return 0
	}
	if isNumeric(a) && isNumeric(b) {
		return orderFloats(asFloat(a), asFloat(b))
	}
	return 0
}

func orderTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func orderFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int64, int, float64, bool:
		return true
	}
	return false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	case bool:
		if n {
			return 1
		}
	}
	return 0
}
